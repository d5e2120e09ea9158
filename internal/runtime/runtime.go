package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	tlog "github.com/jward/trellis/internal/log"
)

// Runtime embeds a Risor VM and exposes tree-sitter host functions and
// engine queries to scripts.
type Runtime struct {
	queries    Queries
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
	trees      *syntaxTrees
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script "log" global through l.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime wired to the given queries and scripts
// directory. q may be nil, in which case only the tree-sitter and log
// globals are available.
func NewRuntime(q Queries, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		queries:    q,
		scriptsDir: scriptsDir,
		logger:     tlog.Discard(),
		trees:      newSyntaxTrees(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = tlog.Section(r.logger, tlog.SectionRuntime)
	return r
}

// RunScript runs the script at path, relative to the scripts directory or
// FS, with the standard globals plus extra.
func (r *Runtime) RunScript(ctx context.Context, path string, extra map[string]any) (any, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, path, extra)
}

// RunSource runs Risor source. The value of the last expression is
// returned as a Go value (see ToGo).
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extra)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extra map[string]any) (any, error) {
	start := time.Now()
	globals := r.buildGlobals(extra)
	opts := make([]risor.Option, 0, len(globals)+1)
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if fsys := r.scriptFS(); fsys != nil {
		opts = append(opts, risor.WithImporter(importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: slices.Collect(maps.Keys(globals)),
			SourceFS:    fsys,
			Extensions:  []string{".risor"},
		})))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err == nil {
		var v any
		if v, err = ToGo(result); err == nil {
			r.logger.Debug("script finished", "script", label, "elapsed", time.Since(start))
			return v, nil
		}
	}
	return nil, fmt.Errorf("runtime: script %s: %w", label, err)
}

// scriptFS is where scripts and their imports are read from: the FS given
// with WithRuntimeFS, else the scripts directory.
func (r *Runtime) scriptFS() fs.FS {
	if r.fsys != nil {
		return r.fsys
	}
	if r.scriptsDir != "" {
		return os.DirFS(r.scriptsDir)
	}
	return nil
}

// LoadScript returns the source of a .risor file. Absolute paths are read
// from disk when no FS is configured.
func (r *Runtime) LoadScript(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if fsys := r.scriptFS(); fsys == nil || (r.fsys == nil && filepath.IsAbs(path)) {
		data, err = os.ReadFile(path)
	} else {
		data, err = fs.ReadFile(fsys, strings.TrimPrefix(filepath.ToSlash(path), "/"))
	}
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", path, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := r.syntaxGlobals()
	globals["log"] = mustProxy(&logObject{logger: r.logger})

	// Engine queries are only available when a resolver is attached.
	if r.queries != nil {
		globals["declaration"] = makeDeclarationFn(r.queries)
		globals["class_by_name"] = makeClassByNameFn(r.queries)
		globals["as_member_of"] = makeAsMemberOfFn(r.queries)
		globals["find_overridden"] = makeFindOverriddenFn(r.queries)
		globals["mangled_name"] = makeMangledNameFn(r.queries)
		globals["sealed_subclasses"] = makeSealedSubclassesFn(r.queries)
		globals["map_type"] = makeMapTypeFn(r.queries)
		globals["visibility"] = makeVisibilityFn(r.queries)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject backs the script "log" global.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }
func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }
