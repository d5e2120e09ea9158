// Package javasrc loads platform-language (Java) source files into the
// declaration graph. Index registers every type as a stub from a cheap
// header pass; a stub's details are extracted from its file on first
// access.
package javasrc

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	"github.com/jward/trellis/internal/platform"
)

// Loader indexes Java sources and resolves the stubs it registers. A
// Loader may index several modules; it is safe for concurrent stub
// resolution once indexing is done.
type Loader struct {
	logger *slog.Logger
	origin graph.Origin

	mu    sync.Mutex
	files map[string]*fileEntry
	// stubs by qualified name, for nested-type identity and name resolution
	stubs map[string]*graph.Declaration
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithOrigin sets the origin of registered declarations, OriginPlatform by
// default. Use OriginPlatformLib for library sources.
func WithOrigin(o graph.Origin) Option {
	return func(ld *Loader) { ld.origin = o }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		logger: tlog.Discard(),
		origin: graph.OriginPlatform,
		files:  map[string]*fileEntry{},
		stubs:  map[string]*graph.Declaration{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = tlog.Section(l.logger, tlog.SectionJavaSrc)
	return l
}

type fileEntry struct {
	path string
	once sync.Once
	file *sourceFile
	err  error
}

// sourceFile is a parsed compilation unit.
type sourceFile struct {
	path     string
	src      []byte
	root     *sitter.Node
	pkg      string
	single   map[string]string // simple name → qualified name
	wildcard []string          // on-demand import packages
}

// Index parses every .java file under roots and registers a stub for each
// top-level and nested type in module. It returns the number of types
// registered.
func (l *Loader) Index(ctx context.Context, b *graph.Builder, module string, roots ...string) (int, error) {
	var paths []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".java") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return 0, errors.Wrapf(err, "index %s", root)
		}
	}
	sort.Strings(paths)

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		// The header pass keeps nothing but declarations; the tree is
		// parsed again on first stub access.
		f, err := parseFile(ctx, path)
		if err != nil {
			return count, err
		}
		n, err := l.register(b, module, f)
		if err != nil {
			return count, err
		}
		count += n
		l.mu.Lock()
		if l.files[path] == nil {
			l.files[path] = &fileEntry{path: path}
		}
		l.mu.Unlock()
		l.logger.Debug("indexed file", "path", path, "types", n)
	}
	return count, nil
}

// register adds a stub for every type declaration in f.
func (l *Loader) register(b *graph.Builder, module string, f *sourceFile) (int, error) {
	count := 0
	var walk func(body *sitter.Node, parent *graph.Declaration) error
	walk = func(body *sitter.Node, parent *graph.Declaration) error {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			node := body.NamedChild(i)
			kind, ok := typeKinds[node.Type()]
			if !ok {
				if node.Type() == "enum_body_declarations" {
					if err := walk(node, parent); err != nil {
						return err
					}
				}
				continue
			}
			d := l.stub(f, node, kind, parent)
			if err := b.Add(module, d); err != nil {
				return errors.Wrapf(err, "%s", f.path)
			}
			l.mu.Lock()
			l.stubs[d.QualifiedName] = d
			l.mu.Unlock()
			count++
			if tb := node.ChildByFieldName("body"); tb != nil {
				if err := walk(tb, d); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return count, walk(f.root, nil)
}

var typeKinds = map[string]graph.Kind{
	"class_declaration":           graph.KindClass,
	"record_declaration":          graph.KindClass,
	"interface_declaration":       graph.KindInterface,
	"enum_declaration":            graph.KindEnumClass,
	"annotation_type_declaration": graph.KindAnnotationClass,
}

func (l *Loader) stub(f *sourceFile, node *sitter.Node, kind graph.Kind, parent *graph.Declaration) *graph.Declaration {
	name := f.text(node.ChildByFieldName("name"))
	mods := f.modifierKeywords(node)
	inInterface := parent != nil && (parent.Kind == graph.KindInterface || parent.Kind == graph.KindAnnotationClass)
	vis, modality, flags := platform.MapModifiers(mods, kind, inInterface)
	if node.Type() == "record_declaration" {
		modality = graph.Final
	}
	if parent != nil && kind == graph.KindClass && !inInterface && !flags.Has(graph.ModStatic) {
		flags = flags.With(graph.ModInner)
	}

	d := &graph.Declaration{
		Name:       name,
		Package:    f.pkg,
		Kind:       kind,
		Origin:     l.origin,
		Visibility: vis,
		Modality:   modality,
		Modifiers:  flags,
		Parent:     parent,
	}
	path := f.path
	return graph.NewStub(d, func(d *graph.Declaration) (*graph.Details, error) {
		return l.load(path, d)
	})
}

// file returns the parsed file, parsing it at most once.
func (l *Loader) file(path string) (*sourceFile, error) {
	l.mu.Lock()
	e := l.files[path]
	if e == nil {
		e = &fileEntry{path: path}
		l.files[path] = e
	}
	l.mu.Unlock()
	e.once.Do(func() {
		e.file, e.err = parseFile(context.Background(), path)
	})
	return e.file, e.err
}

// lookupStub returns a registered type by qualified name.
func (l *Loader) lookupStub(fqn string) *graph.Declaration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stubs[fqn]
}

func parseFile(ctx context.Context, path string) (*sourceFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return parseSource(ctx, path, src)
}

func parseSource(ctx context.Context, path string, src []byte) (*sourceFile, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	f := &sourceFile{
		path:   path,
		src:    src,
		root:   tree.RootNode(),
		single: map[string]string{},
	}
	for i := 0; i < int(f.root.NamedChildCount()); i++ {
		node := f.root.NamedChild(i)
		switch node.Type() {
		case "package_declaration":
			f.pkg = f.text(node.NamedChild(node.NamedChildCount() - 1))
		case "import_declaration":
			f.addImport(node)
		}
	}
	return f, nil
}

func (f *sourceFile) addImport(node *sitter.Node) {
	var name string
	wildcard := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		switch c.Type() {
		case "identifier", "scoped_identifier":
			name = f.text(c)
		case "asterisk":
			wildcard = true
		}
	}
	if name == "" || strings.HasPrefix(strings.TrimSpace(f.text(node)), "import static") {
		return
	}
	if wildcard {
		f.wildcard = append(f.wildcard, name)
		return
	}
	_, simple := graph.PackageOf(name)
	f.single[simple] = name
}

func (f *sourceFile) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.src)
}

// modifierKeywords returns the keyword modifiers of a declaration node.
func (f *sourceFile) modifierKeywords(node *sitter.Node) []string {
	mods := modifiersNode(node)
	if mods == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(mods.ChildCount()); i++ {
		c := mods.Child(i)
		switch c.Type() {
		case "marker_annotation", "annotation", "line_comment", "block_comment":
			continue
		}
		out = append(out, f.text(c))
	}
	return out
}

func modifiersNode(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == "modifiers" {
			return c
		}
	}
	return nil
}
