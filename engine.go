package trellis

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/jward/trellis/internal/graph"
	tlog "github.com/jward/trellis/internal/log"
	trt "github.com/jward/trellis/internal/runtime"
	"github.com/jward/trellis/internal/store"
)

// ConstantEvaluator folds the source text of a constant expression, as
// found in annotation defaults, into a Go value: int64, float64, string,
// bool, nil or []any.
type ConstantEvaluator func(ctx context.Context, src string) (any, error)

// Engine answers resolution queries over one immutable declaration graph.
// All methods are safe for concurrent use.
type Engine struct {
	graph     *graph.Graph
	logger    *slog.Logger
	cache     bool
	workers   int
	evalConst ConstantEvaluator

	// store is set when the graph was opened from a snapshot.
	store *store.Store

	// members caches AsMemberOf results; ancestors caches supertype
	// linearizations. Both are keyed by module name plus structural keys.
	members   sync.Map
	ancestors sync.Map
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache controls memoization of member types and linearizations. It is
// on by default.
func WithCache(enabled bool) Option {
	return func(e *Engine) {
		e.cache = enabled
	}
}

// WithWorkers sets the worker count for batch queries. Zero or less means
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithConstantEvaluator replaces the evaluator used for constant-expression
// annotation defaults. The default runs the expression through Risor.
func WithConstantEvaluator(fn ConstantEvaluator) Option {
	return func(e *Engine) {
		e.evalConst = fn
	}
}

// New creates an Engine over g.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:     g,
		logger:    tlog.Discard(),
		cache:     true,
		evalConst: trt.EvalConstant,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// Graph returns the underlying declaration graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Close releases the snapshot database, if the engine was opened from one.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Query returns a Resolver that sees the graph from module. An empty name
// sees every module.
func (e *Engine) Query(module string) (*Resolver, error) {
	if module == "" {
		return e.resolver(nil), nil
	}
	m := e.graph.Module(module)
	if m == nil {
		return nil, &UnresolvedReferenceError{Name: module}
	}
	return e.resolver(m), nil
}

func (e *Engine) resolver(m *graph.Module) *Resolver {
	name := ""
	if m != nil {
		name = m.Name
	}
	return &Resolver{
		engine: e,
		graph:  e.graph,
		module: m,
		name:   name,
		log: resolverLoggers{
			member:     tlog.Section(e.logger, tlog.SectionMember),
			override:   tlog.Section(e.logger, tlog.SectionOverride),
			bridge:     tlog.Section(e.logger, tlog.SectionBridge),
			annotation: tlog.Section(e.logger, tlog.SectionAnnotation),
		},
	}
}
