package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// Syntax globals let scripts check indexed declarations against the
// platform and primary sources they came from:
//
//	parse(path)                    tree, language from the file extension
//	parse_src(source, language)    tree
//	query(pattern, node)           list of {capture: {text, type, line, node}}
//	node_text(node)                string
//	node_child(node, field)        node or nil

type grammar struct {
	exts []string
	lang func() *sitter.Language
}

var grammars = map[string]grammar{
	"java":   {exts: []string{".java"}, lang: java.GetLanguage},
	"kotlin": {exts: []string{".kt", ".kts"}, lang: kotlin.GetLanguage},
}

// LanguageForFile names the grammar for path by extension.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for name, g := range grammars {
		for _, e := range g.exts {
			if e == ext {
				return name, true
			}
		}
	}
	return "", false
}

// ParserForLanguage returns the tree-sitter language for a grammar name.
func ParserForLanguage(name string) (*sitter.Language, bool) {
	g, ok := grammars[name]
	if !ok {
		return nil, false
	}
	return g.lang(), true
}

// parsedSource is what node_text and query need to get back from a node.
// The tree is held so its nodes stay valid while the script runs.
type parsedSource struct {
	tree *sitter.Tree
	src  []byte
	lang *sitter.Language
}

// syntaxTrees maps the root node of every tree a script parsed to its
// source. go-tree-sitter caches nodes per tree, so walking Parent() from
// any node reaches the same root pointer.
type syntaxTrees struct {
	mu    sync.RWMutex
	roots map[*sitter.Node]*parsedSource
}

func newSyntaxTrees() *syntaxTrees {
	return &syntaxTrees{roots: map[*sitter.Node]*parsedSource{}}
}

func (s *syntaxTrees) parse(ctx context.Context, src []byte, langName string) (*sitter.Tree, error) {
	lang, ok := ParserForLanguage(langName)
	if !ok {
		return nil, errUnsupportedLanguage(langName)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.roots[tree.RootNode()] = &parsedSource{tree: tree, src: src, lang: lang}
	s.mu.Unlock()
	return tree, nil
}

func (s *syntaxTrees) of(node *sitter.Node) (*parsedSource, bool) {
	for node.Parent() != nil {
		node = node.Parent()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.roots[node]
	return ps, ok
}

func errUnsupportedLanguage(name string) error {
	return fmt.Errorf("unsupported language %q", name)
}

func (r *Runtime) syntaxGlobals() map[string]any {
	return map[string]any{
		"parse":      r.parseFn(),
		"parse_src":  r.parseSrcFn(),
		"query":      r.queryFn(),
		"node_text":  r.nodeTextFn(),
		"node_child": nodeChildFn(),
	}
}

func (r *Runtime) parseFn() *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse: path: %v", err)
		}
		lang, ok := LanguageForFile(path)
		if !ok {
			return object.Errorf("parse: %v", errUnsupportedLanguage(filepath.Ext(path)))
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: %v", err)
		}
		return r.treeObject(ctx, src, lang)
	})
}

func (r *Runtime) parseSrcFn() *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse_src: source: %v", err)
		}
		lang, err := toString(args[1])
		if err != nil {
			return object.Errorf("parse_src: language: %v", err)
		}
		return r.treeObject(ctx, []byte(src), lang)
	})
}

func (r *Runtime) treeObject(ctx context.Context, src []byte, lang string) object.Object {
	tree, err := r.trees.parse(ctx, src, lang)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	r.logger.Debug("parsed source", "language", lang, "bytes", len(src))
	p, err := object.NewProxy(tree)
	if err != nil {
		return object.Errorf("parse: %v", err)
	}
	return p
}

func (r *Runtime) queryFn() *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("query: pattern: %v", err)
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		ps, ok := r.trees.of(node)
		if !ok {
			return object.Errorf("query: node was not produced by parse")
		}

		q, err := sitter.NewQuery([]byte(pattern), ps.lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		out := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, ps.src)
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				capture, err := captureObject(c.Node, ps.src)
				if err != nil {
					return object.Errorf("query: %v", err)
				}
				captures[q.CaptureNameForId(c.Index)] = capture
			}
			out = append(out, object.NewMap(captures))
		}
		return object.NewList(out)
	})
}

func captureObject(n *sitter.Node, src []byte) (object.Object, error) {
	p, err := object.NewProxy(n)
	if err != nil {
		return nil, err
	}
	return object.NewMap(map[string]object.Object{
		"text": object.NewString(n.Content(src)),
		"type": object.NewString(n.Type()),
		"line": object.NewInt(int64(n.StartPoint().Row) + 1),
		"node": p,
	}), nil
}

func (r *Runtime) nodeTextFn() *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		ps, ok := r.trees.of(node)
		if !ok {
			return object.Errorf("node_text: node was not produced by parse")
		}
		return object.NewString(node.Content(ps.src))
	})
}

// nodeChildFn returns nil rather than a proxied nil pointer for a missing
// field.
func nodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, err := toString(args[1])
		if err != nil {
			return object.Errorf("node_child: field: %v", err)
		}
		child := node.ChildByFieldName(field)
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: %v", err)
		}
		return p
	})
}

func nodeArg(fn string, obj object.Object) (*sitter.Node, object.Object) {
	p, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected node, got %s", fn, obj.Type())
	}
	n, ok := p.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected node, got %T", fn, p.Interface())
	}
	return n, nil
}
