package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const javaTestSource = `package com.acme;

import java.util.List;

public class Greeter {
    private String prefix;

    public String greet(String name) {
        return prefix + name;
    }

    public int add(int a, int b) {
        return a + b;
    }
}
`

// parseJavaSource parses src into a fresh Runtime's tree registry.
func parseJavaSource(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()
	rt := NewRuntime(nil, "")
	tree, err := rt.trees.parse(context.Background(), []byte(src), "java")
	require.NoError(t, err)
	return tree, rt
}

func writeJavaFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Greeter.java")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"Greeter.java", "java", true},
		{"Main.kt", "kotlin", true},
		{"build.gradle.kts", "kotlin", true},
		{"path/to/File.JAVA", "java", true}, // case insensitive
		{"main.go", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"java", "kotlin"} {
		l, ok := ParserForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, l, lang)
	}
	_, ok := ParserForLanguage("cobol")
	assert.False(t, ok)
}

// --- tree-sitter source store ---

func TestParse_JavaRootNodeType(t *testing.T) {
	tree, _ := parseJavaSource(t, javaTestSource)
	defer tree.Close()

	assert.Equal(t, "program", tree.RootNode().Type())
}

func TestParse_InvalidSourceStillReturnsTree(t *testing.T) {
	tree, _ := parseJavaSource(t, "class }{ nope")
	defer tree.Close()

	root := tree.RootNode()
	require.NotNil(t, root)
	assert.True(t, root.HasError())
}

func TestNodeText_ClassName(t *testing.T) {
	tree, rt := parseJavaSource(t, javaTestSource)
	defer tree.Close()

	root := tree.RootNode()
	var class *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if child := root.NamedChild(i); child.Type() == "class_declaration" {
			class = child
		}
	}
	require.NotNil(t, class)

	name := class.ChildByFieldName("name")
	require.NotNil(t, name)
	ps, ok := rt.trees.of(name)
	require.True(t, ok)
	assert.Equal(t, "Greeter", name.Content(ps.src))
	assert.NotNil(t, ps.lang)

	_, ok = NewRuntime(nil, "").trees.of(name)
	assert.False(t, ok, "trees are per runtime")
}

// --- Risor integration tests (via RunSource) ---

func TestRunSource_ParseAndQuery(t *testing.T) {
	path := writeJavaFile(t, javaTestSource)
	rt := NewRuntime(nil, "")

	script := `
tree := parse(test_file)
root := tree.RootNode()
assert(root.Type() == "program", "expected program")

matches := query("(method_declaration name: (identifier) @name)", root)
names := []
for i := 0; i < len(matches); i++ {
    m := matches[i]["name"]
    names.append(m["text"] + ":" + string(m["line"]))
}
names
`
	got, err := rt.RunSource(context.Background(), script, map[string]any{"test_file": path})
	require.NoError(t, err)
	assert.Equal(t, []any{"greet:8", "add:12"}, got)
}

func TestRunSource_NodeChild(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src, "java")
cls := query("(class_declaration) @c", tree.RootNode())[0]["c"]["node"]
missing := node_child(cls, "type_parameters")
[node_text(node_child(cls, "name")), missing == nil]
`
	got, err := rt.RunSource(context.Background(), script, map[string]any{"src": javaTestSource})
	require.NoError(t, err)
	assert.Equal(t, []any{"Greeter", true}, got)
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime(nil, "")

	script := `
tree := parse_src(src, "java")
query("(not_a_real_node_type @x)", tree.RootNode())
`
	_, err := rt.RunSource(context.Background(), script, map[string]any{"src": javaTestSource})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRunSource_UnsupportedLanguage(t *testing.T) {
	rt := NewRuntime(nil, "")
	_, err := rt.RunSource(context.Background(), `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_NoQueriesWithoutResolver(t *testing.T) {
	rt := NewRuntime(nil, "")
	_, err := rt.RunSource(context.Background(), `declaration("p.A")`, nil)
	require.Error(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`1 + 1`), 0644))

	rt := NewRuntime(nil, dir)
	got, err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	_, err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"checks/sealed.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("checks/sealed.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/checks/sealed.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{}))
	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script nonexistent.risor")
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.RunSource(context.Background(), `
import lib_helpers
lib_helpers.greet("world")
`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestImport_ScriptsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))
	rt := NewRuntime(nil, dir)

	got, err := rt.RunSource(context.Background(), `
import math_utils
math_utils.double(21)
`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The log global is always available, so imported modules may use it.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	_, err := rt.RunSource(context.Background(), `
import helper
helper.do_log("test message")
`, nil)
	require.NoError(t, err)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Nil(t, rt.queries)
	assert.NotNil(t, rt.logger)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
