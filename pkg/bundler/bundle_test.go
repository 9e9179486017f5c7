package bundler

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScriptVM creates a JS runtime with a __log global that appends to the
// returned slice, which is how the tests observe a bundle's behavior.
func newScriptVM(t *testing.T) (*goja.Runtime, *[]string) {
	t.Helper()

	vm := goja.New()
	logs := &[]string{}
	require.NoError(t, vm.Set("__log", func(msg string) {
		*logs = append(*logs, msg)
	}))
	return vm, logs
}

func findArtifact(t *testing.T, result *Result, name string) []byte {
	t.Helper()

	for _, artifact := range result.Artifacts {
		if artifact.Name == name {
			return artifact.Content
		}
	}
	t.Fatalf("artifact %s not found", name)
	return nil
}

func TestBuildResultRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js": "import greet, { version } from './lib.js';\n__log(greet('world') + ' ' + version);\n",
		"lib.js":   "export default function greet(name) {\n  return 'hello ' + name;\n}\nexport const version = '1.0';\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry: filepath.Join(root, "entry.js"),
	})
	require.NoError(t, err)
	require.Len(t, result.Modules, 2)

	vm, logs := newScriptVM(t)
	_, err = vm.RunString(string(findArtifact(t, result, BundleName)))
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world 1.0"}, *logs)
}

func TestBuildResultSharedModuleRunsOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js":  "import './a.js';\nimport './b.js';\n",
		"a.js":      "import { tick } from './shared.js';\ntick();\n",
		"b.js":      "import { tick } from './shared.js';\ntick();\n",
		"shared.js": "__log('shared ran');\nexport function tick() { __log('tick'); }\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry: filepath.Join(root, "entry.js"),
	})
	require.NoError(t, err)

	vm, logs := newScriptVM(t)
	_, err = vm.RunString(string(findArtifact(t, result, BundleName)))
	require.NoError(t, err)

	// the shared factory executes exactly once even though two modules
	// import it
	assert.Equal(t, []string{"shared ran", "tick", "tick"}, *logs)
}

func TestBuildResultCircularImports(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.js": "import { fromB } from './b.js';\nexport const fromA = 'A';\n__log('a sees ' + fromB);\n",
		"b.js": "import { fromA } from './a.js';\nexport const fromB = 'B';\n__log('b sees ' + fromA);\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry: filepath.Join(root, "a.js"),
	})
	require.NoError(t, err)

	vm, logs := newScriptVM(t)
	_, err = vm.RunString(string(findArtifact(t, result, BundleName)))
	require.NoError(t, err)

	// b executes while a's exports are still empty; a then sees b's
	// completed exports
	assert.Equal(t, []string{"b sees undefined", "a sees B"}, *logs)
}

func TestBuildResultStylesheet(t *testing.T) {
	root := t.TempDir()
	css := "body { color: red; }\n"
	writeTree(t, root, map[string]string{
		"entry.js":  "import style from './style.css';\n__log(style.tag);\n",
		"style.css": css,
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry: filepath.Join(root, "entry.js"),
	})
	require.NoError(t, err)

	vm, logs := newScriptVM(t)
	_, err = vm.RunString(`
var __styles = [];
var document = {
  createElement: function (tag) { return { tag: tag }; },
  head: { appendChild: function (el) { __styles.push(el); } }
};
`)
	require.NoError(t, err)

	_, err = vm.RunString(string(findArtifact(t, result, BundleName)))
	require.NoError(t, err)

	assert.Equal(t, []string{"style"}, *logs)

	count, err := vm.RunString("__styles.length")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.ToInteger())

	text, err := vm.RunString("__styles[0].textContent")
	require.NoError(t, err)
	assert.Equal(t, css, text.String())
}

func TestBuildResultHTMLTemplate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js":   "__log('hi');\n",
		"index.html": "<html>\n<body>\n<h1>App</h1>\n</body>\n</html>\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry:        filepath.Join(root, "entry.js"),
		HTMLTemplate: filepath.Join(root, "index.html"),
	})
	require.NoError(t, err)

	page := string(findArtifact(t, result, HTMLName))
	scriptTag := `<script src="/bundle.js"></script>`
	assert.Contains(t, page, scriptTag)
	assert.Less(t, bytes.Index([]byte(page), []byte(scriptTag)), bytes.Index([]byte(page), []byte("</body>")))
	assert.Contains(t, page, "<h1>App</h1>")
}

func TestBuildResultTemplateWithoutBody(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js":   "__log('hi');\n",
		"index.html": "<html><div>no body here</div></html>\n",
	})

	_, err := NewBuilder().BuildResult(testContext(), Options{
		Entry:        filepath.Join(root, "entry.js"),
		HTMLTemplate: filepath.Join(root, "index.html"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "</body>")
}

func TestBuildResultCompress(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js": "__log('hi');\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry:    filepath.Join(root, "entry.js"),
		Compress: true,
	})
	require.NoError(t, err)

	compressed := findArtifact(t, result, BundleName+".br")
	decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
	require.NoError(t, err)
	assert.Equal(t, findArtifact(t, result, BundleName), decompressed)
}

func TestBuildWritesArtifacts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js": "__log('hi');\n",
	})

	outDir := filepath.Join(root, "dist")
	err := NewBuilder().Build(testContext(), Options{
		Entry:     filepath.Join(root, "entry.js"),
		OutputDir: outDir,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(outDir, BundleName))
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

func TestBuildFailureWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js": "import { x } from './missing.js';\n",
	})

	outDir := filepath.Join(root, "dist")
	err := NewBuilder().Build(testContext(), Options{
		Entry:     filepath.Join(root, "entry.js"),
		OutputDir: outDir,
	})
	require.Error(t, err)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "failed build must not create output")
}

func TestBuildResultBareImport(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"entry.js":                   "import { answer } from 'calc';\n__log('answer ' + answer);\n",
		"node_modules/calc/index.js": "export const answer = 42;\n",
	})

	result, err := NewBuilder().BuildResult(testContext(), Options{
		Entry: filepath.Join(root, "entry.js"),
	})
	require.NoError(t, err)

	vm, logs := newScriptVM(t)
	_, err = vm.RunString(string(findArtifact(t, result, BundleName)))
	require.NoError(t, err)

	assert.Equal(t, []string{"answer 42"}, *logs)
}
