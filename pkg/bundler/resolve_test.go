package bundler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestResolveRelative(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/entry.js": "",
		"src/lib.js":   "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "src", "entry.js"), "./lib.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "lib.js"), path)
}

func TestResolveRelativeAddsExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/entry.js": "",
		"src/lib.js":   "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "src", "entry.js"), "./lib")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "lib.js"), path)
}

func TestResolveRelativeParentDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/deep/entry.js": "",
		"src/lib.js":        "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "src", "deep", "entry.js"), "../lib.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "lib.js"), path)
}

func TestResolveBareClosestAncestorWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/pkg/index.js":     "",
		"app/node_modules/pkg/index.js": "",
		"app/src/entry.js":              "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "app", "src", "entry.js"), "pkg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "app", "node_modules", "pkg", "index.js"), path)
}

func TestResolveBareWalksUp(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/pkg/index.js": "",
		"app/src/entry.js":          "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "app", "src", "entry.js"), "pkg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "pkg", "index.js"), path)
}

func TestResolvePackageMain(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/widget/package.json": `{"main": "lib/main.js"}`,
		"node_modules/widget/lib/main.js":  "",
		"entry.js":                         "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "entry.js"), "widget")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "widget", "lib", "main.js"), path)
}

func TestResolvePackageIndexFallback(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/widget/package.json": `{"name": "widget"}`,
		"node_modules/widget/index.js":     "",
		"entry.js":                         "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "entry.js"), "widget")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "widget", "index.js"), path)
}

func TestResolvePackageFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/pkg/helper.js": "",
		"entry.js":                   "",
	})

	resolver := &Resolver{}
	path, err := resolver.Resolve(filepath.Join(root, "entry.js"), "pkg/helper.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "pkg", "helper.js"), path)
}

func TestResolveFailureNamesRequester(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"entry.js": ""})

	entry := filepath.Join(root, "entry.js")
	resolver := &Resolver{}
	_, err := resolver.Resolve(entry, "./missing.js")
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, entry, resErr.Requester)
	assert.Equal(t, "./missing.js", resErr.Specifier)
}
