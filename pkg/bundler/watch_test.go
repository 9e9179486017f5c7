package bundler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDirsWithoutResult(t *testing.T) {
	opts := Options{Entry: filepath.Join("app", "src", "entry.js")}
	dirs := watchDirs(opts, nil)
	assert.Equal(t, []string{filepath.Join("app", "src")}, dirs)
}

func TestWatchDirsIncludesTemplate(t *testing.T) {
	opts := Options{
		Entry:        filepath.Join("app", "src", "entry.js"),
		HTMLTemplate: filepath.Join("app", "public", "index.html"),
	}
	dirs := watchDirs(opts, nil)
	assert.Equal(t, []string{
		filepath.Join("app", "src"),
		filepath.Join("app", "public"),
	}, dirs)
}

func TestWatchDirsDeduplicatesModuleDirectories(t *testing.T) {
	opts := Options{Entry: filepath.Join("app", "src", "entry.js")}
	result := &Result{Modules: []*Module{
		{Path: filepath.Join("app", "src", "entry.js")},
		{Path: filepath.Join("app", "src", "lib.js")},
		{Path: filepath.Join("app", "node_modules", "pkg", "index.js")},
	}}

	dirs := watchDirs(opts, result)
	require.Len(t, dirs, 2)
	assert.Equal(t, []string{
		filepath.Join("app", "src"),
		filepath.Join("app", "node_modules", "pkg"),
	}, dirs)
}
