package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectScriptTags(t *testing.T) {
	page, err := injectScriptTags([]byte("<html><body><p>hi</p></body></html>"), []string{"bundle.js"})
	require.NoError(t, err)
	assert.Equal(t, "<html><body><p>hi</p><script src=\"/bundle.js\"></script>\n</body></html>", string(page))
}

func TestInjectScriptTagsMultiple(t *testing.T) {
	page, err := injectScriptTags([]byte("<body></body>"), []string{"a.js", "b.js"})
	require.NoError(t, err)
	assert.Equal(t, "<body><script src=\"/a.js\"></script>\n<script src=\"/b.js\"></script>\n</body>", string(page))
}

func TestInjectScriptTagsUsesLastBodyClose(t *testing.T) {
	template := "<body><pre></body></pre></body>"
	page, err := injectScriptTags([]byte(template), []string{"bundle.js"})
	require.NoError(t, err)
	assert.Equal(t, "<body><pre></body></pre><script src=\"/bundle.js\"></script>\n</body>", string(page))
}

func TestInjectScriptTagsMissingBody(t *testing.T) {
	_, err := injectScriptTags([]byte("<html><div></div></html>"), []string{"bundle.js"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "</body>")
}
