package bundler

import (
	"bytes"

	"github.com/rotisserie/eris"
)

var bodyCloseMarker = []byte("</body>")

// injectScriptTags returns the template with a `<script src="/<name>">` tag
// inserted immediately before the closing body marker for every script
// artifact, preserving emission order.
func injectScriptTags(template []byte, names []string) ([]byte, error) {
	idx := bytes.LastIndex(template, bodyCloseMarker)
	if idx < 0 {
		return nil, eris.New("template has no closing </body> tag")
	}

	var tags bytes.Buffer
	for _, name := range names {
		tags.WriteString("<script src=\"/" + name + "\"></script>\n")
	}

	result := make([]byte, 0, len(template)+tags.Len())
	result = append(result, template[:idx]...)
	result = append(result, tags.Bytes()...)
	result = append(result, template[idx:]...)
	return result, nil
}
