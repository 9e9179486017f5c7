package bundler

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ngld/webbundle/pkg/jsparse"
)

// KindHandler is the capability a module kind has to offer: loading raw
// content into a parsed form and transforming that into runtime-ready script
// text. Adding a new kind means implementing this interface and registering
// it for an extension; the graph builder never changes.
type KindHandler interface {
	// Kind names the handler category ("script", "stylesheet", ...).
	Kind() string

	// Load populates the module's parsed form and import specifiers from its
	// raw content.
	Load(ctx context.Context, mod *Module) error

	// Transform produces the script text included in the runtime module map.
	// It runs once per module, after the whole graph is known, so it may rely
	// on every specifier in mod.Resolved pointing at a canonical path.
	Transform(ctx context.Context, mod *Module) (string, error)
}

// KindRegistry dispatches a file extension to its module kind handler.
type KindRegistry struct {
	handlers map[string]KindHandler
}

// NewKindRegistry creates an empty registry.
func NewKindRegistry() *KindRegistry {
	return &KindRegistry{handlers: make(map[string]KindHandler)}
}

// DefaultKindRegistry creates a registry with the built-in script (.js) and
// stylesheet (.css) kinds.
func DefaultKindRegistry() *KindRegistry {
	reg := NewKindRegistry()
	reg.Register(".js", ScriptKind{})
	reg.Register(".css", StylesheetKind{})
	return reg
}

// Register maps a file extension (including the leading dot) to a handler.
func (r *KindRegistry) Register(ext string, handler KindHandler) {
	r.handlers[strings.ToLower(ext)] = handler
}

// Handler returns the handler for a file's extension or an
// UnsupportedKindError naming the path and extension.
func (r *KindRegistry) Handler(path string) (KindHandler, error) {
	ext := strings.ToLower(filepath.Ext(path))
	handler, ok := r.handlers[ext]
	if !ok {
		return nil, &UnsupportedKindError{Path: path, Ext: ext}
	}
	return handler, nil
}

// ScriptKind handles JavaScript sources. Scripts participate fully in
// dependency discovery and get their module interface rewritten into
// runtime-require form.
type ScriptKind struct{}

func (ScriptKind) Kind() string {
	return "script"
}

func (ScriptKind) Load(ctx context.Context, mod *Module) error {
	file, err := jsparse.Parse(mod.Path, string(mod.Raw))
	if err != nil {
		return err
	}

	mod.Parsed = file
	mod.ImportSpecifiers = file.Specifiers()
	return nil
}

func (ScriptKind) Transform(ctx context.Context, mod *Module) (string, error) {
	return jsparse.Rewrite(mod.Parsed, jsparse.RewriteContext{
		Resolve: func(specifier string) string {
			return mod.Resolved[specifier]
		},
	}), nil
}

// StylesheetKind handles CSS files. Stylesheets have no dependencies and
// transform into a script that injects a style element with the literal
// stylesheet text when executed; the raw CSS never appears in the final
// artifact.
type StylesheetKind struct{}

func (StylesheetKind) Kind() string {
	return "stylesheet"
}

func (StylesheetKind) Load(ctx context.Context, mod *Module) error {
	// nothing to parse, the raw text is embedded verbatim at transform time
	return nil
}

func (StylesheetKind) Transform(ctx context.Context, mod *Module) (string, error) {
	var sb strings.Builder
	sb.WriteString("var style = document.createElement(\"style\");\n")
	sb.WriteString("style.textContent = " + quoteJS(string(mod.Raw)) + ";\n")
	sb.WriteString("document.head.appendChild(style);\n")
	sb.WriteString("exports.default = style;\n")
	return sb.String(), nil
}
