package jsparse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RewriteContext carries what the rewrite rules need from the surrounding
// build.
type RewriteContext struct {
	// Resolve maps an import specifier to the canonical path used as the key
	// in the runtime module map. The graph builder resolved every specifier
	// during dependency discovery, so this lookup cannot fail for a parsed
	// file that went through the builder.
	Resolve func(specifier string) string

	// RequireName is the identifier of the runtime require function. An empty
	// value defaults to "require".
	RequireName string
}

type edit struct {
	start int
	end   int
	text  string
}

// Rewrite applies the module-interface rewrite rules to a parsed file and
// regenerates text:
//
//   - every import statement becomes a runtime-require call bound to the
//     resolved canonical path, and every use of an imported binding becomes a
//     property access on the returned exports object
//   - `export default` becomes an assignment to exports.default
//   - named exports become one assignment per exported name onto exports,
//     with the declarations preserved and only the export wrapper stripped
//
// Imported names are assumed not to be shadowed by local declarations; the
// front-end performs no scope analysis.
func Rewrite(f *File, ctx RewriteContext) string {
	req := ctx.RequireName
	if req == "" {
		req = "require"
	}

	edits := make([]edit, 0, len(f.Imports)+len(f.Exports))
	subst := make(map[string]string)
	modVars := 0

	nextVar := func() string {
		name := fmt.Sprintf("__wbm%d", modVars)
		modVars++
		return name
	}
	requireCall := func(specifier string) string {
		return req + "(" + quoteJS(ctx.Resolve(specifier)) + ")"
	}

	for _, imp := range f.Imports {
		if len(imp.Bindings) == 0 {
			edits = append(edits, edit{imp.Start, imp.End, requireCall(imp.Specifier) + ";"})
			continue
		}

		// a namespace binding is the exports object itself, so it doubles as
		// the module variable
		varName := ""
		for _, b := range imp.Bindings {
			if b.Name == "*" {
				varName = b.Local
			}
		}
		if varName == "" {
			varName = nextVar()
		}

		for _, b := range imp.Bindings {
			if b.Name != "*" {
				subst[b.Local] = varName + "." + b.Name
			}
		}

		edits = append(edits, edit{imp.Start, imp.End, "var " + varName + " = " + requireCall(imp.Specifier) + ";"})
	}

	for _, exp := range f.Exports {
		switch exp.Form {
		case ExportDefaultExpr:
			edits = append(edits, edit{exp.Start, exp.KeywordEnd, "exports.default ="})

		case ExportDeclaration:
			edits = append(edits, edit{exp.Start, exp.KeywordEnd, ""})
			assigns := make([]string, len(exp.Bindings))
			for idx, b := range exp.Bindings {
				assigns[idx] = "exports." + b.Name + " = " + b.Local + ";"
			}
			edits = append(edits, edit{exp.End, exp.End, "\n" + strings.Join(assigns, " ")})

		case ExportList:
			assigns := make([]string, len(exp.Bindings))
			for idx, b := range exp.Bindings {
				local := b.Local
				if repl, ok := subst[local]; ok {
					// re-exported import
					local = repl
				}
				assigns[idx] = "exports." + b.Name + " = " + local + ";"
			}
			edits = append(edits, edit{exp.Start, exp.End, strings.Join(assigns, " ")})

		case ExportFromList:
			varName := nextVar()
			parts := []string{"var " + varName + " = " + requireCall(exp.Specifier) + ";"}
			for _, b := range exp.Bindings {
				parts = append(parts, "exports."+b.Name+" = "+varName+"."+b.Local+";")
			}
			edits = append(edits, edit{exp.Start, exp.End, strings.Join(parts, " ")})

		case ExportFromAll:
			varName := nextVar()
			var text string
			if len(exp.Bindings) > 0 {
				// export * as ns from "..."
				text = "var " + varName + " = " + requireCall(exp.Specifier) + "; exports." + exp.Bindings[0].Name + " = " + varName + ";"
			} else {
				text = "var " + varName + " = " + requireCall(exp.Specifier) + "; " +
					"for (var __wbk in " + varName + ") { if (__wbk !== \"default\") { exports[__wbk] = " + varName + "[__wbk]; } }"
			}
			edits = append(edits, edit{exp.Start, exp.End, text})
		}
	}

	sort.Slice(edits, func(a, b int) bool {
		if edits[a].start != edits[b].start {
			return edits[a].start < edits[b].start
		}
		return edits[a].end < edits[b].end
	})

	var sb strings.Builder
	sb.Grow(len(f.Source) + 256)

	pos := 0
	for _, e := range edits {
		if e.start > pos {
			emitWithSubstitution(&sb, f.Source[pos:e.start], subst)
		}
		sb.WriteString(e.text)
		if e.end > pos {
			pos = e.end
		}
	}
	if pos < len(f.Source) {
		emitWithSubstitution(&sb, f.Source[pos:], subst)
	}

	return sb.String()
}

// emitWithSubstitution copies a source segment, replacing identifier use
// sites of imported bindings with their property-access form. String
// literals, template literal text and comments are copied verbatim; template
// expressions are substituted. Property accesses (`x.name`) and object keys
// (`name:`) are left alone, and object shorthand (`{ name }`) expands to
// `name: access` to stay valid syntax.
func emitWithSubstitution(sb *strings.Builder, seg string, subst map[string]string) {
	if len(subst) == 0 {
		sb.WriteString(seg)
		return
	}

	n := len(seg)
	i := 0
	prev := byte(';')

	for i < n {
		c := seg[i]
		switch {
		case c == '\'' || c == '"':
			end := skipSegString(seg, i)
			sb.WriteString(seg[i:end])
			i = end
			prev = c
		case c == '`':
			i = emitSegTemplate(sb, seg, i, subst)
			prev = '`'
		case c == '/' && i+1 < n && seg[i+1] == '/':
			end := i
			for end < n && seg[end] != '\n' {
				end++
			}
			sb.WriteString(seg[i:end])
			i = end
		case c == '/' && i+1 < n && seg[i+1] == '*':
			end := i + 2
			for end+1 < n && !(seg[end] == '*' && seg[end+1] == '/') {
				end++
			}
			if end+1 < n {
				end += 2
			} else {
				end = n
			}
			sb.WriteString(seg[i:end])
			i = end
		case isIdentChar(c):
			start := i
			for i < n && isIdentChar(seg[i]) {
				i++
			}
			word := seg[start:i]
			repl, ok := subst[word]
			if !ok || prev == '.' {
				sb.WriteString(word)
			} else {
				next := nextSignificant(seg, i)
				switch {
				case next == ':':
					// object key or label
					sb.WriteString(word)
				case (prev == '{' || prev == ',') && (next == ',' || next == '}'):
					// object shorthand
					sb.WriteString(word + ": " + repl)
				default:
					sb.WriteString(repl)
				}
			}
			prev = seg[i-1]
		default:
			sb.WriteByte(c)
			if !isSpace(c) {
				prev = c
			}
			i++
		}
	}
}

// emitSegTemplate copies a template literal, substituting inside ${...}
// expressions only.
func emitSegTemplate(sb *strings.Builder, seg string, i int, subst map[string]string) int {
	n := len(seg)
	sb.WriteByte('`')
	i++
	for i < n {
		c := seg[i]
		switch {
		case c == '\\':
			if i+1 < n {
				sb.WriteString(seg[i : i+2])
				i += 2
			} else {
				sb.WriteByte(c)
				i++
			}
		case c == '`':
			sb.WriteByte('`')
			return i + 1
		case c == '$' && i+1 < n && seg[i+1] == '{':
			end := templateExprEnd(seg, i+2)
			sb.WriteString("${")
			emitWithSubstitution(sb, seg[i+2:end], subst)
			if end < n {
				sb.WriteByte('}')
				end++
			}
			i = end
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return i
}

// templateExprEnd finds the `}` closing a template expression that starts at
// i (just past the `${`).
func templateExprEnd(seg string, i int) int {
	n := len(seg)
	depth := 0
	for i < n {
		c := seg[i]
		switch {
		case c == '\'' || c == '"':
			i = skipSegString(seg, i)
		case c == '{':
			depth++
			i++
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
			i++
		default:
			i++
		}
	}
	return i
}

func skipSegString(seg string, i int) int {
	quote := seg[i]
	i++
	for i < len(seg) && seg[i] != quote {
		if seg[i] == '\\' {
			i++
		}
		i++
	}
	if i < len(seg) {
		i++
	}
	return i
}

func nextSignificant(seg string, i int) byte {
	for i < len(seg) && isSpace(seg[i]) {
		i++
	}
	if i < len(seg) {
		return seg[i]
	}
	return 0
}

// quoteJS renders a string as a JS string literal. JSON string syntax is a
// subset of JS, so this is safe for arbitrary content including CSS text.
func quoteJS(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		// strings never fail to marshal
		panic(err)
	}
	return string(out)
}
