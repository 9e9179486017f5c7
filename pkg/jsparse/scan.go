package jsparse

import (
	"fmt"
)

// SyntaxError describes a parse failure with enough context to locate it.
type SyntaxError struct {
	Path   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error at offset %d: %s", e.Path, e.Offset, e.Msg)
}

// Binding connects a name in a module's interface to a local identifier.
// For imports, Name is the property on the source module's exports object
// ("default", "*" for the whole object, or a named export) and Local is the
// identifier the importing module uses. For exports, Name is the property
// assigned on this module's exports object and Local is the local value.
type Binding struct {
	Name  string
	Local string
}

// ImportDecl is one top-level import statement. Bindings is empty for pure
// side-effect imports (import "./x.js").
type ImportDecl struct {
	Specifier string
	Bindings  []Binding
	Start     int
	End       int
}

// ExportForm distinguishes the export statement shapes that rewrite
// differently.
type ExportForm int

const (
	// ExportDefaultExpr is `export default <expression>`.
	ExportDefaultExpr ExportForm = iota
	// ExportDeclaration is `export const/let/var/function/class ...`.
	ExportDeclaration
	// ExportList is `export { a, b as c }` of already-declared locals.
	ExportList
	// ExportFromList is `export { a, b as c } from "..."`.
	ExportFromList
	// ExportFromAll is `export * from "..."` or `export * as ns from "..."`.
	ExportFromAll
)

// ExportDecl is one top-level export statement.
//
// Offsets: Start is the `export` keyword. KeywordEnd is the end of the export
// wrapper syntax (past `export` resp. `export default`), which is all the
// rewrite strips or replaces for declaration forms. End is past the whole
// statement for list forms and past the wrapped declaration for
// ExportDeclaration (where the exports assignment gets inserted).
type ExportDecl struct {
	Form       ExportForm
	Bindings   []Binding
	Specifier  string
	Start      int
	KeywordEnd int
	End        int
}

// File is the parsed form of one script.
type File struct {
	Path    string
	Source  string
	Imports []ImportDecl
	Exports []ExportDecl
}

// Specifiers returns every module specifier this file statically references
// (imports and re-exports), in the order they appear in the source.
func (f *File) Specifiers() []string {
	type ref struct {
		start int
		spec  string
	}

	refs := make([]ref, 0, len(f.Imports)+len(f.Exports))
	for _, imp := range f.Imports {
		refs = append(refs, ref{imp.Start, imp.Specifier})
	}
	for _, exp := range f.Exports {
		if exp.Specifier != "" {
			refs = append(refs, ref{exp.Start, exp.Specifier})
		}
	}

	// insertion is already mostly ordered; a simple insertion sort keeps this
	// dependency-free
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j-1].start > refs[j].start; j-- {
			refs[j-1], refs[j] = refs[j], refs[j-1]
		}
	}

	result := make([]string, len(refs))
	for idx, r := range refs {
		result[idx] = r.spec
	}
	return result
}

type scanner struct {
	path string
	src  string
	n    int
}

// Parse scans source text into a File. Only top-level (brace depth zero)
// import and export statements are recognized; dynamic import() calls and
// import.meta are deliberately ignored because the bundler only follows
// static dependencies.
func Parse(path, source string) (*File, error) {
	s := &scanner{path: path, src: source, n: len(source)}
	file := &File{Path: path, Source: source}

	i := 0
	depth := 0
	for i < s.n {
		c := s.src[i]
		switch {
		case c == '\'' || c == '"':
			end, err := s.skipString(i)
			if err != nil {
				return nil, err
			}
			i = end
		case c == '`':
			end, err := s.skipTemplate(i)
			if err != nil {
				return nil, err
			}
			i = end
		case c == '/' && s.at(i+1, '/'):
			i = s.skipLineComment(i)
		case c == '/' && s.at(i+1, '*'):
			end, err := s.skipBlockComment(i)
			if err != nil {
				return nil, err
			}
			i = end
		case c == '{' || c == '(' || c == '[':
			depth++
			i++
		case c == '}' || c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
			i++
		case depth == 0 && c == 'i' && s.word(i, "import"):
			decl, next, err := s.parseImport(i)
			if err != nil {
				return nil, err
			}
			if decl != nil {
				file.Imports = append(file.Imports, *decl)
			}
			i = next
		case depth == 0 && c == 'e' && s.word(i, "export"):
			decl, next, err := s.parseExport(i)
			if err != nil {
				return nil, err
			}
			if decl != nil {
				file.Exports = append(file.Exports, *decl)
			}
			i = next
		case isIdentChar(c):
			i = s.skipIdent(i)
		default:
			i++
		}
	}

	return file, nil
}

func (s *scanner) errAt(offset int, msg string, args ...interface{}) error {
	return &SyntaxError{Path: s.path, Offset: offset, Msg: fmt.Sprintf(msg, args...)}
}

// parseImport handles one import statement starting at the `import` keyword.
// Returns a nil declaration (without error) for dynamic import() calls and
// import.meta references.
func (s *scanner) parseImport(start int) (*ImportDecl, int, error) {
	i := start + len("import")
	i, err := s.skipGaps(i)
	if err != nil {
		return nil, 0, err
	}
	if i >= s.n {
		return nil, 0, s.errAt(start, "unexpected end of input in import statement")
	}

	// import(...) and import.meta are expressions, not declarations
	if s.src[i] == '(' || s.src[i] == '.' {
		return nil, start + len("import"), nil
	}

	// side-effect import: import "./x.js"
	if s.src[i] == '"' || s.src[i] == '\'' {
		spec, next, err := s.parseStringLit(i)
		if err != nil {
			return nil, 0, err
		}
		next = s.skipSemicolon(next)
		return &ImportDecl{Specifier: spec, Start: start, End: next}, next, nil
	}

	bindings := make([]Binding, 0, 2)

	switch {
	case s.src[i] == '*':
		local, next, err := s.parseNamespaceClause(i)
		if err != nil {
			return nil, 0, err
		}
		bindings = append(bindings, Binding{Name: "*", Local: local})
		i = next
	case s.src[i] == '{':
		named, next, err := s.parseNamedClause(i, false)
		if err != nil {
			return nil, 0, err
		}
		bindings = append(bindings, named...)
		i = next
	default:
		name, next := s.parseIdent(i)
		if name == "" {
			return nil, 0, s.errAt(i, "malformed import clause")
		}
		bindings = append(bindings, Binding{Name: "default", Local: name})
		i, err = s.skipGaps(next)
		if err != nil {
			return nil, 0, err
		}

		if i < s.n && s.src[i] == ',' {
			i, err = s.skipGaps(i + 1)
			if err != nil {
				return nil, 0, err
			}
			if i >= s.n {
				return nil, 0, s.errAt(start, "unexpected end of input in import statement")
			}

			switch s.src[i] {
			case '*':
				local, next, err := s.parseNamespaceClause(i)
				if err != nil {
					return nil, 0, err
				}
				bindings = append(bindings, Binding{Name: "*", Local: local})
				i = next
			case '{':
				named, next, err := s.parseNamedClause(i, false)
				if err != nil {
					return nil, 0, err
				}
				bindings = append(bindings, named...)
				i = next
			default:
				return nil, 0, s.errAt(i, "malformed import clause")
			}
		}
	}

	i, err = s.skipGaps(i)
	if err != nil {
		return nil, 0, err
	}
	if !s.word(i, "from") {
		return nil, 0, s.errAt(i, `expected "from" in import statement`)
	}
	i, err = s.skipGaps(i + len("from"))
	if err != nil {
		return nil, 0, err
	}
	if i >= s.n || (s.src[i] != '"' && s.src[i] != '\'') {
		return nil, 0, s.errAt(i, "expected module specifier string")
	}

	spec, next, err := s.parseStringLit(i)
	if err != nil {
		return nil, 0, err
	}
	next = s.skipSemicolon(next)

	return &ImportDecl{Specifier: spec, Bindings: bindings, Start: start, End: next}, next, nil
}

// parseExport handles one export statement starting at the `export` keyword.
func (s *scanner) parseExport(start int) (*ExportDecl, int, error) {
	i, err := s.skipGaps(start + len("export"))
	if err != nil {
		return nil, 0, err
	}
	if i >= s.n {
		return nil, 0, s.errAt(start, "unexpected end of input in export statement")
	}

	switch {
	case s.word(i, "default"):
		keywordEnd := i + len("default")
		decl := &ExportDecl{
			Form:       ExportDefaultExpr,
			Bindings:   []Binding{{Name: "default"}},
			Start:      start,
			KeywordEnd: keywordEnd,
			End:        keywordEnd,
		}
		// the exported expression is scanned by the main loop
		return decl, keywordEnd, nil

	case s.src[i] == '*':
		return s.parseExportAll(start, i)

	case s.src[i] == '{':
		return s.parseExportList(start, i)

	case s.word(i, "const") || s.word(i, "let") || s.word(i, "var"):
		return s.parseExportVarDecl(start, i)

	case s.word(i, "function") || s.word(i, "class") || s.word(i, "async"):
		return s.parseExportFuncDecl(start, i)
	}

	return nil, 0, s.errAt(i, "unsupported export statement")
}

func (s *scanner) parseExportAll(start, i int) (*ExportDecl, int, error) {
	i, err := s.skipGaps(i + 1)
	if err != nil {
		return nil, 0, err
	}

	var bindings []Binding
	if s.word(i, "as") {
		i, err = s.skipGaps(i + len("as"))
		if err != nil {
			return nil, 0, err
		}
		name, next := s.parseIdent(i)
		if name == "" {
			return nil, 0, s.errAt(i, "expected identifier after `* as`")
		}
		bindings = append(bindings, Binding{Name: name, Local: "*"})
		i, err = s.skipGaps(next)
		if err != nil {
			return nil, 0, err
		}
	}

	if !s.word(i, "from") {
		return nil, 0, s.errAt(i, `expected "from" in export statement`)
	}
	i, err = s.skipGaps(i + len("from"))
	if err != nil {
		return nil, 0, err
	}
	if i >= s.n || (s.src[i] != '"' && s.src[i] != '\'') {
		return nil, 0, s.errAt(i, "expected module specifier string")
	}
	spec, next, err := s.parseStringLit(i)
	if err != nil {
		return nil, 0, err
	}
	next = s.skipSemicolon(next)

	decl := &ExportDecl{
		Form:      ExportFromAll,
		Bindings:  bindings,
		Specifier: spec,
		Start:     start,
		End:       next,
	}
	return decl, next, nil
}

func (s *scanner) parseExportList(start, i int) (*ExportDecl, int, error) {
	named, next, err := s.parseNamedClause(i, true)
	if err != nil {
		return nil, 0, err
	}

	i, err = s.skipGaps(next)
	if err != nil {
		return nil, 0, err
	}

	if s.word(i, "from") {
		i, err = s.skipGaps(i + len("from"))
		if err != nil {
			return nil, 0, err
		}
		if i >= s.n || (s.src[i] != '"' && s.src[i] != '\'') {
			return nil, 0, s.errAt(i, "expected module specifier string")
		}
		spec, end, err := s.parseStringLit(i)
		if err != nil {
			return nil, 0, err
		}
		end = s.skipSemicolon(end)

		decl := &ExportDecl{
			Form:      ExportFromList,
			Bindings:  named,
			Specifier: spec,
			Start:     start,
			End:       end,
		}
		return decl, end, nil
	}

	end := s.skipSemicolon(next)
	decl := &ExportDecl{
		Form:     ExportList,
		Bindings: named,
		Start:    start,
		End:      end,
	}
	return decl, end, nil
}

func (s *scanner) parseExportVarDecl(start, i int) (*ExportDecl, int, error) {
	keywordEnd := i

	// skip the const/let/var keyword
	j := s.skipIdent(i)
	j, err := s.skipGaps(j)
	if err != nil {
		return nil, 0, err
	}

	var bindings []Binding
	for {
		name, next := s.parseIdent(j)
		if name == "" {
			return nil, 0, s.errAt(j, "unsupported export pattern (only plain identifiers can be exported)")
		}
		bindings = append(bindings, Binding{Name: name, Local: name})

		next, more, err := s.skipToDeclaratorEnd(next)
		if err != nil {
			return nil, 0, err
		}
		if !more {
			j = next
			break
		}
		j, err = s.skipGaps(next)
		if err != nil {
			return nil, 0, err
		}
	}

	decl := &ExportDecl{
		Form:       ExportDeclaration,
		Bindings:   bindings,
		Start:      start,
		KeywordEnd: keywordEnd,
		End:        j,
	}
	// the declaration itself is scanned by the main loop
	return decl, keywordEnd, nil
}

func (s *scanner) parseExportFuncDecl(start, i int) (*ExportDecl, int, error) {
	keywordEnd := i
	j := i

	if s.word(j, "async") {
		var err error
		j, err = s.skipGaps(j + len("async"))
		if err != nil {
			return nil, 0, err
		}
		if !s.word(j, "function") {
			return nil, 0, s.errAt(j, `expected "function" after "async" in export statement`)
		}
	}

	isClass := s.word(j, "class")
	j = s.skipIdent(j)
	j, err := s.skipGaps(j)
	if err != nil {
		return nil, 0, err
	}

	// generator marker
	if !isClass && j < s.n && s.src[j] == '*' {
		j, err = s.skipGaps(j + 1)
		if err != nil {
			return nil, 0, err
		}
	}

	name, next := s.parseIdent(j)
	if name == "" {
		return nil, 0, s.errAt(j, "exported functions and classes must be named")
	}

	end, err := s.skipToBodyEnd(next)
	if err != nil {
		return nil, 0, err
	}

	decl := &ExportDecl{
		Form:       ExportDeclaration,
		Bindings:   []Binding{{Name: name, Local: name}},
		Start:      start,
		KeywordEnd: keywordEnd,
		End:        end,
	}
	// the declaration itself is scanned by the main loop
	return decl, keywordEnd, nil
}

// skipToDeclaratorEnd consumes one declarator's initializer. It returns the
// position after the declarator and whether another declarator follows (a
// top-level comma).
func (s *scanner) skipToDeclaratorEnd(i int) (int, bool, error) {
	depth := 0
	for i < s.n {
		c := s.src[i]
		switch {
		case c == '\'' || c == '"':
			end, err := s.skipString(i)
			if err != nil {
				return 0, false, err
			}
			i = end
		case c == '`':
			end, err := s.skipTemplate(i)
			if err != nil {
				return 0, false, err
			}
			i = end
		case c == '/' && s.at(i+1, '/'):
			i = s.skipLineComment(i)
		case c == '/' && s.at(i+1, '*'):
			end, err := s.skipBlockComment(i)
			if err != nil {
				return 0, false, err
			}
			i = end
		case c == '{' || c == '(' || c == '[':
			depth++
			i++
		case c == '}' || c == ')' || c == ']':
			depth--
			i++
		case depth == 0 && c == ',':
			return i + 1, true, nil
		case depth == 0 && c == ';':
			return i + 1, false, nil
		case depth == 0 && c == '\n':
			return i, false, nil
		default:
			i++
		}
	}
	return i, false, nil
}

// skipToBodyEnd advances past the next balanced {...} block, used to find the
// end of a function or class declaration.
func (s *scanner) skipToBodyEnd(i int) (int, error) {
	for i < s.n && s.src[i] != '{' {
		c := s.src[i]
		switch {
		case c == '\'' || c == '"':
			end, err := s.skipString(i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '/' && s.at(i+1, '/'):
			i = s.skipLineComment(i)
		case c == '/' && s.at(i+1, '*'):
			end, err := s.skipBlockComment(i)
			if err != nil {
				return 0, err
			}
			i = end
		default:
			i++
		}
	}
	if i >= s.n {
		return 0, s.errAt(i, "expected a body block")
	}

	depth := 0
	for i < s.n {
		c := s.src[i]
		switch {
		case c == '\'' || c == '"':
			end, err := s.skipString(i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '`':
			end, err := s.skipTemplate(i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '/' && s.at(i+1, '/'):
			i = s.skipLineComment(i)
		case c == '/' && s.at(i+1, '*'):
			end, err := s.skipBlockComment(i)
			if err != nil {
				return 0, err
			}
			i = end
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		default:
			i++
		}
	}
	return 0, s.errAt(i, "unterminated body block")
}

// parseNamespaceClause parses `* as name` starting at the `*`.
func (s *scanner) parseNamespaceClause(i int) (string, int, error) {
	j, err := s.skipGaps(i + 1)
	if err != nil {
		return "", 0, err
	}
	if !s.word(j, "as") {
		return "", 0, s.errAt(j, "expected `as` after `*` in import clause")
	}
	j, err = s.skipGaps(j + len("as"))
	if err != nil {
		return "", 0, err
	}
	name, next := s.parseIdent(j)
	if name == "" {
		return "", 0, s.errAt(j, "expected identifier after `* as`")
	}
	return name, next, nil
}

// parseNamedClause parses `{ a, b as c }` starting at the `{`. For imports,
// Binding.Name is the source module's export and Binding.Local the alias; for
// exports the roles flip.
func (s *scanner) parseNamedClause(i int, isExport bool) ([]Binding, int, error) {
	bindings := make([]Binding, 0, 2)
	j := i + 1

	for {
		var err error
		j, err = s.skipGaps(j)
		if err != nil {
			return nil, 0, err
		}
		if j >= s.n {
			return nil, 0, s.errAt(i, "unterminated import/export clause")
		}
		if s.src[j] == '}' {
			return bindings, j + 1, nil
		}

		name, next := s.parseIdent(j)
		if name == "" {
			return nil, 0, s.errAt(j, "malformed import/export clause")
		}

		alias := name
		j, err = s.skipGaps(next)
		if err != nil {
			return nil, 0, err
		}
		if s.word(j, "as") {
			j, err = s.skipGaps(j + len("as"))
			if err != nil {
				return nil, 0, err
			}
			alias, next = s.parseIdent(j)
			if alias == "" {
				return nil, 0, s.errAt(j, "expected identifier after `as`")
			}
			j, err = s.skipGaps(next)
			if err != nil {
				return nil, 0, err
			}
		}

		if isExport {
			// export { local as exported }
			bindings = append(bindings, Binding{Name: alias, Local: name})
		} else {
			// import { exported as local }
			bindings = append(bindings, Binding{Name: name, Local: alias})
		}

		if j < s.n && s.src[j] == ',' {
			j++
			continue
		}
		if j < s.n && s.src[j] == '}' {
			return bindings, j + 1, nil
		}
		return nil, 0, s.errAt(j, "malformed import/export clause")
	}
}

// * Low-level helpers

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= '0' && c <= '9') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (s *scanner) at(i int, c byte) bool {
	return i < s.n && s.src[i] == c
}

// word reports whether the keyword starts at i with identifier boundaries on
// both sides.
func (s *scanner) word(i int, kw string) bool {
	if i < 0 || i+len(kw) > s.n || s.src[i:i+len(kw)] != kw {
		return false
	}
	if i > 0 && isIdentChar(s.src[i-1]) {
		return false
	}
	return i+len(kw) >= s.n || !isIdentChar(s.src[i+len(kw)])
}

func (s *scanner) parseIdent(i int) (string, int) {
	if i >= s.n || !isIdentChar(s.src[i]) || (s.src[i] >= '0' && s.src[i] <= '9') {
		return "", i
	}
	start := i
	for i < s.n && isIdentChar(s.src[i]) {
		i++
	}
	return s.src[start:i], i
}

func (s *scanner) skipIdent(i int) int {
	for i < s.n && isIdentChar(s.src[i]) {
		i++
	}
	return i
}

// skipGaps skips whitespace and comments.
func (s *scanner) skipGaps(i int) (int, error) {
	for i < s.n {
		switch {
		case isSpace(s.src[i]):
			i++
		case s.src[i] == '/' && s.at(i+1, '/'):
			i = s.skipLineComment(i)
		case s.src[i] == '/' && s.at(i+1, '*'):
			end, err := s.skipBlockComment(i)
			if err != nil {
				return 0, err
			}
			i = end
		default:
			return i, nil
		}
	}
	return i, nil
}

// skipSemicolon consumes horizontal whitespace and a single trailing `;`.
func (s *scanner) skipSemicolon(i int) int {
	j := i
	for j < s.n && (s.src[j] == ' ' || s.src[j] == '\t') {
		j++
	}
	if j < s.n && s.src[j] == ';' {
		return j + 1
	}
	return i
}

func (s *scanner) parseStringLit(i int) (string, int, error) {
	quote := s.src[i]
	start := i + 1
	j := start
	for j < s.n && s.src[j] != quote {
		if s.src[j] == '\\' {
			j++
		}
		j++
	}
	if j >= s.n {
		return "", 0, s.errAt(i, "unterminated string literal")
	}
	return s.src[start:j], j + 1, nil
}

func (s *scanner) skipString(i int) (int, error) {
	_, end, err := s.parseStringLit(i)
	return end, err
}

func (s *scanner) skipTemplate(i int) (int, error) {
	start := i
	j := i + 1
	exprDepth := 0
	for j < s.n {
		c := s.src[j]
		switch {
		case c == '\\':
			j += 2
		case c == '`' && exprDepth == 0:
			return j + 1, nil
		case c == '$' && s.at(j+1, '{'):
			exprDepth++
			j += 2
		case c == '}' && exprDepth > 0:
			exprDepth--
			j++
		case exprDepth > 0 && (c == '\'' || c == '"'):
			end, err := s.skipString(j)
			if err != nil {
				return 0, err
			}
			j = end
		case exprDepth > 0 && c == '`':
			end, err := s.skipTemplate(j)
			if err != nil {
				return 0, err
			}
			j = end
		default:
			j++
		}
	}
	return 0, s.errAt(start, "unterminated template literal")
}

func (s *scanner) skipLineComment(i int) int {
	for i < s.n && s.src[i] != '\n' {
		i++
	}
	return i
}

func (s *scanner) skipBlockComment(i int) (int, error) {
	start := i
	i += 2
	for i+1 < s.n {
		if s.src[i] == '*' && s.src[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, s.errAt(start, "unterminated comment")
}
