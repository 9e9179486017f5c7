// Package jsparse is the language front-end for the bundler. It parses a
// script's module-interface syntax (top-level import and export statements)
// into a statement tree with byte offsets and rewrites that tree into
// runtime-require form. Everything between those statements is treated as
// opaque script text and passed through unchanged.
package jsparse
