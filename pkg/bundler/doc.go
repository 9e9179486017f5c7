// Package bundler compiles a browser-script entry file and everything it
// statically depends on into a single self-contained bundle. The goal is a
// small, predictable pipeline: resolve specifiers the way the platform's
// package convention does, load each file exactly once per build, rewrite
// module interfaces into runtime-require form and wrap the result with a
// loader runtime that handles circular imports.
package bundler
