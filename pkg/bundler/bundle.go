package bundler

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

// BundleName is the conventional name of the emitted script artifact.
const BundleName = "bundle.js"

// HTMLName is the name of the emitted HTML shell when a template is supplied.
const HTMLName = "index.html"

// Artifact is one named output file of a build.
type Artifact struct {
	Name    string
	Content []byte
}

// Options describes one build invocation.
type Options struct {
	// Entry is the path of the entry source file.
	Entry string

	// OutputDir is the directory the artifacts are written to.
	OutputDir string

	// HTMLTemplate optionally points at an HTML file that gets a script tag
	// injected for every emitted script artifact.
	HTMLTemplate string

	// Compress additionally emits a brotli-compressed sibling for every
	// script artifact.
	Compress bool
}

// Result holds everything a completed build produced, before or instead of
// writing it to disk.
type Result struct {
	Artifacts []Artifact
	Modules   []*Module
}

// Builder runs builds. A Builder holds no per-build state and can run any
// number of sequential builds; every invocation creates its own module cache.
type Builder struct {
	registry *KindRegistry
	resolver *Resolver
}

// NewBuilder creates a Builder with the default kind registry.
func NewBuilder() *Builder {
	return &Builder{
		registry: DefaultKindRegistry(),
		resolver: &Resolver{},
	}
}

// Registry exposes the kind registry so callers can register additional
// module kinds before building.
func (b *Builder) Registry() *KindRegistry {
	return b.registry
}

// BuildResult compiles the entry file's dependency closure into the final
// artifacts without writing anything. Any failure aborts the whole build; a
// partially completed graph is never bundled.
func (b *Builder) BuildResult(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	buildID := nanoid.New()
	logger := log(ctx).With().Str("build", buildID).Logger()
	ctx = WithLogger(ctx, &logger)

	cache := NewModuleCache(b.registry, b.resolver)
	root, err := cache.GetOrLoad(ctx, opts.Entry)
	if err != nil {
		return nil, err
	}

	modules := collectModules(root)
	logger.Info().
		Str("path", root.Path).
		Int("modules", len(modules)).
		Msg("dependency graph complete")

	script, err := b.assemble(ctx, cache, root, modules)
	if err != nil {
		return nil, err
	}

	artifacts := []Artifact{{Name: BundleName, Content: script}}

	if opts.HTMLTemplate != "" {
		template, err := os.ReadFile(opts.HTMLTemplate)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to read %s", opts.HTMLTemplate)
		}

		page, err := injectScriptTags(template, scriptNames(artifacts))
		if err != nil {
			return nil, eris.Wrapf(err, "failed to process template %s", opts.HTMLTemplate)
		}
		artifacts = append(artifacts, Artifact{Name: HTMLName, Content: page})
	}

	if opts.Compress {
		compressed, err := compressArtifacts(artifacts)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, compressed...)
	}

	logger.Info().
		Int("artifacts", len(artifacts)).
		Dur("elapsed", time.Since(start)).
		Msg("bundle assembled")

	return &Result{Artifacts: artifacts, Modules: modules}, nil
}

// Build runs a full build and persists the artifacts to the output
// directory. Artifacts are only written once the entire bundle has been
// assembled, so a failing build leaves no partial output behind.
func (b *Builder) Build(ctx context.Context, opts Options) error {
	result, err := b.BuildResult(ctx, opts)
	if err != nil {
		return err
	}
	return b.writeResult(ctx, result, opts.OutputDir)
}

// assemble serializes the module set into the runtime-loadable map and wraps
// it with the loader runtime. The map contains exactly one entry per distinct
// canonical path, keyed by that path, with a factory function taking
// (exports, require) as its value.
func (b *Builder) assemble(ctx context.Context, cache *ModuleCache, root *Module, modules []*Module) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(runtimePrelude)
	sb.WriteString("({\n")

	for idx, mod := range modules {
		body, err := cache.Transform(ctx, mod)
		if err != nil {
			return nil, err
		}

		if idx > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString(quoteJS(mod.Path))
		sb.WriteString(": function (exports, require) {\n")
		sb.WriteString(body)
		sb.WriteString("\n}")
	}

	sb.WriteString("\n}, ")
	sb.WriteString(quoteJS(root.Path))
	sb.WriteString(");\n")

	return []byte(sb.String()), nil
}

// collectModules gathers the deduplicated set of modules reachable from the
// root via depth-first traversal. Shared or cyclically reachable modules
// appear exactly once, the root first.
func collectModules(root *Module) []*Module {
	var order []*Module
	seen := make(map[string]bool)

	var visit func(*Module)
	visit = func(mod *Module) {
		if seen[mod.Path] {
			return
		}
		seen[mod.Path] = true
		order = append(order, mod)

		for _, dep := range mod.Deps {
			visit(dep)
		}
	}
	visit(root)

	return order
}

func scriptNames(artifacts []Artifact) []string {
	var names []string
	for _, artifact := range artifacts {
		if strings.HasSuffix(artifact.Name, ".js") {
			names = append(names, artifact.Name)
		}
	}
	return names
}

// compressArtifacts produces a brotli sibling for every script artifact.
func compressArtifacts(artifacts []Artifact) ([]Artifact, error) {
	var compressed []Artifact
	for _, artifact := range artifacts {
		if !strings.HasSuffix(artifact.Name, ".js") {
			continue
		}

		var buf strings.Builder
		writer := brotli.NewWriterLevel(&buf, brotli.BestCompression)
		if _, err := writer.Write(artifact.Content); err != nil {
			return nil, eris.Wrapf(err, "failed to compress %s", artifact.Name)
		}
		if err := writer.Close(); err != nil {
			return nil, eris.Wrapf(err, "failed to compress %s", artifact.Name)
		}

		compressed = append(compressed, Artifact{
			Name:    artifact.Name + ".br",
			Content: []byte(buf.String()),
		})
	}
	return compressed, nil
}
