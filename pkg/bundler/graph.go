package bundler

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// ModuleCache owns every Module of one build invocation. It is created fresh
// per build and discarded at its end; nothing is shared across builds, which
// keeps concurrent builds in the same process independent of each other.
type ModuleCache struct {
	registry *KindRegistry
	resolver *Resolver
	modules  map[string]*Module
}

// NewModuleCache creates an empty cache bound to a kind registry and a
// resolver.
func NewModuleCache(registry *KindRegistry, resolver *Resolver) *ModuleCache {
	return &ModuleCache{
		registry: registry,
		resolver: resolver,
		modules:  make(map[string]*Module),
	}
}

// Len returns the number of loaded modules.
func (c *ModuleCache) Len() int {
	return len(c.modules)
}

// GetOrLoad returns the Module for the given path, loading it and its
// transitive dependencies on first request. The call is idempotent per build:
// repeated requests for the same canonical path return the same instance.
//
// The new module is inserted into the cache *before* its dependencies are
// loaded. This ordering is what makes circular import chains terminate: a
// request that loops back to an in-progress path gets the existing, possibly
// not yet fully populated, instance instead of recursing forever.
func (c *ModuleCache) GetOrLoad(ctx context.Context, path string) (*Module, error) {
	path, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	if mod, ok := c.modules[path]; ok {
		return mod, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	handler, err := c.registry.Handler(path)
	if err != nil {
		return nil, err
	}

	mod := &Module{
		Path: path,
		Kind: handler.Kind(),
		Raw:  raw,
	}
	c.modules[path] = mod

	if err := handler.Load(ctx, mod); err != nil {
		return nil, err
	}

	mod.Resolved = make(map[string]string, len(mod.ImportSpecifiers))
	for _, specifier := range mod.ImportSpecifiers {
		target, err := c.resolver.Resolve(mod.Path, specifier)
		if err != nil {
			return nil, err
		}

		dep, err := c.GetOrLoad(ctx, target)
		if err != nil {
			return nil, err
		}

		mod.Deps = append(mod.Deps, dep)
		mod.Resolved[specifier] = dep.Path
	}

	log(ctx).Debug().
		Str("path", path).
		Str("kind", mod.Kind).
		Int("deps", len(mod.Deps)).
		Msg("loaded module")

	return mod, nil
}

// Transform returns the module's runtime-ready script text, invoking the kind
// handler's transform on first call and memoizing the result. It must only be
// called once the whole graph is known.
func (c *ModuleCache) Transform(ctx context.Context, mod *Module) (string, error) {
	if mod.transformedSet {
		return mod.transformed, nil
	}

	handler, err := c.registry.Handler(mod.Path)
	if err != nil {
		return "", err
	}

	text, err := handler.Transform(ctx, mod)
	if err != nil {
		return "", eris.Wrapf(err, "failed to transform %s", mod.Path)
	}

	mod.transformed = text
	mod.transformedSet = true
	return text, nil
}
