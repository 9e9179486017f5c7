package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
)

// defaultDebounce is the quiet period after the last filesystem event before
// a rebuild starts. Editors often write, rename and chmod in quick
// succession; the window coalesces those into one rebuild.
const defaultDebounce = 300 * time.Millisecond

// WatchOptions extends Options with watch-mode parameters.
type WatchOptions struct {
	Options

	// Debounce overrides the default quiet period. Zero or negative values
	// fall back to the default.
	Debounce time.Duration
}

// Watch runs an initial build and then rebuilds whenever a file in one of the
// graph's directories changes. A failing build is logged and watching
// continues; the previous artifacts stay in place. Watch returns when the
// context is canceled.
func (b *Builder) Watch(ctx context.Context, opts WatchOptions) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "failed to create filesystem watcher")
	}
	defer watcher.Close()

	rebuild := func() {
		result, err := b.BuildResult(ctx, opts.Options)
		if err != nil {
			log(ctx).Error().Err(err).Msg("build failed")
		} else if err := b.writeResult(ctx, result, opts.OutputDir); err != nil {
			log(ctx).Error().Err(err).Msg("failed to write artifacts")
		}

		dirs := watchDirs(opts.Options, result)
		for _, dir := range dirs {
			// re-adding an already watched directory is a no-op
			if err := watcher.Add(dir); err != nil {
				log(ctx).Warn().Err(err).Str("path", dir).Msg("failed to watch directory")
			}
		}
	}

	rebuild()
	log(ctx).Info().Msg("watching for changes")

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.Contains(event.Name, string(filepath.Separator)+"node_modules"+string(filepath.Separator)) {
				continue
			}

			log(ctx).Debug().Str("path", event.Name).Msg("change detected")
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log(ctx).Warn().Err(err).Msg("watch error")

		case <-timerC:
			timer = nil
			timerC = nil
			rebuild()
		}
	}
}

// writeResult persists a completed build's artifacts, mirroring Build's
// write step for rebuilds that already have a Result in hand.
func (b *Builder) writeResult(ctx context.Context, result *Result, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return eris.Wrapf(err, "failed to create output directory %s", outputDir)
	}

	for _, artifact := range result.Artifacts {
		dest := filepath.Join(outputDir, artifact.Name)
		if err := os.WriteFile(dest, artifact.Content, 0644); err != nil {
			return eris.Wrapf(err, "failed to write %s", dest)
		}

		log(ctx).Info().
			Str("path", dest).
			Int("bytes", len(artifact.Content)).
			Msg("wrote artifact")
	}

	return nil
}

// watchDirs collects the directories contributing modules to the last build.
// When the build failed before producing a graph, the entry file's directory
// is watched so a fix triggers a retry.
func watchDirs(opts Options, result *Result) []string {
	seen := make(map[string]bool)
	var dirs []string

	add := func(dir string) {
		if dir != "" && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	add(filepath.Dir(opts.Entry))
	if opts.HTMLTemplate != "" {
		add(filepath.Dir(opts.HTMLTemplate))
	}
	if result != nil {
		for _, mod := range result.Modules {
			add(filepath.Dir(mod.Path))
		}
	}

	return dirs
}
