package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ngld/webbundle/pkg/bundler"
)

var watchCmd = &cobra.Command{
	Use:   "watch [entry]",
	Short: "Rebuilds the bundle whenever a source file changes",
	Long: `Runs an initial build and then watches every directory that
contributed a module to the build. A failing rebuild keeps the previous
artifacts and watching continues. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.New(NewConsoleWriter())
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = bundler.WithLogger(ctx, &logger)

		opts, err := resolveOptions(cmd, args)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to determine build options")
		}

		debounce, err := cmd.Flags().GetDuration("debounce")
		if err != nil {
			return err
		}

		err = bundler.NewBuilder().Watch(ctx, bundler.WatchOptions{
			Options:  *opts,
			Debounce: debounce,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Watch failed")
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringP("output", "o", "", "output directory (default \"dist\")")
	watchCmd.Flags().StringP("template", "t", "", "HTML template to inject script tags into")
	watchCmd.Flags().StringP("config", "c", "", "config file to use instead of searching for one")
	watchCmd.Flags().Bool("compress", false, "additionally emit brotli-compressed artifacts")
	watchCmd.Flags().Duration("debounce", 0, "quiet period before a rebuild starts (default 300ms)")

	rootCmd.AddCommand(watchCmd)
}
