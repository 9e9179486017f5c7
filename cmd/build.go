package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ngld/webbundle/pkg/bundler"
)

var buildCmd = &cobra.Command{
	Use:   "build [entry]",
	Short: "Compiles the entry file and its imports into a bundle",
	Long: `Pass the entry file directly or run without arguments to use the
nearest webbundle.yaml. Flags override the values from the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.New(NewConsoleWriter())
		ctx := bundler.WithLogger(context.Background(), &logger)

		opts, err := resolveOptions(cmd, args)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to determine build options")
		}

		err = bundler.NewBuilder().Build(ctx, *opts)
		if err != nil {
			logger.Fatal().Err(err).Msg("Build failed")
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output directory (default \"dist\")")
	buildCmd.Flags().StringP("template", "t", "", "HTML template to inject script tags into")
	buildCmd.Flags().StringP("config", "c", "", "config file to use instead of searching for one")
	buildCmd.Flags().Bool("compress", false, "additionally emit brotli-compressed artifacts")

	rootCmd.AddCommand(buildCmd)
}

// resolveOptions combines the positional entry argument, the config file and
// the flags into the final build options. An explicit entry argument skips
// the config search entirely.
func resolveOptions(cmd *cobra.Command, args []string) (*bundler.Options, error) {
	var opts *bundler.Options

	if len(args) > 0 {
		opts = &bundler.Options{Entry: args[0], OutputDir: "dist"}
	} else {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, err
		}

		if configPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}

			configPath, err = bundler.FindConfig(wd)
			if err != nil {
				return nil, err
			}
		}

		opts, err = bundler.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("output") {
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return nil, err
		}
		opts.OutputDir = output
	}

	if cmd.Flags().Changed("template") {
		template, err := cmd.Flags().GetString("template")
		if err != nil {
			return nil, err
		}
		opts.HTMLTemplate = template
	}

	if cmd.Flags().Changed("compress") {
		compress, err := cmd.Flags().GetBool("compress")
		if err != nil {
			return nil, err
		}
		opts.Compress = compress
	}

	return opts, nil
}
