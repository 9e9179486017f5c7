package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webbundle",
	Short: "Bundles browser modules into a single script",
	Long: `This command compiles an entry file and its import graph into one
self-contained script that runs in the browser without a module loader.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
