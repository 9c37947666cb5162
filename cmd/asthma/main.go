// Command asthma serves the asthma prediction form and offers the same
// prediction from the terminal.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "asthma",
		Short:        "Asthma prediction from patient details",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(formCmd(&configPath))
	rootCmd.AddCommand(predictCmd(&configPath))
	rootCmd.AddCommand(fieldsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
