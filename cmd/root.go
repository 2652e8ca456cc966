/*
Package cmd implements the command-line interface for the shotbox render
cluster: a gateway subcommand serving the JSON-RPC front and a worker
subcommand owning a browser engine.
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shotbox/shotbox/pkg/config"
)

var (
	envFile  string
	settings *config.Settings

	rootCmd = &cobra.Command{
		Use:   "shotbox",
		Short: "HTML screenshot service: JSON-RPC gateway, Redis queue, browser workers",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error

			if settings, err = config.Load(envFile); err != nil {
				return err
			}

			settings.ApplyLogLevel()
			return nil
		},
	}
)

/*
Execute is the main entry point for the shotbox CLI.
*/
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"path to an optional .env file; real environment variables win",
	)
}

var longRoot = `
shotbox renders caller-supplied HTML in a headless browser and returns a
rasterized image of the page, an element, or a pixel rectangle.

It runs as a disaggregated cluster: stateless gateways accept JSON-RPC 2.0
requests, a Redis broker carries the work, and stateful workers own the
browser processes.
`
