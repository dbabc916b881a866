package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build in debug mode, then rebuild on change and serve with live reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port, _ := cmd.Flags().GetInt("port")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			jobs, _ := cmd.Flags().GetInt("jobs")

			return c.app.Watch(cmd.Context(), app.WatchOptions{
				ConfigPath: configPath(cmd),
				Port:       port,
				NoCache:    noCache,
				Jobs:       jobs,
				OutputMode: outputMode(cmd),
			})
		},
	}
	cmd.Flags().IntP("port", "p", 0, "Port of the development server (default: serverPort from kiln.yaml)")
	addRunFlags(cmd)
	return cmd
}
