package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every asset once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			release, _ := cmd.Flags().GetBool("release")
			return c.runBuild(cmd, release)
		},
	}
	cmd.Flags().Bool("release", false, "Minify, strip comments and emit source maps")
	cmd.Flags().Bool("debug", false, "Readable output without source maps (default)")
	cmd.MarkFlagsMutuallyExclusive("release", "debug")
	addRunFlags(cmd)
	return cmd
}

func (c *CLI) newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Build every asset once in debug mode (alias for build --debug)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runBuild(cmd, false)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, release bool) error {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	jobs, _ := cmd.Flags().GetInt("jobs")

	mode := domain.ModeDebug
	if release {
		mode = domain.ModeRelease
	}

	return c.app.Build(cmd.Context(), app.BuildOptions{
		ConfigPath: configPath(cmd),
		Mode:       mode,
		NoCache:    noCache,
		Jobs:       jobs,
		OutputMode: outputMode(cmd),
	})
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the build state and force every transform")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of concurrent transforms (default: number of CPUs)")
}
