package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/buildinfo"
)

func newVersionCmd(app *App) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build revision and the latest commit on GitHub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := buildinfo.Revision()
			fmt.Fprintf(cmd.OutOrStdout(), "hundred %s\n", rev)
			if offline || !app.cfg.CheckUpdates {
				return nil
			}
			sha, err := buildinfo.NewFetcher().LatestCommit(cmd.Context(), app.cfg.GitHubRepo)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "latest commit unavailable: %v\n", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "latest %s (%s)\n", buildinfo.Short(sha), app.cfg.GitHubRepo)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the GitHub lookup")
	return cmd
}
