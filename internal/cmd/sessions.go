package cmd

import (
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live Stagehand sessions",
	Long: `List the Stagehand tmux sessions currently running, with their mode,
attachment state, and the number of resources each one is tracking.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	console := newConsole()
	registry := newRegistry()

	live, err := registry.List()
	if err != nil {
		return err
	}
	if len(live) == 0 {
		console.Muted("No live sessions.")
		return nil
	}

	console.Header("Sessions")
	for _, info := range live {
		attached := ""
		if info.Attached {
			attached = " (attached)"
		}

		tracked := 0
		if index, err := registry.Resources(info.Name); err == nil {
			tracked = index.Total()
		}
		console.Item("%s  mode=%s  windows=%d  resources=%d%s",
			info.Name, info.Mode, info.Windows, tracked, attached)
	}
	return nil
}
