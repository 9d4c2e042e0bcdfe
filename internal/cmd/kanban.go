package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/tmux"
)

// kanbanSession is the tmux session the board service runs in. It does
// not use the mode-bearing session naming scheme, so listing and
// teardown never treat it as a coding session.
const kanbanSession = "stagehand-kanban"

var kanbanCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Run the kanban board service",
	Long: `Start or stop the vibe-kanban board service in a background tmux
session. The board mirrors stage tasks so progress is visible outside
the terminal.`,
	RunE: runKanbanStart,
}

var kanbanStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the board service in the background",
	RunE:  runKanbanStart,
}

var kanbanStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the board service",
	RunE:  runKanbanStop,
}

var kanbanUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Restart the board service on the latest release",
	Long: `Stop the board service and start it again. The service is launched
with npx against the latest published version, so a restart picks up
new releases.`,
	RunE: runKanbanUpdate,
}

func init() {
	kanbanCmd.AddCommand(kanbanStartCmd)
	kanbanCmd.AddCommand(kanbanStopCmd)
	kanbanCmd.AddCommand(kanbanUpdateCmd)
	rootCmd.AddCommand(kanbanCmd)
}

func runKanbanStart(cmd *cobra.Command, args []string) error {
	console := newConsole()
	cfg := config.Get()
	url := fmt.Sprintf("http://localhost:%d", cfg.Kanban.Port)

	if tmux.SessionExists(kanbanSession) {
		console.Info("Board service already running at %s", url)
		return nil
	}

	env := map[string]string{
		"PORT":    strconv.Itoa(cfg.Kanban.Port),
		"HOST":    "127.0.0.1",
		"BROWSER": "none",
		"CI":      "true", // suppress interactive npx prompts
	}
	if err := tmux.StartDetached(kanbanSession, env, "npx", "vibe-kanban@latest"); err != nil {
		return fmt.Errorf("failed to start board service: %w", err)
	}

	console.Success("Board service started at %s", url)
	console.Muted("Stop it with: stagehand kanban stop")
	return nil
}

func runKanbanUpdate(cmd *cobra.Command, args []string) error {
	if err := runKanbanStop(cmd, args); err != nil {
		return err
	}
	return runKanbanStart(cmd, args)
}

func runKanbanStop(cmd *cobra.Command, args []string) error {
	console := newConsole()

	if !tmux.SessionExists(kanbanSession) {
		console.Muted("Board service is not running.")
		return nil
	}
	if err := tmux.KillSession(kanbanSession); err != nil {
		return fmt.Errorf("failed to stop board service: %w", err)
	}
	console.Success("Board service stopped.")
	return nil
}
