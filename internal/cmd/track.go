package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/github"
	"github.com/stagehand-dev/stagehand/internal/kanban"
	"github.com/stagehand-dev/stagehand/internal/session"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record resources owned by the current session",
	Long: `Record resources as owned by the running session so teardown can
find them later. Meant to be called by the agent from inside a launched
session, where STAGEHAND_SESSION identifies the session; outside one,
the most recently launched session is used.`,
}

var trackPRCmd = &cobra.Command{
	Use:   "pr <number-or-url>",
	Short: "Record a pull request opened by this session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackPR,
}

var trackWorktreeCmd = &cobra.Command{
	Use:   "worktree <branch>",
	Short: "Record a worktree created by this session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackWorktree,
}

var trackPlanCmd = &cobra.Command{
	Use:   "plan <path>",
	Short: "Record a plan file authored by this session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackPlan,
}

var trackTaskCmd = &cobra.Command{
	Use:   "task <task-id> <status>",
	Short: "Move this session's board task to a new status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrackTask,
}

func init() {
	trackCmd.AddCommand(trackPRCmd)
	trackCmd.AddCommand(trackWorktreeCmd)
	trackCmd.AddCommand(trackPlanCmd)
	trackCmd.AddCommand(trackTaskCmd)
	rootCmd.AddCommand(trackCmd)
}

// currentTracker resolves which session is being tracked for: the one
// named by STAGEHAND_SESSION inside a launched session, else the most
// recently launched one.
func currentTracker(registry *session.Registry) (*session.Tracker, error) {
	if name := os.Getenv(sessionEnvVar); name != "" {
		return registry.Tracker(name)
	}
	hint, err := registry.Last()
	if err != nil {
		return nil, err
	}
	if hint == nil {
		return nil, fmt.Errorf("no session to track for (set %s or launch one)", sessionEnvVar)
	}
	return registry.Tracker(hint.Name)
}

func runTrackPR(cmd *cobra.Command, args []string) error {
	number, err := github.ParsePRIdentifier(args[0])
	if err != nil {
		return err
	}

	tracker, err := currentTracker(newRegistry())
	if err != nil {
		return err
	}
	if err := tracker.AddPR(number); err != nil {
		return err
	}
	newConsole().Muted("Tracked PR #%d", number)
	return nil
}

func runTrackWorktree(cmd *cobra.Command, args []string) error {
	tracker, err := currentTracker(newRegistry())
	if err != nil {
		return err
	}
	if err := tracker.AddWorktree(args[0]); err != nil {
		return err
	}
	newConsole().Muted("Tracked worktree for %s", args[0])
	return nil
}

func runTrackPlan(cmd *cobra.Command, args []string) error {
	tracker, err := currentTracker(newRegistry())
	if err != nil {
		return err
	}
	if err := tracker.AddPlanFile(args[0]); err != nil {
		return err
	}
	newConsole().Muted("Tracked plan file %s", args[0])
	return nil
}

func runTrackTask(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if !cfg.Kanban.Enabled || cfg.Kanban.ProjectID == "" {
		newConsole().Muted("Board mirroring is disabled; nothing to update.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	svc := kanban.NewService(kanban.NewMCPBoard(), cfg.Kanban.ProjectID)
	if err := svc.UpdateTaskStatus(ctx, args[0], args[1]); err != nil {
		return err
	}
	newConsole().Muted("Task %s -> %s", args[0], args[1])
	return nil
}
