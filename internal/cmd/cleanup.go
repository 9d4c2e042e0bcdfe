package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/errs"
	"github.com/stagehand-dev/stagehand/internal/kanban"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [project]",
	Short: "Delete all board tasks this tool created",
	Long: `Find and delete every kanban board task carrying the [impl] or [fix]
title tag, across all status columns. Tasks created by anyone else are
never touched.

Without a project argument, the configured active project is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanup,
}

var cleanupForce bool

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "skip confirmation prompt")
	kanbanCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	console := newConsole()
	log := newLogger("cleanup")
	defer log.Close()

	cfg := config.Get()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	svc := kanban.NewService(kanban.NewMCPBoard(), cfg.Kanban.ProjectID)

	if len(args) == 1 {
		project, err := svc.ResolveProject(ctx, args[0])
		if err != nil {
			return err
		}
		console.Muted("Project: %s", project.Name)
		svc.ProjectID = project.ID
	}
	if !svc.Configured() {
		console.Error("No board project configured.")
		console.Muted("Run `stagehand kanban projects <name>` to pick one.")
		return errs.NewNotFoundError("project", "", nil)
	}

	console.Muted("Scanning for tagged tasks...")
	grouped, order, err := svc.OwnedTasks(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, status := range order {
		total += len(grouped[status])
	}
	if total == 0 {
		console.Info("No tagged tasks found.")
		return nil
	}

	console.Warning("Found %d tagged task(s):", total)
	for _, status := range order {
		console.Muted("  %s:", status)
		for _, task := range grouped[status] {
			console.Item("%s (%s)", task.Title, task.ID)
		}
	}

	if !cleanupForce {
		if !console.Confirm("Delete all %d task(s)?", total) {
			console.Muted("Cancelled.")
			return nil
		}
	}

	var all []kanban.Task
	for _, status := range order {
		all = append(all, grouped[status]...)
	}
	result := svc.DeleteTasks(ctx, all)

	for _, task := range result.Deleted {
		console.Removed("Deleted: %s", task.Title)
		log.Info("deleted board task", "task", task.ID, "title", task.Title)
	}
	for _, task := range result.Failed {
		console.Error("Failed to delete: %s", task.Title)
		log.Warn("failed to delete board task", "task", task.ID)
	}

	console.Println()
	if len(result.Deleted) > 0 {
		console.Success("Deleted %d task(s).", len(result.Deleted))
	}
	if len(result.Failed) > 0 {
		console.Error("Failed to delete %d task(s).", len(result.Failed))
	}
	return nil
}
