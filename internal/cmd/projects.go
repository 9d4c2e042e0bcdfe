package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/kanban"
)

var projectsCmd = &cobra.Command{
	Use:   "projects [name]",
	Short: "List kanban board projects",
	Long: `List the projects on the kanban board. With a name, resolve it
(case-insensitive substring match) and persist the matching project as
the active one for future commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProjects,
}

func init() {
	kanbanCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	console := newConsole()
	cfg := config.Get()

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	svc := kanban.NewService(kanban.NewMCPBoard(), cfg.Kanban.ProjectID)

	if len(args) == 1 {
		project, err := svc.ResolveProject(ctx, args[0])
		if err != nil {
			return err
		}
		if err := config.SaveProjectID(project.ID); err != nil {
			return err
		}
		console.Success("Active project set to %s (%s)", project.Name, project.ID)
		return nil
	}

	projects, err := svc.Projects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		console.Muted("No projects on the board.")
		return nil
	}

	console.Header("Projects")
	for _, p := range projects {
		marker := ""
		if p.ID == cfg.Kanban.ProjectID {
			marker = " (active)"
		}
		console.Item("%s  %s%s", p.Name, p.ID, marker)
	}
	return nil
}
