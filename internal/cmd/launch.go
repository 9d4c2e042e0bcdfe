package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/errs"
	"github.com/stagehand-dev/stagehand/internal/github"
	"github.com/stagehand-dev/stagehand/internal/kanban"
	"github.com/stagehand-dev/stagehand/internal/logging"
	"github.com/stagehand-dev/stagehand/internal/plan"
	"github.com/stagehand-dev/stagehand/internal/session"
	"github.com/stagehand-dev/stagehand/internal/tmux"
	"github.com/stagehand-dev/stagehand/internal/ui"
)

// sessionEnvVar names the environment variable carrying the session
// name into the launched agent, so `stagehand track` can find its own
// tracking directory.
const sessionEnvVar = "STAGEHAND_SESSION"

var launchCmd = &cobra.Command{
	Use:   "launch <mode> -- <agent command...>",
	Short: "Launch an agent session and record what it owns",
	Long: `Launch a background tmux session running the given agent command, in
one of the modes plan, implement, or fix. The session is recorded as
the most recently launched one and becomes the default kill target.

With --plan, the plan file is parsed and validated, a worktree is
prepared for every stage (based off its dependency's branch), and the
file and worktrees are tracked as owned by the new session. With
kanban mirroring enabled, a tagged board task is created per stage.

Fix mode takes --pr with a PR number or GitHub URL identifying the
review the session addresses.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

var (
	launchPlanFile string
	launchPR       string
)

func init() {
	launchCmd.Flags().StringVar(&launchPlanFile, "plan", "", "plan TODO file to prepare stages from")
	launchCmd.Flags().StringVar(&launchPR, "pr", "", "PR number or URL the fix session addresses")
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	mode, err := session.ParseModeToken(args[0])
	if err != nil {
		return err
	}
	agentCommand := args[1:]
	if len(agentCommand) == 0 {
		return fmt.Errorf("no agent command given (pass it after --)")
	}

	if missing := tmux.CheckDependencies(); len(missing) > 0 {
		return errs.NewDependencyMissingError(missing...)
	}
	if mode == session.ModeImplement || mode == session.ModeFix {
		if err := github.EnsureDependencies(); err != nil {
			return err
		}
	}

	console := newConsole()
	log := newLogger("launch")
	defer log.Close()

	var fixPR int
	if mode == session.ModeFix {
		if launchPR == "" {
			return fmt.Errorf("fix mode requires --pr")
		}
		fixPR, err = github.ParsePRIdentifier(launchPR)
		if err != nil {
			return err
		}
	}

	var stagePlan *plan.Plan
	if launchPlanFile != "" {
		stagePlan, err = plan.ParseFile(launchPlanFile)
		if err != nil {
			return err
		}
	}

	name := session.NewName(mode, time.Now())
	registry := newRegistry()
	tracker, err := registry.RecordLaunch(name, time.Now())
	if err != nil {
		return err
	}

	if stagePlan != nil {
		if err := prepareStages(tracker, stagePlan, console); err != nil {
			return err
		}
	}

	mirrorToBoard(cmd.Context(), console, log, mode, stagePlan, fixPR)

	env := map[string]string{sessionEnvVar: name}
	if err := tmux.StartDetached(name, env, agentCommand...); err != nil {
		return err
	}

	log.WithSession(name).Info("launched session", "mode", mode)
	console.Success("Launched %s", name)
	console.Muted("Attach with: tmux -L %s attach -t %s", tmux.SocketName, name)
	return nil
}

// prepareStages creates a worktree per stage based off its dependency
// and tracks the plan file and worktrees as owned by the session.
func prepareStages(tracker *session.Tracker, stagePlan *plan.Plan, console *ui.Console) error {
	manager, err := newWorktreeManager()
	if err != nil {
		return err
	}

	cfg := config.Get()
	for _, stage := range stagePlan.Stages {
		path, err := manager.PrepareStage(stage, cfg.Branch.DefaultBase)
		if err != nil {
			return fmt.Errorf("failed to prepare stage %d: %w", stage.Number, err)
		}
		if err := tracker.AddWorktree(stage.Branch); err != nil {
			return err
		}
		console.Item("Stage %d: %s -> %s", stage.Number, stage.Branch, path)
	}
	return tracker.AddPlanFile(stagePlan.Path)
}

// mirrorToBoard creates tagged board tasks for the launch when kanban
// mirroring is enabled. Board failures never block a launch.
func mirrorToBoard(ctx context.Context, console *ui.Console, log *logging.Logger, mode session.Mode, stagePlan *plan.Plan, fixPR int) {
	cfg := config.Get()
	if !cfg.Kanban.Enabled || cfg.Kanban.ProjectID == "" {
		return
	}

	svc := kanban.NewService(kanban.NewMCPBoard(), cfg.Kanban.ProjectID)
	boardCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	switch mode {
	case session.ModeFix:
		if _, err := svc.CreateTask(boardCtx, kanban.TagFix, fmt.Sprintf("PR #%d", fixPR), ""); err != nil {
			log.Warn("failed to create board task", "error", err)
			console.Warning("Board task not created: %v", err)
		}
	case session.ModeImplement:
		if stagePlan == nil {
			return
		}
		for _, stage := range stagePlan.Stages {
			title := fmt.Sprintf("Stage %d: %s", stage.Number, stage.Title)
			if _, err := svc.CreateTask(boardCtx, kanban.TagImpl, title, ""); err != nil {
				log.Warn("failed to create board task", "stage", stage.Number, "error", err)
			}
		}
	}
}
