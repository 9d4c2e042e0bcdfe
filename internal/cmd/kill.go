package cmd

import (
	"github.com/spf13/cobra"
	"github.com/stagehand-dev/stagehand/internal/errs"
	"github.com/stagehand-dev/stagehand/internal/github"
	"github.com/stagehand-dev/stagehand/internal/teardown"
	"github.com/stagehand-dev/stagehand/internal/tmux"
)

var killCmd = &cobra.Command{
	Use:   "kill [session]",
	Short: "Kill a session and remove everything it owns",
	Long: `Kill a Stagehand session and clean up the resources it created:
the tmux session itself, its git worktrees, any pull requests it opened
(implement mode only), and its plan files.

Without a session name, the most recently launched session is used if
it is still alive; otherwise the single live session. With more than
one live session, the name must be given explicitly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKill,
}

var (
	killAll        bool
	killForce      bool
	killKeepRemote bool
)

func init() {
	killCmd.Flags().BoolVar(&killAll, "all", false, "kill every live session")
	killCmd.Flags().BoolVarP(&killForce, "force", "f", false, "skip confirmation prompt")
	killCmd.Flags().BoolVar(&killKeepRemote, "keep-remote", false, "leave pull requests and remote branches untouched")
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	if missing := tmux.CheckDependencies(); len(missing) > 0 {
		return errs.NewDependencyMissingError(missing...)
	}

	console := newConsole()
	log := newLogger("kill")
	defer log.Close()

	manager, err := newWorktreeManager()
	if err != nil {
		return err
	}

	var target string
	if len(args) == 1 {
		target = args[0]
	}

	orch := teardown.New(newRegistry(), github.NewClient(manager.Root()), manager, console, log)
	_, err = orch.Run(teardown.Options{
		Target:     target,
		All:        killAll,
		Force:      killForce,
		KeepRemote: killKeepRemote,
	})
	if errs.Is(err, errs.ErrDeclined) {
		console.Muted("Cancelled.")
		return nil
	}
	return err
}
