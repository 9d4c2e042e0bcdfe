package cmd

import (
	"os"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/logging"
	"github.com/stagehand-dev/stagehand/internal/session"
	"github.com/stagehand-dev/stagehand/internal/ui"
	"github.com/stagehand-dev/stagehand/internal/worktree"
)

// newLogger opens the shared log file under the state directory, tagged
// with the command that is running. Logging must never block a command,
// so setup failures degrade to a no-op logger.
func newLogger(command string) *logging.Logger {
	cfg := config.Get()
	log, err := logging.New(config.StateDir(), cfg.Logging.Level)
	if err != nil {
		return logging.Nop()
	}
	return log.WithCommand(command)
}

func newConsole() *ui.Console {
	return ui.Default()
}

func newRegistry() *session.Registry {
	return session.NewRegistry(config.StateDir())
}

// newWorktreeManager finds the repository from the working directory.
func newWorktreeManager() (*worktree.Manager, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return worktree.New(cwd)
}
