package worktree

import (
	"github.com/stagehand-dev/stagehand/internal/plan"
)

// PrepareStage ensures a worktree exists for the stage's branch, based
// off the branch named by the stage's dependency (or defaultBase when
// the stage depends on nothing).
func (m *Manager) PrepareStage(stage plan.Stage, defaultBase string) (string, error) {
	base := plan.ResolveBase(stage.DependsOn, defaultBase)
	return m.Create(stage.Branch, base)
}
