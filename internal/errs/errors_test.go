package errs

import (
	"fmt"
	"strings"
	"testing"
)

func TestDependencyMissingError(t *testing.T) {
	err := NewDependencyMissingError("tmux", "gh (GitHub CLI)")

	if !Is(err, ErrDependencyMissing) {
		t.Error("errors.Is(err, ErrDependencyMissing) = false, want true")
	}
	if !strings.Contains(err.Error(), "tmux") {
		t.Errorf("Error() = %q, should name the missing tool", err.Error())
	}
	if !strings.Contains(err.Error(), "gh (GitHub CLI)") {
		t.Errorf("Error() = %q, should name all missing tools", err.Error())
	}
}

func TestAmbiguousTargetError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AmbiguousTargetError
		contains []string
	}{
		{
			name:     "no name supplied",
			err:      NewAmbiguousTargetError("session", "", []string{"stagehand-implement-1", "stagehand-fix-2"}),
			contains: []string{"none specified", "stagehand-implement-1", "stagehand-fix-2"},
		},
		{
			name:     "partial name supplied",
			err:      NewAmbiguousTargetError("project", "repo", []string{"megarepo", "megarepo-docs"}),
			contains: []string{`"repo"`, "megarepo", "megarepo-docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, ErrAmbiguousTarget) {
				t.Error("errors.Is(err, ErrAmbiguousTarget) = false, want true")
			}
			for _, want := range tt.contains {
				if !strings.Contains(tt.err.Error(), want) {
					t.Errorf("Error() = %q, want substring %q", tt.err.Error(), want)
				}
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("session", "stagehand-implement-99", []string{"stagehand-fix-1"})

	if !Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if len(err.Available) != 1 || err.Available[0] != "stagehand-fix-1" {
		t.Errorf("Available = %v, want the live session list", err.Available)
	}
}

func TestWrappedSentinelSurvivesFmtErrorf(t *testing.T) {
	err := fmt.Errorf("resolving target: %w", NewNotFoundError("project", "x", nil))
	if !Is(err, ErrNotFound) {
		t.Error("wrapped NotFoundError no longer matches ErrNotFound")
	}

	var nf *NotFoundError
	if !As(err, &nf) {
		t.Fatal("errors.As failed to extract NotFoundError")
	}
	if nf.Name != "x" {
		t.Errorf("Name = %q, want %q", nf.Name, "x")
	}
}
