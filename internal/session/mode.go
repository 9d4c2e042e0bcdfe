// Package session tracks Stagehand's background agent sessions: their
// naming convention, the last-launched hint record, and the per-session
// tracking artifacts from which resource ownership is reconstructed.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/stagehand-dev/stagehand/internal/tmux"
)

// Mode describes what kind of run a session is executing. It is encoded
// in the session name and parsed exactly once, at the listing boundary;
// everything downstream works with the enum.
type Mode string

const (
	// ModePlan is a planning run that authors a TODO plan file.
	ModePlan Mode = "plan"
	// ModeImplement is an implementation run working through plan stages,
	// opening a stacked PR per stage.
	ModeImplement Mode = "implement"
	// ModeFix is a fix run addressing review feedback on an existing PR.
	ModeFix Mode = "fix"
	// ModeNone marks a session whose name matches no known mode token.
	ModeNone Mode = ""
)

// ParseMode extracts the mode from a session name of the form
// "stagehand-<mode>-<timestamp>". Unrecognized names yield ModeNone.
func ParseMode(sessionName string) Mode {
	rest, ok := strings.CutPrefix(sessionName, tmux.SessionPrefix)
	if !ok {
		return ModeNone
	}

	token, _, _ := strings.Cut(rest, "-")
	switch Mode(token) {
	case ModePlan, ModeImplement, ModeFix:
		return Mode(token)
	default:
		return ModeNone
	}
}

// ParseModeToken parses a bare mode token as given on the command line.
func ParseModeToken(token string) (Mode, error) {
	switch Mode(token) {
	case ModePlan, ModeImplement, ModeFix:
		return Mode(token), nil
	default:
		return ModeNone, fmt.Errorf("unknown mode %q (expected plan, implement, or fix)", token)
	}
}

// NewName builds a session name for the given mode using the launch
// timestamp, e.g. "stagehand-implement-20260828143015".
func NewName(mode Mode, now time.Time) string {
	return fmt.Sprintf("%s%s-%s", tmux.SessionPrefix, mode, now.Format("20060102150405"))
}
