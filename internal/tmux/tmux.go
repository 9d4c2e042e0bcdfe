// Package tmux provides the process-session backend for Stagehand.
//
// Every agent session runs inside a detached tmux session on a dedicated
// "stagehand" socket, isolated from the user's own tmux server. Session
// names carry the tool prefix so discovery can distinguish Stagehand
// sessions from anything else living on the socket.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// SocketName is the tmux socket name used for all Stagehand sessions.
const SocketName = "stagehand"

// SessionPrefix is the naming-convention prefix for Stagehand sessions.
const SessionPrefix = "stagehand-"

// commandTimeout bounds every tmux query so a wedged server cannot hang
// discovery indefinitely.
const commandTimeout = 5 * time.Second

// Session describes one live tmux session as reported by the backend.
type Session struct {
	Name     string
	Attached bool
	Windows  int
}

// Command creates an exec.Cmd for tmux on the Stagehand socket.
func Command(args ...string) *exec.Cmd {
	fullArgs := append([]string{"-L", SocketName}, args...)
	return exec.Command("tmux", fullArgs...)
}

// CommandContext creates a context-aware exec.Cmd for tmux on the
// Stagehand socket.
func CommandContext(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-L", SocketName}, args...)
	return exec.CommandContext(ctx, "tmux", fullArgs...)
}

// CheckDependencies returns the names of required external tools that are
// missing, empty when tmux is available.
func CheckDependencies() []string {
	if err := exec.Command("tmux", "-V").Run(); err != nil {
		return []string{"tmux"}
	}
	return nil
}

// ListSessions returns all tmux sessions on the Stagehand socket whose
// name carries the Stagehand prefix. A missing or empty server is not an
// error: it yields an empty list.
func ListSessions() ([]Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := CommandContext(ctx, "list-sessions", "-F",
		"#{session_name}\t#{session_attached}\t#{session_windows}")
	output, err := cmd.Output()
	if err != nil {
		// tmux exits non-zero when no server is running on the socket.
		return nil, nil
	}

	var sessions []Session
	for line := range strings.SplitSeq(strings.TrimSpace(string(output)), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 3 || !strings.HasPrefix(parts[0], SessionPrefix) {
			continue
		}
		attached, _ := strconv.Atoi(parts[1])
		windows, _ := strconv.Atoi(parts[2])
		sessions = append(sessions, Session{
			Name:     parts[0],
			Attached: attached > 0,
			Windows:  windows,
		})
	}
	return sessions, nil
}

// SessionExists reports whether the named session is live on the socket.
func SessionExists(name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return CommandContext(ctx, "has-session", "-t", name).Run() == nil
}

// KillSession terminates the named session and its process tree.
// Killing an already-dead session is not an error.
func KillSession(name string) error {
	if !SessionExists(name) {
		return nil
	}
	GracefulShutdown(name, DefaultGracefulStopTimeout)
	return nil
}

// StartDetached creates a detached session running the given command.
// It returns immediately; the session's process is fire-and-forget.
func StartDetached(name string, env map[string]string, command ...string) error {
	args := []string{"new-session", "-d", "-s", name}
	if len(env) > 0 {
		args = append(args, "env")
		for k, v := range env {
			args = append(args, fmt.Sprintf("%s=%s", k, v))
		}
	}
	args = append(args, command...)

	if output, err := Command(args...).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create tmux session %s: %w\n%s", name, err, string(output))
	}
	return nil
}
