package tmux

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultGracefulStopTimeout is the time to wait after sending Ctrl+C
// before force-killing the agent process tree during session shutdown.
const DefaultGracefulStopTimeout = 500 * time.Millisecond

// PanePID returns the PID of the process running in the session's pane.
// Returns 0 if the PID cannot be determined.
func PanePID(sessionName string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := CommandContext(ctx, "display-message", "-t", sessionName, "-p", "#{pane_pid}")
	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		return 0
	}
	return pid
}

// descendantPIDs returns all descendant PIDs of the given PID, found
// recursively via pgrep -P.
func descendantPIDs(pid int) []int {
	if pid <= 0 {
		return nil
	}

	output, err := exec.Command("pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}

	var descendants []int
	for line := range strings.SplitSeq(strings.TrimSpace(string(output)), "\n") {
		childPID, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		descendants = append(descendants, childPID)
		descendants = append(descendants, descendantPIDs(childPID)...)
	}
	return descendants
}

// isProcessAlive checks process existence with kill(pid, 0).
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// killProcessTree sends SIGKILL to a process and all its descendants,
// deepest children first to prevent orphaning.
func killProcessTree(pid int) {
	if pid <= 0 {
		return
	}

	descendants := descendantPIDs(pid)
	for i := len(descendants) - 1; i >= 0; i-- {
		if isProcessAlive(descendants[i]) {
			_ = syscall.Kill(descendants[i], syscall.SIGKILL)
		}
	}

	if isProcessAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

// GracefulShutdown performs a defense-in-depth shutdown of a session:
// capture the process tree, send Ctrl+C for a graceful agent stop, poll
// for exit, kill the tmux session, then force-kill any survivors.
func GracefulShutdown(sessionName string, gracefulTimeout time.Duration) {
	// Capture the tree while the session is alive so survivors can be
	// verified dead after tmux cleanup.
	var pids []int
	if panePID := PanePID(sessionName); panePID > 0 {
		pids = append([]int{panePID}, descendantPIDs(panePID)...)
	}

	_ = Command("send-keys", "-t", sessionName, "C-c").Run()

	if len(pids) > 0 {
		waitForProcessExit(pids[0], gracefulTimeout)
	}

	_ = Command("kill-session", "-t", sessionName).Run()

	for _, pid := range pids {
		if isProcessAlive(pid) {
			killProcessTree(pid)
		}
	}
}

// waitForProcessExit polls until the PID exits or the timeout elapses.
// Returns true if the process exited within the timeout.
func waitForProcessExit(pid int, timeout time.Duration) bool {
	if pid <= 0 || !isProcessAlive(pid) {
		return true
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return !isProcessAlive(pid)
		case <-ticker.C:
			if !isProcessAlive(pid) {
				return true
			}
		}
	}
}
