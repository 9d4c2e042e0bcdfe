// Package github wraps the gh CLI for the pull request operations
// teardown needs: inspecting, closing, and deleting the remote branch
// behind a PR.
package github

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/stagehand-dev/stagehand/internal/errs"
)

// PRInfo holds the fields of a pull request that teardown cares about.
type PRInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Branch string `json:"headRefName"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// Client runs pull request operations against the repository in dir.
type Client struct {
	dir string
}

func NewClient(dir string) *Client {
	return &Client{dir: dir}
}

// CheckDependencies returns the names of required external tools that
// are missing, empty when gh is available and authenticated enough to
// run.
func CheckDependencies() []string {
	if _, err := exec.LookPath("gh"); err != nil {
		return []string{"gh"}
	}
	return nil
}

// EnsureDependencies returns a DependencyMissingError when gh is not
// installed.
func EnsureDependencies() error {
	if missing := CheckDependencies(); len(missing) > 0 {
		return errs.NewDependencyMissingError(missing...)
	}
	return nil
}

func (c *Client) run(args ...string) ([]byte, error) {
	cmd := exec.Command("gh", args...)
	cmd.Dir = c.dir
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("gh %s: %s", args[0], string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("gh %s: %w", args[0], err)
	}
	return output, nil
}

// GetPR fetches a pull request by number.
func (c *Client) GetPR(number int) (*PRInfo, error) {
	output, err := c.run("pr", "view", strconv.Itoa(number),
		"--json", "number,title,headRefName,state,url")
	if err != nil {
		return nil, err
	}

	var info PRInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse gh pr view output: %w", err)
	}
	return &info, nil
}

// ClosePR closes a pull request, leaving comment on it when non-empty.
func (c *Client) ClosePR(number int, comment string) error {
	args := []string{"pr", "close", strconv.Itoa(number)}
	if comment != "" {
		args = append(args, "--comment", comment)
	}
	_, err := c.run(args...)
	return err
}

// DeleteBranch deletes a branch on the remote. A branch that is already
// gone counts as deleted.
func (c *Client) DeleteBranch(branch string) error {
	_, err := c.run("api", "-X", "DELETE",
		fmt.Sprintf("repos/{owner}/{repo}/git/refs/heads/%s", branch))
	if err != nil {
		// The ref may have been deleted when the PR merged.
		info, infoErr := c.branchExists(branch)
		if infoErr == nil && !info {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) branchExists(branch string) (bool, error) {
	cmd := exec.Command("gh", "api",
		fmt.Sprintf("repos/{owner}/{repo}/branches/%s", branch))
	cmd.Dir = c.dir
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
