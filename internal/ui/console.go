// Package ui provides the console output sink for Stagehand commands.
// The Console is injected into services rather than accessed as a global,
// so orchestration logic can be tested against a buffer and confirmation
// prompts can be scripted.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors shared by all console output.
var (
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	AccentColor    = lipgloss.Color("#60A5FA") // Blue
)

// Convenience styles for console text.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	successStyle = lipgloss.NewStyle().Foreground(SecondaryColor)
	warningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	accentStyle  = lipgloss.NewStyle().Foreground(AccentColor)
)

// Console writes styled output to an injected writer and reads
// confirmation responses from an injected reader.
type Console struct {
	out io.Writer
	in  *bufio.Reader
}

// New creates a Console over the given writer and reader.
func New(out io.Writer, in io.Reader) *Console {
	return &Console{out: out, in: bufio.NewReader(in)}
}

// Default returns a Console bound to stdout/stdin.
func Default() *Console {
	return New(os.Stdout, os.Stdin)
}

// Printf writes formatted, unstyled text.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes unstyled text followed by a newline.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Header writes a bold section header with a rule beneath it.
func (c *Console) Header(title string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, headerStyle.Render(title))
	fmt.Fprintln(c.out, mutedStyle.Render(strings.Repeat("─", len(title))))
}

// Info writes an informational line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintln(c.out, accentStyle.Render(fmt.Sprintf(format, args...)))
}

// Success writes a green checkmarked line.
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.out, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning writes an amber warning line.
func (c *Console) Warning(format string, args ...any) {
	fmt.Fprintln(c.out, warningStyle.Render("! "+fmt.Sprintf(format, args...)))
}

// Error writes a red error line.
func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.out, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Item writes an indented bullet line.
func (c *Console) Item(format string, args ...any) {
	fmt.Fprintf(c.out, "  • %s\n", fmt.Sprintf(format, args...))
}

// Removed writes an indented line marking a removed resource.
func (c *Console) Removed(format string, args ...any) {
	fmt.Fprintf(c.out, "  %s %s\n", errorStyle.Render("✗"), fmt.Sprintf(format, args...))
}

// Muted writes a dimmed line.
func (c *Console) Muted(format string, args ...any) {
	fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Confirm asks a yes/no question and returns true only on an affirmative
// answer. The default is no: empty input, EOF, or anything other than
// "y"/"yes" declines.
func (c *Console) Confirm(format string, args ...any) bool {
	fmt.Fprintf(c.out, "\n%s [y/N] ", fmt.Sprintf(format, args...))

	response, err := c.in.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
