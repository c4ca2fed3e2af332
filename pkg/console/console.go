// Package console prints the human-facing progress lines of a run.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Hint is printed after a failed command.
const Hint = "If you hit rebase conflicts, fix them and run again, or force push manually."

// Console writes progress lines to a single writer.
type Console struct {
	out     io.Writer
	label   lipgloss.Style
	command lipgloss.Style
	failure lipgloss.Style
	success lipgloss.Style
	hint    lipgloss.Style
	warn    lipgloss.Style
}

// New returns a Console writing to out. Colour is used only when out is
// a terminal and NO_COLOR is unset.
func New(out io.Writer) *Console {
	return NewWithColor(out, ColorEnabled(out))
}

// NewWithColor returns a Console that never styles output when color is false.
func NewWithColor(out io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Console{
		out:     out,
		label:   r.NewStyle().Bold(true),
		command: r.NewStyle().Foreground(lipgloss.Color("6")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		hint:    r.NewStyle().Foreground(lipgloss.Color("3")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// ColorEnabled reports whether out is a colour-capable terminal.
func ColorEnabled(out io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer is where subprocess output is streamed.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Banner prints the repository, branch and commit message of the run.
func (c *Console) Banner(dir, branch, message string) {
	fmt.Fprintf(c.out, "\n📂 %s %s\n", c.label.Render("Repo:"), dir)
	fmt.Fprintf(c.out, "🌿 %s %s\n", c.label.Render("Branch:"), branch)
	fmt.Fprintf(c.out, "📝 %s %s\n\n", c.label.Render("Commit:"), message)
}

// Step echoes a command before it runs.
func (c *Console) Step(command string) {
	fmt.Fprintf(c.out, "\n➡️ %s\n", c.command.Render(command))
}

// Failed names the command that stopped the run.
func (c *Console) Failed(command string) {
	fmt.Fprintf(c.out, "\n❌ %s %s\n", c.failure.Render("Command failed:"), command)
}

// Hint prints the recovery hint.
func (c *Console) Hint() {
	fmt.Fprintf(c.out, "💡 %s\n", c.hint.Render(Hint))
}

// Success prints the closing banner.
func (c *Console) Success() {
	fmt.Fprintf(c.out, "\n✅ %s\n", c.success.Render("Push complete!"))
}

// Warn prints a non-fatal warning.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintf(c.out, "⚠️  %s\n", c.warn.Render(fmt.Sprintf(format, args...)))
}
