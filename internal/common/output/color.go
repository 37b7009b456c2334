// Package output formats terminal messages and audit results with colors.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/obentoo/aptaudit/internal/model"
)

var (
	// Verdict colors
	Safe     = color.New(color.FgGreen)
	Risky    = color.New(color.FgRed, color.Bold)
	Unknown  = color.New(color.FgYellow)
	Breaking = color.New(color.FgMagenta, color.Bold)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// VerdictColor returns the color used for a verdict
func VerdictColor(v model.Verdict) *color.Color {
	switch v {
	case model.VerdictSafe:
		return Safe
	case model.VerdictRisky:
		return Risky
	default:
		return Unknown
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// FormatVerdict formats a verdict tag such as [risky]
func FormatVerdict(v model.Verdict) string {
	return VerdictColor(v).Sprintf("[%s]", v.String())
}

// FormatUpgrade formats "name installed -> candidate"
func FormatUpgrade(name, installed, candidate string) string {
	return Package.Sprint(name) + " " + Dim.Sprintf("%s -> %s", installed, candidate)
}

// FormatCandidate formats one assessed candidate as a single terminal line
func FormatCandidate(c model.UpgradeCandidate) string {
	line := FormatVerdict(c.Verdict) + " " + FormatUpgrade(c.Name, c.InstalledVersion, c.CandidateVersion)
	if c.Breaking {
		line += " " + Breaking.Sprint("breaking")
	}
	return line
}

// PrintSummary writes the per-verdict counts of a report
func PrintSummary(w io.Writer, s model.Summary) {
	fmt.Fprintf(w, "%s %d  %s %d  %s %d",
		Safe.Sprint("safe"), s.Safe,
		Risky.Sprint("risky"), s.Risky,
		Unknown.Sprint("unknown"), s.Unknown)
	if s.Breaking > 0 {
		fmt.Fprintf(w, "  %s %d", Breaking.Sprint("breaking"), s.Breaking)
	}
	fmt.Fprintln(w)
}

// Box prints a boxed message
func Box(title, content string) {
	fmt.Println()
	Header.Println("┌─ " + title + " ─")
	fmt.Println("│")
	fmt.Println("│  " + content)
	fmt.Println("│")
	Header.Println("└────────────────")
	fmt.Println()
}
