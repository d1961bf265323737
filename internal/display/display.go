// Package display provides unified output formatting for the ppd CLI.
// It visually separates orchestration messages from package-manager
// output and oracle findings.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Display handles all CLI output with visual hierarchy
type Display struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// New creates a new Display instance
func New() *Display {
	return NewWithOptions(false)
}

// NewWithOptions creates a Display with configuration
func NewWithOptions(noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

// getTerminalWidth returns the terminal width, defaulting to 80
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

// Box prints a boxed message with a title
func (d *Display) Box(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	titleLen := len(title) + 4 // "─ TITLE "
	remainingWidth := width - titleLen

	topLine := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remainingWidth) + BoxTopRight
	fmt.Println(d.theme.Border(topLine))

	for _, line := range lines {
		paddedLine := d.padRight(line, width-2)
		fmt.Println(d.theme.Border(BoxVertical) + " " + d.theme.Text(paddedLine) + " " + d.theme.Border(BoxVertical))
	}

	bottomLine := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(d.theme.Border(bottomLine))
}

// Status prints a single-line status message with a timestamp
func (d *Display) Status(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		d.theme.Border(timestamp),
		symbol,
		d.theme.Text(message))
}

// Success prints a success message with green checkmark
func (d *Display) Success(message string) {
	d.Status(d.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with red X
func (d *Display) Error(message string) {
	d.Status(d.theme.Error(SymbolError), message)
}

// Warning prints a warning message with yellow triangle
func (d *Display) Warning(message string) {
	d.Status(d.theme.Warning(SymbolWarning), message)
}

// Info prints an info message with cyan indicator
func (d *Display) Info(label, message string) {
	d.Status(d.theme.Info(label+":"), message)
}

// Command prints an executed command line with its gutter
func (d *Display) Command(command string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("  %s %s %s\n",
		d.theme.CommandGutter(GutterCommand),
		d.theme.Dim(timestamp),
		d.theme.CommandText(command))
}

// CommandOutput prints captured output, wrapped and dimmed
func (d *Display) CommandOutput(output string) {
	lines := d.wrapText(output, d.termWidth-15)
	for _, line := range lines {
		fmt.Printf("  %s %s\n", d.theme.CommandGutter(GutterDot), d.theme.Dim(line))
	}
}

// Oracle prints oracle findings with distinct styling
func (d *Display) Oracle(text string) {
	lines := d.wrapText(text, d.termWidth-15)
	for i, line := range lines {
		if i == 0 {
			fmt.Printf("  %s %s\n", d.theme.OracleGutter(GutterOracle), d.theme.OracleText(line))
		} else {
			fmt.Printf("  %s %s\n", d.theme.OracleGutter(GutterDot), d.theme.OracleText(line))
		}
	}
}

// SectionBreak prints a horizontal separator for iteration boundaries
func (d *Display) SectionBreak() {
	width := d.termWidth
	fmt.Println(d.theme.Separator(strings.Repeat(SectionBreak, width)))
}

// Iteration prints an iteration banner with progress
func (d *Display) Iteration(current, max int, label string) {
	d.SectionBreak()
	fmt.Printf("Iteration %d/%d: %s\n", current, max, d.theme.Info(label))
	d.SectionBreak()
}

// Header prints a bold run header
func (d *Display) Header(title string) {
	fmt.Println(d.theme.Bold("=== " + title + " ==="))
	fmt.Println()
}

// Solved prints the resolution success banner
func (d *Display) Solved(iterations, consultations, webSearches int) {
	fmt.Printf("\n%s Resolution successful!\n", d.theme.Success(SymbolSuccess))
	fmt.Printf("   Iterations: %d, oracle consultations: %d, web searches: %d\n",
		iterations, consultations, webSearches)
}

// Exhausted prints the exhaustion banner with its reason
func (d *Display) Exhausted(reason string, consultations, webSearches int) {
	fmt.Printf("\n%s Resolution incomplete (%s)\n", d.theme.Error(SymbolError), reason)
	fmt.Printf("   Oracle consultations: %d, web searches: %d\n", consultations, webSearches)
	fmt.Println("\nConsider:")
	fmt.Println("   - Manual intervention may be required")
	fmt.Println("   - Try a clean virtual environment")
	fmt.Println("   - Check for system-level dependencies")
}

// Duration prints execution duration
func (d *Display) Duration(dur time.Duration) {
	fmt.Printf("   Duration: %s\n", dur.Round(time.Second))
}

// Theme returns the current theme for external use
func (d *Display) Theme() *Theme {
	return d.theme
}

// wrapText wraps text to specified width, returns up to 5 lines
func (d *Display) wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	text = strings.TrimSpace(text)
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len()+len(word)+1 > maxWidth {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
		}
		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	// Limit to 5 lines
	if len(lines) > 5 {
		lines = lines[:5]
		if len(lines[4]) > maxWidth-3 {
			lines[4] = lines[4][:maxWidth-3]
		}
		lines[4] = lines[4] + "..."
	}

	return lines
}

// padRight pads a string to the specified width
func (d *Display) padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate truncates text to max length with ellipsis
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses spaces
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
