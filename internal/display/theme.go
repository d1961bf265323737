package display

import "github.com/fatih/color"

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionBreak   = "━"
)

// Status symbols
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolPending = "○"
	SymbolPartial = "◐"
)

// Gutter indicators
const (
	GutterCommand = "▐"
	GutterOracle  = "◆"
	GutterDot     = "·"
)

// Theme holds all color functions for consistent styling
type Theme struct {
	// Orchestration output (prominent)
	Border func(a ...interface{}) string
	Label  func(a ...interface{}) string
	Text   func(a ...interface{}) string

	// Command output (subdued)
	CommandGutter func(a ...interface{}) string
	CommandText   func(a ...interface{}) string

	// Oracle output (distinct)
	OracleGutter func(a ...interface{}) string
	OracleText   func(a ...interface{}) string

	// Status indicators
	Success func(a ...interface{}) string
	Error   func(a ...interface{}) string
	Warning func(a ...interface{}) string
	Info    func(a ...interface{}) string

	// Structural elements
	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string
}

// DefaultTheme creates the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		// Orchestration - bright cyan for visibility
		Border: color.New(color.FgCyan).SprintFunc(),
		Label:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		Text:   color.New(color.FgWhite).SprintFunc(),

		// Command output - dimmer/gray to distinguish from orchestration
		CommandGutter: color.New(color.FgHiBlack).SprintFunc(),
		CommandText:   color.New(color.FgWhite).SprintFunc(),

		// Oracle output - magenta to stand apart from both
		OracleGutter: color.New(color.FgMagenta).SprintFunc(),
		OracleText:   color.New(color.FgHiWhite).SprintFunc(),

		// Status indicators
		Success: color.New(color.FgGreen).SprintFunc(),
		Error:   color.New(color.FgRed).SprintFunc(),
		Warning: color.New(color.FgYellow).SprintFunc(),
		Info:    color.New(color.FgCyan).SprintFunc(),

		// Structural
		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),
	}
}

// NoColorTheme creates a theme without colors (for --no-color flag or non-TTY)
func NoColorTheme() *Theme {
	plain := func(a ...interface{}) string {
		return color.New().SprintFunc()(a...)
	}
	return &Theme{
		Border:        plain,
		Label:         plain,
		Text:          plain,
		CommandGutter: plain,
		CommandText:   plain,
		OracleGutter:  plain,
		OracleText:    plain,
		Success:       plain,
		Error:         plain,
		Warning:       plain,
		Info:          plain,
		Bold:          plain,
		Dim:           plain,
		Separator:     plain,
	}
}
