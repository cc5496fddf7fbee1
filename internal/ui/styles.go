package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for the UI
type Theme struct {
	// Primary colors
	Primary   lipgloss.Color // prompt, highlights
	Secondary lipgloss.Color // headers, borders

	// Semantic colors
	Success lipgloss.Color
	Error   lipgloss.Color // error and cancelled states
	Muted   lipgloss.Color // hints, token badges
	Text    lipgloss.Color

	// Lesson colors
	English    lipgloss.Color // speakable English
	Vietnamese lipgloss.Color // explanations
	Tip        lipgloss.Color

	Border    lipgloss.Color
	UserMsgBg lipgloss.Color // background for the learner's messages
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#b8bb26"), // gruvbox green
		Secondary:  lipgloss.Color("#83a598"), // gruvbox aqua
		Success:    lipgloss.Color("#b8bb26"),
		Error:      lipgloss.Color("#fb4934"), // gruvbox red
		Muted:      lipgloss.Color("#928374"), // gruvbox gray
		Text:       lipgloss.Color("#ebdbb2"), // gruvbox foreground
		English:    lipgloss.Color("#fabd2f"), // gruvbox yellow
		Vietnamese: lipgloss.Color("#ebdbb2"),
		Tip:        lipgloss.Color("#d3869b"), // gruvbox purple
		Border:     lipgloss.Color("#83a598"),
		UserMsgBg:  lipgloss.Color("#3c3836"),
	}
}

// ThemeConfig mirrors config.ThemeConfig for applying overrides
type ThemeConfig struct {
	Primary    string
	Secondary  string
	Error      string
	Muted      string
	Text       string
	English    string
	Vietnamese string
	Tip        string
}

// ThemeFromConfig creates a theme with config overrides applied. A known
// preset is applied first.
func ThemeFromConfig(preset string, cfg ThemeConfig) *Theme {
	theme := DefaultTheme()
	if p := GetPresetTheme(preset); p != nil {
		apply(theme, p.Config)
	}
	apply(theme, cfg)
	return theme
}

func apply(theme *Theme, cfg ThemeConfig) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&theme.Primary, cfg.Primary)
	set(&theme.Secondary, cfg.Secondary)
	set(&theme.Border, cfg.Secondary) // border follows secondary
	set(&theme.Error, cfg.Error)
	set(&theme.Muted, cfg.Muted)
	set(&theme.Text, cfg.Text)
	set(&theme.English, cfg.English)
	set(&theme.Vietnamese, cfg.Vietnamese)
	set(&theme.Tip, cfg.Tip)
}

// currentTheme is the active theme instance
var currentTheme = DefaultTheme()

// GetTheme returns the current active theme
func GetTheme() *Theme {
	return currentTheme
}

// SetTheme sets the current active theme
func SetTheme(t *Theme) {
	currentTheme = t
}

// InitTheme initializes the theme from config
func InitTheme(preset string, cfg ThemeConfig) {
	SetTheme(ThemeFromConfig(preset, cfg))
}

// Status indicators
const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	TipIcon     = "💡"
	Cursor      = "▌"
)

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title       lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style

	English    lipgloss.Style
	Grammar    lipgloss.Style
	Vietnamese lipgloss.Style
	Tip        lipgloss.Style
	User       lipgloss.Style
	Role       lipgloss.Style
	Action     lipgloss.Style

	TableHeader lipgloss.Style
	TableBorder lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output
func NewStyles(output io.Writer) *Styles {
	return NewStyledWithTheme(output, currentTheme)
}

// forcedProfile overrides color detection when set.
var forcedProfile *termenv.Profile

// SetColorMode selects "auto" (detect from the output), "always" or
// "never".
func SetColorMode(mode string) error {
	var p termenv.Profile
	switch mode {
	case "", "auto":
		forcedProfile = nil
		return nil
	case "always":
		p = termenv.ANSI256
	case "never":
		p = termenv.Ascii
	default:
		return fmt.Errorf("invalid color mode %q (use auto, always or never)", mode)
	}
	forcedProfile = &p
	return nil
}

// NewStyledWithTheme creates styles with a specific theme
func NewStyledWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)
	if forcedProfile != nil {
		r.SetColorProfile(*forcedProfile)
	}

	return &Styles{
		renderer: r,
		theme:    theme,

		Title: r.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Error: r.NewStyle().
			Foreground(theme.Error),

		Success: r.NewStyle().
			Foreground(theme.Success),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Bold(true),

		Highlighted: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		English: r.NewStyle().
			Foreground(theme.English),

		Grammar: r.NewStyle().
			Italic(true).
			Foreground(theme.English),

		Vietnamese: r.NewStyle().
			Foreground(theme.Vietnamese),

		Tip: r.NewStyle().
			Foreground(theme.Tip),

		User: r.NewStyle().
			Foreground(theme.Text).
			Background(theme.UserMsgBg),

		Role: r.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Action: r.NewStyle().
			Foreground(theme.Primary),

		TableHeader: r.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		TableBorder: r.NewStyle().
			Foreground(theme.Border),
	}
}

// DefaultStyles returns styles for stdout
func DefaultStyles() *Styles {
	return NewStyles(os.Stdout)
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens s to maxLen display columns with an ellipsis.
func Truncate(s string, maxLen int) string {
	if runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "…")
}
