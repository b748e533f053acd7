package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// DiffStyle colors a quantity difference: green when equal, yellow when the
// other side has more, red when it has less.
func DiffStyle(diff int) lipgloss.Style {
	switch {
	case diff == 0:
		return StyleGreen
	case diff > 0:
		return StyleYellow
	default:
		return StyleRed
	}
}

// SignedDiff renders a difference with an explicit sign, colored by DiffStyle.
func SignedDiff(diff int) string {
	text := fmt.Sprintf("%+d", diff)
	if diff == 0 {
		text = "0"
	}
	return DiffStyle(diff).Render(text)
}

// TypeBadge labels a session type.
func TypeBadge(t domain.SessionType) string {
	switch t {
	case domain.SessionReceiving:
		return StyleBlue.Render("▼ Receiving")
	case domain.SessionCounting:
		return StylePurple.Render("# Counting")
	default:
		return StyleDim.Render(string(t))
	}
}

// SessionStatusPill shows whether a session still accepts contributions.
func SessionStatusPill(s *domain.Session) string {
	switch {
	case s.IsFinal:
		return StyleDim.Render("✔ Final")
	case !s.IsActive:
		return StyleDim.Render("✖ Closed")
	default:
		return StyleGreen.Render("● Active")
	}
}

// ErrorCodeBadge renders a SessionError code colored by its kind.
func ErrorCodeBadge(code domain.ErrorCode) string {
	if code == "" {
		return ""
	}
	switch code.Kind() {
	case domain.KindValidation:
		return StyleYellow.Render(string(code))
	case domain.KindStateConflict:
		return StylePurple.Render(string(code))
	default:
		return StyleRed.Render(string(code))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
