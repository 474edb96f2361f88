package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	brand       lipgloss.Style
	brandBold   lipgloss.Style
	text        lipgloss.Style
	muted       lipgloss.Style
	errorText   lipgloss.Style
	status      lipgloss.Style
	inputPanel  lipgloss.Style
	menuItem    lipgloss.Style
	menuSelect  lipgloss.Style
	footer      lipgloss.Style
	modalFrame  lipgloss.Style
	fieldLabel  lipgloss.Style
	fieldActive lipgloss.Style
}

func newTheme() theme {
	brand := lipgloss.Color("#7F00FF")
	bg := lipgloss.Color("#14061f")
	panelBg := lipgloss.Color("#1e0b30")
	text := lipgloss.Color("#f1ecff")
	muted := lipgloss.Color("#a394c7")
	red := lipgloss.Color("#ff5f87")

	return theme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(brand).Bold(true),
		brand:      lipgloss.NewStyle().Foreground(brand),
		brandBold:  lipgloss.NewStyle().Foreground(brand).Bold(true),
		text:       lipgloss.NewStyle().Foreground(text),
		muted:      lipgloss.NewStyle().Foreground(muted),
		errorText:  lipgloss.NewStyle().Foreground(red),
		status:     lipgloss.NewStyle().Foreground(brand).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 1),
		menuItem: lipgloss.NewStyle().Foreground(text),
		menuSelect: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22062f")).
			Background(brand).
			Bold(true).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 1),
		modalFrame: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(brand).
			Padding(1, 2),
		fieldLabel:  lipgloss.NewStyle().Foreground(text).Bold(true),
		fieldActive: lipgloss.NewStyle().Foreground(brand).Bold(true),
	}
}

func lipglossBrandStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#7F00FF"))
}

var logoGlyphs = map[rune][]string{
	'S': {" ███ ", " ██  ", "███  "},
	'O': {" ███ ", "█   █", " ███ "},
	'K': {"█  █ ", "███  ", "█  █ "},
	'U': {"█   █", "█   █", " ███ "},
	'M': {"█ █ █", "██ ██", "█   █"},
	'I': {"███  ", " █   ", "███  "},
	'C': {" ███ ", "█    ", " ███ "},
	'L': {"█    ", "█    ", "████ "},
	' ': {"  ", "  ", "  "},
}

// renderLogoTitle builds the three-row block-glyph banner for the given
// text. Unknown characters render as spaces.
func renderLogoTitle(text string) string {
	rows := [3][]string{}
	for _, ch := range strings.ToUpper(text) {
		glyph, ok := logoGlyphs[ch]
		if !ok {
			glyph = logoGlyphs[' ']
		}
		for i := 0; i < 3; i++ {
			rows[i] = append(rows[i], glyph[i], "  ")
		}
	}
	lines := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		lines = append(lines, strings.Join(rows[i], ""))
	}
	return strings.Join(lines, "\n")
}

func truncate(text string, limit int) string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return text
	}
	runes := []rune(text)
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

func compactSingleLine(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	return truncate(flat, limit)
}

func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		current := ""
		for _, word := range strings.Fields(line) {
			if current == "" {
				current = word
				continue
			}
			if len(current)+1+len(word) > width {
				out = append(out, current)
				current = word
				continue
			}
			current += " " + word
		}
		out = append(out, current)
	}
	return strings.Join(out, "\n")
}
