package excel

import (
	"fmt"
	"strings"
)

// Theme selects the colours used by the dashboard report
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// palette holds the hex colours of a theme, without the leading #
type palette struct {
	Background string
	Text       string
	HeaderFill string
	HeaderText string
	Accent     string
	Muted      string
}

var palettes = map[Theme]palette{
	ThemeLight: {
		Background: "FFFFFF",
		Text:       "1F2937",
		HeaderFill: "4F46E5",
		HeaderText: "FFFFFF",
		Accent:     "10B981",
		Muted:      "E5E7EB",
	},
	ThemeDark: {
		Background: "111827",
		Text:       "F9FAFB",
		HeaderFill: "6366F1",
		HeaderText: "FFFFFF",
		Accent:     "34D399",
		Muted:      "374151",
	},
}

// ParseTheme accepts "light" or "dark"; an empty string means light
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ThemeLight, nil
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
	}
}

func (t Theme) palette() palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[ThemeLight]
}
