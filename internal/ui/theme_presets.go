package ui

import "sort"

// ThemePreset defines a named theme preset
type ThemePreset struct {
	Name        string
	Description string
	Config      ThemeConfig
}

// PresetThemeNames returns the preset names in a stable order
func PresetThemeNames() []string {
	names := make([]string, 0, len(PresetThemes))
	for name := range PresetThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetThemes contains all available theme presets
var PresetThemes = map[string]ThemePreset{
	"classic": {
		Name:        "classic",
		Description: "Plain ANSI colors for basic terminals",
		Config: ThemeConfig{
			Primary:    "10", // bright green
			Secondary:  "12", // bright blue
			Error:      "9",  // bright red
			Muted:      "8",  // gray
			Text:       "15", // white
			English:    "11", // bright yellow
			Vietnamese: "15",
			Tip:        "13", // bright magenta
		},
	},
	"dracula": {
		Name:        "dracula",
		Description: "Dark theme with vibrant colors",
		Config: ThemeConfig{
			Primary:    "#bd93f9", // purple
			Secondary:  "#8be9fd", // cyan
			Error:      "#ff5555", // red
			Muted:      "#6272a4", // comment grey
			Text:       "#f8f8f2", // foreground
			English:    "#f1fa8c", // yellow
			Vietnamese: "#f8f8f2",
			Tip:        "#ff79c6", // pink
		},
	},
	"nord": {
		Name:        "nord",
		Description: "Arctic, north-bluish color palette",
		Config: ThemeConfig{
			Primary:    "#88c0d0", // frost cyan
			Secondary:  "#81a1c1", // frost blue
			Error:      "#bf616a", // aurora red
			Muted:      "#4c566a", // polar night
			Text:       "#eceff4", // snow storm
			English:    "#ebcb8b", // aurora yellow
			Vietnamese: "#e5e9f0",
			Tip:        "#b48ead", // aurora purple
		},
	},
	"gruvbox": {
		Name:        "gruvbox",
		Description: "Retro groove color scheme (default)",
		Config: ThemeConfig{
			Primary:    "#b8bb26", // green
			Secondary:  "#83a598", // aqua
			Error:      "#fb4934", // red
			Muted:      "#928374", // gray
			Text:       "#ebdbb2", // foreground
			English:    "#fabd2f", // yellow
			Vietnamese: "#ebdbb2",
			Tip:        "#d3869b", // purple
		},
	},
}

// GetPresetTheme returns a preset by name, or nil if not found
func GetPresetTheme(name string) *ThemePreset {
	if preset, ok := PresetThemes[name]; ok {
		return &preset
	}
	return nil
}

// MatchPresetTheme finds a preset that matches the given config, or returns empty string
func MatchPresetTheme(cfg ThemeConfig) string {
	for name, preset := range PresetThemes {
		if preset.Config == cfg {
			return name
		}
	}
	return ""
}
