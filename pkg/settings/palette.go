package settings

import "github.com/agroscan/agroscan/pkg/stats"

// Palette is the colour scheme for a theme.
type Palette struct {
	Background    string `json:"background"`
	Text          string `json:"text"`
	SecondaryText string `json:"secondaryText"`
	Card          string `json:"card"`
	Primary       string `json:"primary"`
	Success       string `json:"success"`
	Warning       string `json:"warning"`
	Danger        string `json:"danger"`
	Info          string `json:"info"`
	Border        string `json:"border"`
}

var palettes = map[Theme]Palette{
	Light: {
		Background: "#FFF9E5", Text: "#333333", SecondaryText: "#666666", Card: "#FFFFFF",
		Primary: "#F2C94C", Success: "#4CAF50", Warning: "#FFC107", Danger: "#F44336",
		Info: "#2196F3", Border: "#E0E0E0",
	},
	Dark: {
		Background: "#121212", Text: "#EEEEEE", SecondaryText: "#AAAAAA", Card: "#1E1E1E",
		Primary: "#F2C94C", Success: "#388E3C", Warning: "#FFA000", Danger: "#D32F2F",
		Info: "#1976D2", Border: "#424242",
	},
}

func PaletteFor(t Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Light]
}

func (s *State) Palette() Palette {
	return PaletteFor(s.Theme())
}

// BucketColor maps a stats bucket onto the palette.
func (p Palette) BucketColor(b stats.Bucket) string {
	switch b {
	case stats.Healthy:
		return p.Success
	case stats.Warning:
		return p.Warning
	default:
		return p.Danger
	}
}
