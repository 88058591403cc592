package points

import "sort"

// Palette maps an air index level to the marker colour used on the map.
type Palette map[string]string

// DefaultPalette returns the six air index levels reported by the sensors.
func DefaultPalette() Palette {
	return Palette{
		"VERY_GOOD":    "green",
		"GOOD":         "lightgreen",
		"SATISFACTORY": "orange",
		"MODERATE":     "red",
		"BAD":          "darkred",
		"VERY_BAD":     "black",
	}
}

// Color returns the colour for a category. Unknown categories report false.
func (p Palette) Color(category string) (string, bool) {
	color, ok := p[category]
	return color, ok
}

// Categories returns the palette keys in sorted order.
func (p Palette) Categories() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
