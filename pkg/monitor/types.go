// Package monitor implements the remote rendering backend for CC:Tweaked
// monitor peripherals: the cell/color/position/size data model, the
// coalesced wire-event draw algorithm, and the JSON wire encoding.
package monitor

import "fmt"

// Color is one of the sixteen colors a CC:Tweaked monitor can display, plus
// the neutral Reset sentinel meaning "use the default for this role".
type Color int

const (
	ColorReset Color = iota
	White
	Orange
	Magenta
	LightBlue
	Yellow
	Lime
	Pink
	Gray
	Cyan
	Purple
	Blue
	Brown
	Green
	Red
	Black
)

var colorNames = [...]string{
	ColorReset: "Reset",
	White:      "White",
	Orange:     "Orange",
	Magenta:    "Magenta",
	LightBlue:  "LightBlue",
	Yellow:     "Yellow",
	Lime:       "Lime",
	Pink:       "Pink",
	Gray:       "Gray",
	Cyan:       "Cyan",
	Purple:     "Purple",
	Blue:       "Blue",
	Brown:      "Brown",
	Green:      "Green",
	Red:        "Red",
	Black:      "Black",
}

func (c Color) String() string {
	if int(c) >= 0 && int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "Reset"
}

// Valid reports whether c is one of the sixteen named colors (excluding the
// Reset sentinel, which is only meaningful as a Cell field, never on the
// wire).
func (c Color) Valid() bool {
	return c >= White && c <= Black
}

// MarshalJSON encodes the color as its bare name, e.g. "White".
func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", c.String())), nil
}

// effectiveFg resolves a cell's foreground: Reset coerces to White, and any
// value outside the sixteen named colors also coerces to White.
func effectiveFg(c Color) Color {
	if c.Valid() {
		return c
	}
	return White
}

// effectiveBg resolves a cell's background: Reset coerces to Black, and any
// value outside the sixteen named colors also coerces to Black.
func effectiveBg(c Color) Color {
	if c.Valid() {
		return c
	}
	return Black
}

// Position is a zero-based (x, y) grid coordinate, x advancing right and y
// advancing down from the top-left origin.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a monitor's width/height in character cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Cell is a single screen position's desired visual state. Style flags
// beyond fg/bg exist on the wider immediate-mode surface but are not
// honored by the monitor and are discarded silently by the backend.
type Cell struct {
	Char rune
	Fg   Color
	Bg   Color
}
