package board

import (
	"fmt"
	"strings"
)

type Color string

const (
	Red    Color = "RED"
	Blue   Color = "BLUE"
	Green  Color = "GREEN"
	Yellow Color = "YELLOW"
)

// Colors is the seating order; players receive colors by join order.
var Colors = [...]Color{Red, Blue, Green, Yellow}

const (
	RingSize       = 52
	RingStretch    = 51
	HomeStretch    = 5
	PathLength     = RingStretch + HomeStretch + 1
	TokensPerColor = 4
	ExitRoll       = 6
	MinDice        = 1
	MaxDice        = 6
)

// startCells are the ring cells a token enters on leaving base.
var startCells = map[Color]int{
	Red:    1,
	Blue:   14,
	Green:  27,
	Yellow: 40,
}

// Start cells are safe, plus one star cell eight steps past each start.
var safeSpots = map[string]struct{}{
	"C01": {}, "C09": {},
	"C14": {}, "C22": {},
	"C27": {}, "C35": {},
	"C40": {}, "C48": {},
}

var (
	paths     = buildPaths()
	pathIndex = buildPathIndex(paths)
)

func (c Color) Initial() string {
	if c == "" {
		return ""
	}
	return string(c[0])
}

func (c Color) Valid() bool {
	_, ok := startCells[c]
	return ok
}

func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

func colorFromInitial(initial byte) (Color, bool) {
	for _, c := range Colors {
		if c[0] == initial {
			return c, true
		}
	}
	return "", false
}

func ringCell(n int) string {
	return fmt.Sprintf("C%02d", n)
}

func buildPaths() map[Color][]string {
	out := make(map[Color][]string, len(Colors))
	for _, c := range Colors {
		path := make([]string, 0, PathLength)
		start := startCells[c]
		for i := 0; i < RingStretch; i++ {
			path = append(path, ringCell((start-1+i)%RingSize+1))
		}
		for i := 1; i <= HomeStretch; i++ {
			path = append(path, fmt.Sprintf("%sH%d", c.Initial(), i))
		}
		path = append(path, c.Initial()+"F")
		out[c] = path
	}
	return out
}

func buildPathIndex(paths map[Color][]string) map[Color]map[string]int {
	out := make(map[Color]map[string]int, len(paths))
	for c, path := range paths {
		idx := make(map[string]int, len(path))
		for i, pos := range path {
			idx[pos] = i
		}
		out[c] = idx
	}
	return out
}

// Path returns a copy of the color's ordered track from start cell to home.
func Path(c Color) []string {
	p := paths[c]
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// PathIndex reports the index of pos along the color's path.
func PathIndex(c Color, pos string) (int, bool) {
	idx, ok := pathIndex[c][pos]
	return idx, ok
}

func StartCell(c Color) string {
	return ringCell(startCells[c])
}

func HomeCell(c Color) string {
	return c.Initial() + "F"
}

func IsSafe(pos string) bool {
	_, ok := safeSpots[pos]
	return ok
}

// SafeSpots lists the protected ring cells in ring order.
func SafeSpots() []string {
	out := make([]string, 0, len(safeSpots))
	for n := 1; n <= RingSize; n++ {
		if IsSafe(ringCell(n)) {
			out = append(out, ringCell(n))
		}
	}
	return out
}

func BaseSlots(c Color) []string {
	out := make([]string, 0, TokensPerColor)
	for n := 1; n <= TokensPerColor; n++ {
		out = append(out, fmt.Sprintf("%s%d", c.Initial(), n))
	}
	return out
}

// IsBase reports whether pos is one of the color's own base slots.
func IsBase(c Color, pos string) bool {
	if len(pos) != 2 || pos[:1] != c.Initial() {
		return false
	}
	return pos[1] >= '1' && pos[1] < '1'+TokensPerColor
}

func TokenID(c Color, n int) string {
	return fmt.Sprintf("%sT%d", c.Initial(), n)
}

// TokenColor decodes the owning color from a token id such as "BT1".
func TokenColor(tokenID string) (Color, bool) {
	if len(tokenID) != 3 || tokenID[1] != 'T' {
		return "", false
	}
	if tokenID[2] < '1' || tokenID[2] >= '1'+TokensPerColor {
		return "", false
	}
	return colorFromInitial(tokenID[0])
}

// BaseSlot maps a token to its own base slot by ordinal: RT3 -> R3.
func BaseSlot(tokenID string) (string, bool) {
	if _, ok := TokenColor(tokenID); !ok {
		return "", false
	}
	return tokenID[:1] + tokenID[2:], true
}
