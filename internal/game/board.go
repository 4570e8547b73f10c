package game

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the width and height of the board. Coordinates run 0..BoardSize-1.
const BoardSize = 7

// Coords addresses a board cell. On the wire it is written "x-y".
type Coords struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the coordinates as "x-y".
func (c Coords) String() string {
	return strconv.Itoa(c.X) + "-" + strconv.Itoa(c.Y)
}

// InBounds reports whether the cell lies on the board.
func (c Coords) InBounds() bool {
	return c.X >= 0 && c.X < BoardSize && c.Y >= 0 && c.Y < BoardSize
}

// ParseCoords parses an "x-y" string and checks it lies on the board.
func ParseCoords(s string) (Coords, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Coords{}, fmt.Errorf("invalid coordinates %q", s)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Coords{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Coords{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	c := Coords{X: x, Y: y}
	if !c.InBounds() {
		return Coords{}, fmt.Errorf("coordinates %q out of board", s)
	}
	return c, nil
}

// neighborOffsets lists the orthogonal neighbours in a fixed order so that
// choice sets come out in the same order on every run.
var neighborOffsets = []struct {
	dx, dy int
	side   Side
}{
	{0, -1, SideTop},
	{1, 0, SideRight},
	{0, 1, SideBottom},
	{-1, 0, SideLeft},
}

// Neighbors returns the in-bounds orthogonal neighbours of c.
func (c Coords) Neighbors() []Coords {
	out := make([]Coords, 0, 4)
	for _, off := range neighborOffsets {
		n := Coords{X: c.X + off.dx, Y: c.Y + off.dy}
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

// SideFacing returns which side of c touches other, or false when the two
// cells are not orthogonally adjacent. Y grows towards the bottom.
func (c Coords) SideFacing(other Coords) (Side, bool) {
	for _, off := range neighborOffsets {
		if c.X+off.dx == other.X && c.Y+off.dy == other.Y {
			return off.side, true
		}
	}
	return "", false
}

// Adjacent reports whether two cells share an edge.
func (c Coords) Adjacent(other Coords) bool {
	_, ok := c.SideFacing(other)
	return ok
}

// HomeCell returns the cell where a seat's player card starts.
func HomeCell(seat int) Coords {
	if seat%2 == 0 {
		return Coords{X: 3, Y: 0}
	}
	return Coords{X: 3, Y: BoardSize - 1}
}
