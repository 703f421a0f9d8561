package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Position is a continuous point on the map.
//
// Headings are measured in degrees in (-180, 180], where 0 points along +y
// and 90 points along +x. All angle maths in the package uses this one
// convention; see HeadingTo and the vision code.
type Position mgl64.Vec2

// Pos builds a Position from its coordinates.
func Pos(x, y float64) Position { return Position{x, y} }

func (p Position) X() float64 { return p[0] }
func (p Position) Y() float64 { return p[1] }

// Vec returns the position as a plain mgl64 vector.
func (p Position) Vec() mgl64.Vec2 { return mgl64.Vec2(p) }

// Add returns the position translated by v.
func (p Position) Add(v mgl64.Vec2) Position {
	return Position(mgl64.Vec2(p).Add(v))
}

// Sub returns the vector from q to p.
func (p Position) Sub(q Position) mgl64.Vec2 {
	return mgl64.Vec2(p).Sub(mgl64.Vec2(q))
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(q Position) float64 {
	return p.Sub(q).Len()
}

// Moved returns the position translated by distance along the given heading.
func (p Position) Moved(distance, headingDeg float64) Position {
	rad := headingDeg * math.Pi / 180
	return Position{
		p[0] + distance*math.Sin(rad),
		p[1] + distance*math.Cos(rad),
	}
}

// Tile returns the integer cell containing the position.
func (p Position) Tile() Cell {
	return Cell{int(math.Floor(p[0])), int(math.Floor(p[1]))}
}

func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p[0], p[1])
}

// Cell is an integer map cell.
type Cell struct {
	X, Y int
}

// Center returns the continuous center point of the cell.
func (c Cell) Center() Position {
	return Position{float64(c.X) + 0.5, float64(c.Y) + 0.5}
}

// NormalizeHeading wraps an angle in degrees into (-180, 180].
func NormalizeHeading(deg float64) float64 {
	a := math.Mod(deg+180, 360)
	if a < 0 {
		a += 360
	}
	a -= 180
	if a == -180 {
		return 180
	}
	return a
}

// HeadingTo returns the heading from one position toward another, in the
// package angle convention (0 = +y, 90 = +x).
func HeadingTo(from, to Position) float64 {
	d := to.Sub(from)
	if d.Len() <= 1e-5 {
		return 0
	}
	return NormalizeHeading(math.Atan2(d.X(), d.Y()) * 180 / math.Pi)
}
