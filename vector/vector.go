// Package vector provides the playfield vector type used by paths and hit objects.
package vector

import (
	"math"

	"github.com/jbeda/geom"
)

// Vector2 is a point or direction in osu!pixels.
type Vector2 struct {
	X, Y float64
}

// Zero is the origin.
var Zero = Vector2{}

func New(x, y float64) Vector2 { return Vector2{X: x, Y: y} }

func (v Vector2) Coord() geom.Coord       { return geom.Coord{X: v.X, Y: v.Y} }
func FromCoord(c geom.Coord) Vector2      { return Vector2{X: c.X, Y: c.Y} }
func (v Vector2) Add(w Vector2) Vector2   { return FromCoord(v.Coord().Plus(w.Coord())) }
func (v Vector2) Sub(w Vector2) Vector2   { return FromCoord(v.Coord().Minus(w.Coord())) }
func (v Vector2) Scale(s float64) Vector2 { return FromCoord(v.Coord().Times(s)) }
func (v Vector2) Length() float64         { return math.Hypot(v.X, v.Y) }
func (v Vector2) LengthSquared() float64  { return v.X*v.X + v.Y*v.Y }
func (v Vector2) Dot(w Vector2) float64   { return v.X*w.X + v.Y*w.Y }

// Cross returns the z component of the 3D cross product.
func (v Vector2) Cross(w Vector2) float64 { return v.X*w.Y - v.Y*w.X }

func (v Vector2) Distance(w Vector2) float64 {
	c := v.Coord()
	return c.DistanceFrom(w.Coord())
}

// Normalize scales v to unit length. A zero vector produces NaN components;
// callers guard against that upstream.
func (v Vector2) Normalize() Vector2 {
	l := v.Length()
	return Vector2{X: v.X / l, Y: v.Y / l}
}

// Divide divides both components by s and panics when s is zero.
func (v Vector2) Divide(s float64) Vector2 {
	if s == 0 {
		panic("vector: division by zero")
	}
	return Vector2{X: v.X / s, Y: v.Y / s}
}

// Equals is exact component equality.
func (v Vector2) Equals(w Vector2) bool { return v.X == w.X && v.Y == w.Y }

// AlmostEquals compares components within eps.
func (v Vector2) AlmostEquals(w Vector2, eps float64) bool {
	return math.Abs(v.X-w.X) <= eps && math.Abs(v.Y-w.Y) <= eps
}

// IsFinite reports whether neither component is NaN or infinite.
func (v Vector2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
