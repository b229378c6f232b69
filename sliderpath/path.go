// Package sliderpath turns slider anchors into an arc-length parametrized polyline.
package sliderpath

import (
	"math"
	"slices"
	"sort"

	"github.com/jbeda/geom"

	"osuconv/curve"
	"osuconv/vector"
)

// distanceEpsilon guards interpolation between two nearly coincident samples.
const distanceEpsilon = 1e-3

// Path is a slider's curve. Anchors are relative to the slider head.
//
// The polyline and its cumulative-length table are rebuilt wholesale whenever
// the anchors, the path type or the expected distance change; they are never
// patched in place after construction.
type Path struct {
	pathType         curve.PathType
	anchors          []vector.Vector2
	expectedDistance float64

	calculatedPath   []vector.Vector2
	cumulativeLength []float64
	naturalLength    float64
}

// New builds a path. A NaN expectedDistance means the natural length of the
// curve is used.
func New(pathType curve.PathType, anchors []vector.Vector2, expectedDistance float64) *Path {
	p := &Path{}
	p.Replace(pathType, anchors, expectedDistance)
	return p
}

// Replace swaps every input of the path and rebuilds it.
func (p *Path) Replace(pathType curve.PathType, anchors []vector.Vector2, expectedDistance float64) {
	p.pathType = pathType
	p.anchors = slices.Clone(anchors)
	p.expectedDistance = expectedDistance
	p.calculatePath()
	p.calculateCumulativeLength()
}

// Clone returns an independent copy.
func (p *Path) Clone() *Path {
	return &Path{
		pathType:         p.pathType,
		anchors:          slices.Clone(p.anchors),
		expectedDistance: p.expectedDistance,
		calculatedPath:   slices.Clone(p.calculatedPath),
		cumulativeLength: slices.Clone(p.cumulativeLength),
		naturalLength:    p.naturalLength,
	}
}

func (p *Path) Type() curve.PathType             { return p.pathType }
func (p *Path) Anchors() []vector.Vector2        { return slices.Clone(p.anchors) }
func (p *Path) ExpectedDistance() float64        { return p.expectedDistance }
func (p *Path) CalculatedPath() []vector.Vector2 { return slices.Clone(p.calculatedPath) }
func (p *Path) CumulativeLengths() []float64     { return slices.Clone(p.cumulativeLength) }

// CalculatedDistance is the natural length of the flattened curve before it
// was trimmed or extended.
func (p *Path) CalculatedDistance() float64 { return p.naturalLength }

// Distance is the length sliders are timed against: the expected distance, or
// the natural length when none was given.
func (p *Path) Distance() float64 {
	if math.IsNaN(p.expectedDistance) {
		return p.naturalLength
	}
	return p.expectedDistance
}

func (p *Path) calculatePath() {
	p.calculatedPath = p.calculatedPath[:0:0]

	// Two coincident anchors mark a hard corner; each run between them is
	// approximated on its own.
	start := 0
	for i := 0; i < len(p.anchors); i++ {
		if i != len(p.anchors)-1 && !p.anchors[i].Equals(p.anchors[i+1]) {
			continue
		}
		spanEnd := i + 1
		for _, pt := range curve.Approximate(p.pathType, p.anchors[start:spanEnd]) {
			// drop repeats, including the boundary point spans share
			if n := len(p.calculatedPath); n == 0 || !p.calculatedPath[n-1].Equals(pt) {
				p.calculatedPath = append(p.calculatedPath, pt)
			}
		}
		start = spanEnd
	}
}

func (p *Path) calculateCumulativeLength() {
	calculatedLength := 0.0
	p.cumulativeLength = make([]float64, 0, len(p.calculatedPath)+1)
	p.cumulativeLength = append(p.cumulativeLength, 0)

	for i := 0; i < len(p.calculatedPath)-1; i++ {
		calculatedLength += p.calculatedPath[i+1].Sub(p.calculatedPath[i]).Length()
		p.cumulativeLength = append(p.cumulativeLength, calculatedLength)
	}
	p.naturalLength = calculatedLength

	expected := p.Distance()
	if calculatedLength == expected {
		return
	}

	// osu!stable does not extend a path whose last two points are equal.
	// The extra entry is intentional.
	if n := len(p.calculatedPath); n >= 2 && p.calculatedPath[n-1].Equals(p.calculatedPath[n-2]) && expected > calculatedLength {
		p.cumulativeLength = append(p.cumulativeLength, calculatedLength)
		return
	}

	// The last length is always incorrect.
	p.cumulativeLength = p.cumulativeLength[:len(p.cumulativeLength)-1]

	pathEndIndex := len(p.calculatedPath) - 1

	if calculatedLength > expected {
		// Trim every sample that lies past the expected distance.
		for len(p.cumulativeLength) > 0 && p.cumulativeLength[len(p.cumulativeLength)-1] >= expected {
			p.cumulativeLength = p.cumulativeLength[:len(p.cumulativeLength)-1]
			p.calculatedPath = slices.Delete(p.calculatedPath, pathEndIndex, pathEndIndex+1)
			pathEndIndex--
		}
	}

	if pathEndIndex <= 0 {
		// expected distance is zero or negative
		p.cumulativeLength = append(p.cumulativeLength, 0)
		return
	}

	// Move the final point along the last segment to land on the expected distance.
	dir := p.calculatedPath[pathEndIndex].Sub(p.calculatedPath[pathEndIndex-1]).Normalize()
	last := p.cumulativeLength[len(p.cumulativeLength)-1]
	p.calculatedPath[pathEndIndex] = p.calculatedPath[pathEndIndex-1].Add(dir.Scale(expected - last))
	p.cumulativeLength = append(p.cumulativeLength, expected)
}

// ProgressToDistance maps progress in [0, 1] to a distance along the path.
func (p *Path) ProgressToDistance(progress float64) float64 {
	return min(max(progress, 0), 1) * p.Distance()
}

// PositionAt returns the point at the given progress, relative to the slider head.
func (p *Path) PositionAt(progress float64) vector.Vector2 {
	d := p.ProgressToDistance(progress)
	return p.interpolateVertices(p.indexOfDistance(d), d)
}

// PathToProgress returns the part of the polyline between two progress values,
// with interpolated end points.
func (p *Path) PathToProgress(p0, p1 float64) []vector.Vector2 {
	d0 := p.ProgressToDistance(p0)
	d1 := p.ProgressToDistance(p1)

	var out []vector.Vector2
	i := 0
	for ; i < len(p.calculatedPath) && p.cumulativeLength[i] < d0; i++ {
	}
	out = append(out, p.interpolateVertices(i, d0))
	for ; i < len(p.calculatedPath) && p.cumulativeLength[i] <= d1; i++ {
		out = append(out, p.calculatedPath[i])
	}
	out = append(out, p.interpolateVertices(i, d1))
	return out
}

// indexOfDistance binary searches the cumulative lengths. An exact match
// returns its index; otherwise the insertion point.
func (p *Path) indexOfDistance(d float64) int {
	return sort.SearchFloat64s(p.cumulativeLength, d)
}

func (p *Path) interpolateVertices(i int, d float64) vector.Vector2 {
	if len(p.calculatedPath) == 0 {
		return vector.Zero
	}
	if i <= 0 {
		return p.calculatedPath[0]
	}
	if i >= len(p.calculatedPath) {
		return p.calculatedPath[len(p.calculatedPath)-1]
	}

	p0 := p.calculatedPath[i-1]
	p1 := p.calculatedPath[i]
	d0 := p.cumulativeLength[i-1]
	d1 := p.cumulativeLength[i]

	if math.Abs(d0-d1) <= distanceEpsilon {
		return p0
	}

	w := (d - d0) / (d1 - d0)
	return p0.Add(p1.Sub(p0).Scale(w))
}

// Bounds is the bounding box of the flattened path, relative to the slider head.
func (p *Path) Bounds() geom.Rect {
	if len(p.calculatedPath) == 0 {
		return geom.Rect{}
	}
	first := p.calculatedPath[0].Coord()
	r := geom.Rect{Min: first, Max: first}
	for _, pt := range p.calculatedPath[1:] {
		r.ExpandToContainCoord(pt.Coord())
	}
	return r
}
