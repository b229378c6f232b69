// Package curve flattens slider control points into polylines.
//
// The approximations mirror osu!'s PathApproximator, including its fixed
// tolerances, so that derived lengths and tick positions stay comparable with
// stable and lazer.
package curve

import (
	"math"

	"osuconv/vector"
)

// PathType selects the approximation used for a span of anchors.
type PathType uint8

const (
	Bezier PathType = iota
	Linear
	Catmull
	PerfectCurve
)

func (t PathType) String() string {
	switch t {
	case Bezier:
		return "bezier"
	case Linear:
		return "linear"
	case Catmull:
		return "catmull"
	case PerfectCurve:
		return "perfect"
	default:
		return "unknown"
	}
}

const (
	bezierTolerance      = 0.25
	circularArcTolerance = 0.1
	catmullDetail        = 50
	// collinearity threshold for the circumcircle fit
	arcDegenerateEpsilon = 1e-3
)

// Approximate flattens anchors according to pathType. It never fails; a
// degenerate input produces a degenerate (possibly empty) polyline.
func Approximate(pathType PathType, anchors []vector.Vector2) []vector.Vector2 {
	switch pathType {
	case Linear:
		return ApproximateLinear(anchors)
	case Catmull:
		return ApproximateCatmull(anchors)
	case PerfectCurve:
		if len(anchors) != 3 {
			break
		}
		if arc := ApproximateCircularArc(anchors); len(arc) > 0 {
			return arc
		}
	}
	return ApproximateBezier(anchors)
}

// ApproximateLinear returns a copy of the anchors.
func ApproximateLinear(anchors []vector.Vector2) []vector.Vector2 {
	out := make([]vector.Vector2, len(anchors))
	copy(out, anchors)
	return out
}

// --- Bezier (adaptive subdivision over an explicit work stack) ---

// ApproximateBezier subdivides the curve until every piece is flat enough.
// Pieces are kept on an explicit stack and buffers are recycled, so
// pathological inputs cannot exhaust the goroutine stack.
func ApproximateBezier(controlPoints []vector.Vector2) []vector.Vector2 {
	count := len(controlPoints)
	if count == 0 {
		return nil
	}

	var output []vector.Vector2
	subdivisionBuffer1 := make([]vector.Vector2, count)
	subdivisionBuffer2 := make([]vector.Vector2, count*2-1)

	toFlatten := make([][]vector.Vector2, 0, 32)
	freeBuffers := make([][]vector.Vector2, 0, 32)

	root := make([]vector.Vector2, count)
	copy(root, controlPoints)
	toFlatten = append(toFlatten, root)

	leftChild := subdivisionBuffer2

	for len(toFlatten) > 0 {
		parent := toFlatten[len(toFlatten)-1]
		toFlatten = toFlatten[:len(toFlatten)-1]

		if bezierIsFlatEnough(parent) {
			// The flat piece's left half is emitted now; its end is the start of
			// the next piece (or the final control point appended below).
			output = bezierApproximate(parent, output, subdivisionBuffer1, subdivisionBuffer2, count)
			freeBuffers = append(freeBuffers, parent)
			continue
		}

		var rightChild []vector.Vector2
		if n := len(freeBuffers); n > 0 {
			rightChild = freeBuffers[n-1]
			freeBuffers = freeBuffers[:n-1]
		} else {
			rightChild = make([]vector.Vector2, count)
		}
		bezierSubdivide(parent, leftChild, rightChild, subdivisionBuffer1, count)

		// parent is reused as the left child
		copy(parent, leftChild[:count])

		// right first so that the left half is popped next
		toFlatten = append(toFlatten, rightChild, parent)
	}

	output = append(output, controlPoints[count-1])
	return output
}

// bezierIsFlatEnough checks the discrete second derivative of every interior
// control point against the tolerance.
func bezierIsFlatEnough(controlPoints []vector.Vector2) bool {
	for i := 1; i < len(controlPoints)-1; i++ {
		prev, cur, next := controlPoints[i-1], controlPoints[i], controlPoints[i+1]
		dx := prev.X - 2*cur.X + next.X
		dy := prev.Y - 2*cur.Y + next.Y
		if dx*dx+dy*dy > bezierTolerance*bezierTolerance*4 {
			return false
		}
	}
	return true
}

// bezierSubdivide splits the curve at t=0.5 with De Casteljau's algorithm.
// midpoints may alias r.
func bezierSubdivide(controlPoints, l, r, midpoints []vector.Vector2, count int) {
	copy(midpoints[:count], controlPoints[:count])

	for i := 0; i < count; i++ {
		l[i] = midpoints[0]
		r[count-i-1] = midpoints[count-i-1]

		for j := 0; j < count-i-1; j++ {
			midpoints[j] = vector.Vector2{
				X: (midpoints[j].X + midpoints[j+1].X) / 2,
				Y: (midpoints[j].Y + midpoints[j+1].Y) / 2,
			}
		}
	}
}

// bezierApproximate emits a flat piece. It subdivides once more and smooths
// the joined control polygon with a [1 2 1]/4 kernel.
func bezierApproximate(controlPoints, output, subdivisionBuffer1, subdivisionBuffer2 []vector.Vector2, count int) []vector.Vector2 {
	l := subdivisionBuffer2
	r := subdivisionBuffer1

	bezierSubdivide(controlPoints, l, r, subdivisionBuffer1, count)

	for i := 0; i < count-1; i++ {
		l[count+i] = r[i+1]
	}

	output = append(output, controlPoints[0])
	for i := 1; i < count-1; i++ {
		index := 2 * i
		output = append(output, vector.Vector2{
			X: 0.25 * (l[index-1].X + 2*l[index].X + l[index+1].X),
			Y: 0.25 * (l[index-1].Y + 2*l[index].Y + l[index+1].Y),
		})
	}
	return output
}

// --- Catmull-Rom ---

// ApproximateCatmull samples every segment at catmullDetail steps. The virtual
// point before the first anchor is the anchor itself; the one after the last
// anchor is extrapolated.
func ApproximateCatmull(controlPoints []vector.Vector2) []vector.Vector2 {
	n := len(controlPoints)
	if n < 2 {
		return nil
	}
	out := make([]vector.Vector2, 0, (n-1)*catmullDetail*2)

	for i := 0; i < n-1; i++ {
		v1 := controlPoints[i]
		if i > 0 {
			v1 = controlPoints[i-1]
		}
		v2 := controlPoints[i]
		v3 := controlPoints[i+1]
		v4 := v3.Add(v3).Sub(v2)
		if i < n-2 {
			v4 = controlPoints[i+2]
		}

		for c := 0; c < catmullDetail; c++ {
			out = append(out,
				catmullPoint(v1, v2, v3, v4, float64(c)/catmullDetail),
				catmullPoint(v1, v2, v3, v4, float64(c+1)/catmullDetail),
			)
		}
	}
	return out
}

func catmullPoint(p0, p1, p2, p3 vector.Vector2, t float64) vector.Vector2 {
	t2 := t * t
	t3 := t2 * t
	return vector.Vector2{
		X: 0.5 * ((2 * p1.X) + (-p0.X+p2.X)*t + (2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 + (-p0.X+3*p1.X-3*p2.X+p3.X)*t3),
		Y: 0.5 * ((2 * p1.Y) + (-p0.Y+p2.Y)*t + (2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 + (-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3),
	}
}

// --- Circular arc ---

// ArcProperties describes the circle fitted through three points.
type ArcProperties struct {
	Valid      bool
	ThetaStart float64
	ThetaRange float64
	Direction  float64
	Radius     float64
	Centre     vector.Vector2
}

// CircularArcProperties fits the circumscribed circle of the three anchors.
// Valid is false for fewer than three points or a (near) degenerate triangle.
func CircularArcProperties(anchors []vector.Vector2) ArcProperties {
	if len(anchors) < 3 {
		return ArcProperties{}
	}
	a, b, c := anchors[0], anchors[1], anchors[2]

	if math.Abs((b.Y-a.Y)*(c.X-a.X)-(b.X-a.X)*(c.Y-a.Y)) <= arcDegenerateEpsilon {
		return ArcProperties{}
	}

	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	aSq := a.LengthSquared()
	bSq := b.LengthSquared()
	cSq := c.LengthSquared()

	centre := vector.Vector2{
		X: (aSq*(b.Y-c.Y) + bSq*(c.Y-a.Y) + cSq*(a.Y-b.Y)) / d,
		Y: (aSq*(c.X-b.X) + bSq*(a.X-c.X) + cSq*(b.X-a.X)) / d,
	}

	dA := a.Sub(centre)
	dC := c.Sub(centre)

	radius := dA.Length()

	thetaStart := math.Atan2(dA.Y, dA.X)
	thetaEnd := math.Atan2(dC.Y, dC.X)
	for thetaEnd < thetaStart {
		thetaEnd += 2 * math.Pi
	}

	direction := 1.0
	thetaRange := thetaEnd - thetaStart

	// Draw the arc on the side of AC that B lies on.
	orthoAtoC := c.Sub(a)
	orthoAtoC = vector.Vector2{X: orthoAtoC.Y, Y: -orthoAtoC.X}
	if orthoAtoC.Dot(b.Sub(a)) < 0 {
		direction = -direction
		thetaRange = 2*math.Pi - thetaRange
	}

	return ArcProperties{
		Valid:      true,
		ThetaStart: thetaStart,
		ThetaRange: thetaRange,
		Direction:  direction,
		Radius:     radius,
		Centre:     centre,
	}
}

// ApproximateCircularArc samples the arc through three anchors so that the
// chord-to-arc deviation stays under circularArcTolerance. It returns nil when
// no circle can be fitted; callers fall back to Bezier.
func ApproximateCircularArc(anchors []vector.Vector2) []vector.Vector2 {
	pr := CircularArcProperties(anchors)
	if !pr.Valid {
		return nil
	}

	// Radii below the tolerance are pathological; two points suffice.
	amountPoints := 2
	if 2*pr.Radius > circularArcTolerance {
		amountPoints = max(2, int(math.Ceil(pr.ThetaRange/(2*math.Acos(1-circularArcTolerance/pr.Radius)))))
	}

	out := make([]vector.Vector2, 0, amountPoints)
	for i := 0; i < amountPoints; i++ {
		fract := float64(i) / float64(amountPoints-1)
		theta := pr.ThetaStart + pr.Direction*fract*pr.ThetaRange
		o := vector.Vector2{X: math.Cos(theta), Y: math.Sin(theta)}.Scale(pr.Radius)
		out = append(out, pr.Centre.Add(o))
	}
	return out
}
