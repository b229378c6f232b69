package curve

import (
	"math"
	"testing"

	"osuconv/vector"
)

func v(x, y float64) vector.Vector2 { return vector.New(x, y) }

func TestApproximateLinearCopies(t *testing.T) {
	in := []vector.Vector2{v(0, 0), v(100, 0), v(100, 50)}
	out := Approximate(Linear, in)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	out[0] = v(9, 9)
	if in[0] != v(0, 0) {
		t.Error("ApproximateLinear aliased its input")
	}
}

func TestBezierEndpoints(t *testing.T) {
	cps := []vector.Vector2{v(0, 0), v(50, 100), v(100, 0)}
	out := ApproximateBezier(cps)
	if len(out) < 3 {
		t.Fatalf("expected subdivision, got %d points", len(out))
	}
	if out[0] != cps[0] {
		t.Errorf("first = %v, want %v", out[0], cps[0])
	}
	if out[len(out)-1] != cps[2] {
		t.Errorf("last = %v, want %v", out[len(out)-1], cps[2])
	}
	// apex of a quadratic bezier is at t=0.5: (50, 50)
	maxY := 0.0
	for _, p := range out {
		maxY = math.Max(maxY, p.Y)
	}
	if math.Abs(maxY-50) > 0.5 {
		t.Errorf("apex y = %v, want ~50", maxY)
	}
}

func TestBezierFlatInputIsNotSubdivided(t *testing.T) {
	out := ApproximateBezier([]vector.Vector2{v(0, 0), v(10, 0)})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(out), out)
	}
}

func TestBezierFinite(t *testing.T) {
	inputs := [][]vector.Vector2{
		{v(0, 0)},
		{v(0, 0), v(0, 0), v(0, 0)},
		{v(0, 0), v(1e5, -1e5), v(-1e5, 1e5), v(3, 3)},
		{v(0, 0), v(512, 384), v(0, 384), v(512, 0), v(256, 192), v(1, 1)},
		{v(-1e-9, 1e-9), v(1e-9, -1e-9), v(0, 0)},
	}
	for i, in := range inputs {
		for _, p := range ApproximateBezier(in) {
			if !p.IsFinite() {
				t.Fatalf("input %d produced non-finite point %v", i, p)
			}
		}
	}
}

func TestBezierEmpty(t *testing.T) {
	if out := ApproximateBezier(nil); out != nil {
		t.Errorf("ApproximateBezier(nil) = %v, want nil", out)
	}
}

func TestCatmullSampleCount(t *testing.T) {
	cps := []vector.Vector2{v(0, 0), v(100, 100), v(200, 0)}
	out := ApproximateCatmull(cps)
	if want := 2 * catmullDetail * 2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
	if !out[0].AlmostEquals(cps[0], 1e-9) {
		t.Errorf("first = %v, want %v", out[0], cps[0])
	}
	if !out[len(out)-1].AlmostEquals(cps[2], 1e-9) {
		t.Errorf("last = %v, want %v", out[len(out)-1], cps[2])
	}
	// segment joins hit the anchors exactly
	if !out[2*catmullDetail-1].AlmostEquals(cps[1], 1e-9) {
		t.Errorf("segment end = %v, want %v", out[2*catmullDetail-1], cps[1])
	}
}

func TestCircularArcHalfCircle(t *testing.T) {
	cps := []vector.Vector2{v(0, 0), v(50, 50), v(100, 0)}
	pr := CircularArcProperties(cps)
	if !pr.Valid {
		t.Fatal("expected a valid arc")
	}
	if math.Abs(pr.Radius-50) > 1e-9 {
		t.Errorf("radius = %v, want 50", pr.Radius)
	}
	if !pr.Centre.AlmostEquals(v(50, 0), 1e-9) {
		t.Errorf("centre = %v, want (50, 0)", pr.Centre)
	}
	if math.Abs(pr.ThetaRange-math.Pi) > 1e-9 {
		t.Errorf("theta range = %v, want pi", pr.ThetaRange)
	}

	out := ApproximateCircularArc(cps)
	if len(out) < 3 {
		t.Fatalf("expected several points, got %d", len(out))
	}
	if !out[0].AlmostEquals(cps[0], 1e-9) || !out[len(out)-1].AlmostEquals(cps[2], 1e-9) {
		t.Errorf("endpoints = %v, %v", out[0], out[len(out)-1])
	}
	// every point passes through the middle anchor's side (y >= 0)
	for _, p := range out {
		if p.Y < -1e-9 {
			t.Fatalf("point %v is on the wrong side of the chord", p)
		}
		if math.Abs(p.Distance(pr.Centre)-50) > 1e-9 {
			t.Fatalf("point %v is off the circle", p)
		}
	}
}

func TestCircularArcDirection(t *testing.T) {
	cw := CircularArcProperties([]vector.Vector2{v(0, 0), v(50, 50), v(100, 0)})
	ccw := CircularArcProperties([]vector.Vector2{v(0, 0), v(50, -50), v(100, 0)})
	if cw.Direction == ccw.Direction {
		t.Errorf("mirrored arcs share direction %v", cw.Direction)
	}
}

func TestCircularArcCollinearFallsBackToBezier(t *testing.T) {
	cps := []vector.Vector2{v(0, 0), v(50, 0), v(100, 0)}
	if out := ApproximateCircularArc(cps); out != nil {
		t.Fatalf("collinear arc = %v, want nil", out)
	}
	out := Approximate(PerfectCurve, cps)
	if len(out) == 0 || out[len(out)-1] != cps[2] {
		t.Errorf("fallback output = %v", out)
	}
}

func TestCircularArcTinyRadius(t *testing.T) {
	out := ApproximateCircularArc([]vector.Vector2{v(0, 0), v(0.04, 0.04), v(0.08, 0)})
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
}

func TestPerfectCurveWithFourPointsUsesBezier(t *testing.T) {
	cps := []vector.Vector2{v(0, 0), v(50, 50), v(100, 0), v(150, 50)}
	got := Approximate(PerfectCurve, cps)
	want := ApproximateBezier(cps)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
}
