package difficulty

import (
	"math"
	"testing"
)

func TestApproachRateRoundTrip(t *testing.T) {
	for _, ar := range []float64{0, 3, 5, 8, 9.5, 10, 11} {
		if got := PreemptToAR(ApproachRateToPreempt(ar)); math.Abs(got-ar) > 1e-9 {
			t.Errorf("round trip AR %v = %v", ar, got)
		}
	}
	if got := ApproachRateToPreempt(10); got != PreemptMin {
		t.Errorf("AR10 preempt = %v, want %v", got, PreemptMin)
	}
	if got := ApproachRateToPreempt(0); got != PreemptMax {
		t.Errorf("AR0 preempt = %v, want %v", got, PreemptMax)
	}
}

func TestFadeIn(t *testing.T) {
	if got := FadeIn(1200); got != 400 {
		t.Errorf("FadeIn(1200) = %v, want 400", got)
	}
	if got := FadeIn(225); got != 200 {
		t.Errorf("FadeIn(225) = %v, want 200", got)
	}
}

func TestScale(t *testing.T) {
	if got := CircleSizeToScale(5); math.Abs(got-0.5*scaleFudge) > 1e-12 {
		t.Errorf("CS5 scale = %v", got)
	}
	if got := ScaleToCircleSize(0.5); got != 5 {
		t.Errorf("ScaleToCircleSize(0.5) = %v, want 5", got)
	}
	if got := ScaleToCircleSize(CircleSizeToScale(4) / scaleFudge); math.Abs(got-4) > 1e-9 {
		t.Errorf("inverse = %v, want 4", got)
	}
}

func TestOldDroidScaleGrowsWithStandardScale(t *testing.T) {
	small := StandardScaleToOldDroidScale(0.5)
	large := StandardScaleToOldDroidScale(3)
	if large <= small {
		t.Errorf("droid scale %v at 3 <= %v at 0.5", large, small)
	}
	if math.Sqrt(large) <= 2 {
		t.Errorf("sqrt(droid scale at 3) = %v, want > 2", math.Sqrt(large))
	}
}

func TestClamp(t *testing.T) {
	d := Difficulty{CircleSize: 12, ApproachRate: -1, OverallDifficulty: 11, DrainRate: 5, SliderMultiplier: 9, SliderTickRate: 0}
	d.Clamp()
	want := Difficulty{CircleSize: 10, ApproachRate: 0, OverallDifficulty: 10, DrainRate: 5, SliderMultiplier: 3.6, SliderTickRate: 0.5}
	if d != want {
		t.Errorf("Clamp = %+v, want %+v", d, want)
	}
}

func TestHitWindows(t *testing.T) {
	w := HitWindows(10)
	if w.Great != 20 || w.Ok != 60 || w.Meh != 100 {
		t.Errorf("HitWindows(10) = %+v", w)
	}
}
