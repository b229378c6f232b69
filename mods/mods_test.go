package mods

import (
	"errors"
	"math"
	"testing"

	"osuconv/curve"
	"osuconv/difficulty"
	"osuconv/hitsample"
	"osuconv/objects"
	"osuconv/sliderpath"
	"osuconv/timing"
	"osuconv/vector"
)

func ptr(v float64) *float64 { return &v }

func TestParse(t *testing.T) {
	ms, err := Parse("hr,DT")
	if err != nil {
		t.Fatal(err)
	}
	if got := Acronyms(ms); got != "HRDT" {
		t.Errorf("Acronyms = %q, want HRDT", got)
	}
	if ms, _ := Parse("EZHTMR"); len(ms) != 3 {
		t.Errorf("concatenated parse = %v", ms)
	}
	if _, err := Parse("HR,XX"); !errors.Is(err, ErrUnknownMod) {
		t.Errorf("err = %v, want ErrUnknownMod", err)
	}
	if ms, err := Parse(""); err != nil || len(ms) != 0 {
		t.Errorf("empty parse = %v, %v", ms, err)
	}
}

func TestHardRockCaps(t *testing.T) {
	d := difficulty.Difficulty{CircleSize: 4, ApproachRate: 9, OverallDifficulty: 5, DrainRate: 8}
	HardRock{}.ApplyToDifficulty(&d)
	if math.Abs(d.CircleSize-5.2) > 1e-9 || d.ApproachRate != 10 || math.Abs(d.OverallDifficulty-7) > 1e-9 || d.DrainRate != 10 {
		t.Errorf("HardRock = %+v", d)
	}
}

func TestEasyHalves(t *testing.T) {
	d := difficulty.Difficulty{CircleSize: 4, ApproachRate: 9, OverallDifficulty: 5, DrainRate: 8}
	Easy{}.ApplyToDifficulty(&d)
	if d.CircleSize != 2 || d.ApproachRate != 4.5 || d.OverallDifficulty != 2.5 || d.DrainRate != 4 {
		t.Errorf("Easy = %+v", d)
	}
}

func TestDifficultyAdjustOnlyTouchesSetValues(t *testing.T) {
	d := difficulty.Difficulty{CircleSize: 4, ApproachRate: 9}
	DifficultyAdjust{ApproachRate: ptr(7)}.ApplyToDifficulty(&d)
	if d.ApproachRate != 7 || d.CircleSize != 4 {
		t.Errorf("DifficultyAdjust = %+v", d)
	}
	var m Mod = DifficultyAdjust{}
	if _, ok := m.(ForceDifficultyMod); !ok {
		t.Error("DifficultyAdjust must force difficulty")
	}
}

func TestDoubleTimeRescalesApproachRate(t *testing.T) {
	d := difficulty.Difficulty{ApproachRate: 9, OverallDifficulty: 5}
	DoubleTime().ApplyToDifficultyWithSettings(&d, Settings{CustomSpeedMultiplier: 1})
	// 600ms / 1.5 = 400ms
	if want := difficulty.PreemptToAR(400); math.Abs(d.ApproachRate-want) > 1e-9 {
		t.Errorf("AR = %v, want %v", d.ApproachRate, want)
	}
	// 50ms / 1.5
	if want := (80 - 50.0/1.5) / 6; math.Abs(d.OverallDifficulty-want) > 1e-9 {
		t.Errorf("OD = %v, want %v", d.OverallDifficulty, want)
	}
}

func TestRateAdjustKeepsForcedAR(t *testing.T) {
	d := difficulty.Difficulty{ApproachRate: 8, OverallDifficulty: 5}
	settings := Settings{Mods: []Mod{DifficultyAdjust{ApproachRate: ptr(8)}}, CustomSpeedMultiplier: 1}
	DoubleTime().ApplyToDifficultyWithSettings(&d, settings)
	if d.ApproachRate != 8 {
		t.Errorf("forced AR changed to %v", d.ApproachRate)
	}
}

func TestReallyEasy(t *testing.T) {
	d := difficulty.Difficulty{CircleSize: 4, ApproachRate: 9, OverallDifficulty: 6, DrainRate: 6}
	ReallyEasy{}.ApplyToDifficultyWithSettings(&d, Settings{Mode: objects.ModeDroid, CustomSpeedMultiplier: 1.25})
	if math.Abs(d.ApproachRate-8.25) > 1e-9 {
		t.Errorf("AR = %v, want 8.25", d.ApproachRate)
	}
	if d.CircleSize != 3 || d.OverallDifficulty != 3 || d.DrainRate != 3 {
		t.Errorf("ReallyEasy = %+v", d)
	}
}

func appliedSlider(t *testing.T) *objects.Slider {
	t.Helper()
	cp := &timing.ControlPoints{}
	cp.AddTiming(timing.TimingPoint{Time: 0, BeatLength: 500, TimeSignature: 4})
	d := difficulty.Default()
	d.SliderMultiplier = 1
	d.SliderTickRate = 1

	path := sliderpath.New(curve.Linear, []vector.Vector2{vector.New(0, 0), vector.New(100, 100)}, math.NaN())
	s := objects.NewSlider(0, vector.New(100, 50), path, 0, []hitsample.Info{hitsample.BankSample{Name: hitsample.Normal}}, nil)
	if err := s.ApplyDefaults(cp, d, objects.ModeStandard); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHardRockFlipsSlider(t *testing.T) {
	s := appliedSlider(t)
	if err := (HardRock{}).ApplyToHitObject(s); err != nil {
		t.Fatal(err)
	}
	if got := s.Position; !got.Equals(vector.New(100, 334)) {
		t.Errorf("Position = %v, want (100, 334)", got)
	}
	if got := s.EndPosition(); !got.AlmostEquals(vector.New(200, 234), 1e-9) {
		t.Errorf("EndPosition = %v, want (200, 234)", got)
	}
	nested := s.NestedObjects()
	if tail := nested[len(nested)-1]; !tail.Common().Position.AlmostEquals(vector.New(200, 234), 1e-9) {
		t.Errorf("tail at %v", tail.Common().Position)
	}
}

func TestHardRockFlipsCircle(t *testing.T) {
	c := objects.NewCircle(0, vector.New(10, 20), nil)
	if err := (HardRock{}).ApplyToHitObject(c); err != nil {
		t.Fatal(err)
	}
	if !c.Position.Equals(vector.New(10, 364)) {
		t.Errorf("Position = %v, want (10, 364)", c.Position)
	}
}

func TestMirrorFlipsHorizontally(t *testing.T) {
	s := appliedSlider(t)
	objects.SetStackHeight(s, 2)
	if err := flipObject(s, true, false); err != nil {
		t.Fatal(err)
	}
	if !s.Position.Equals(vector.New(412, 50)) {
		t.Errorf("Position = %v, want (412, 50)", s.Position)
	}
	if got := s.EndPosition(); !got.AlmostEquals(vector.New(312, 150), 1e-9) {
		t.Errorf("EndPosition = %v, want (312, 150)", got)
	}
	for _, n := range s.NestedObjects() {
		if n.Common().StackHeight != 2 {
			t.Errorf("%v lost its stack height", n.Kind())
		}
	}
}
