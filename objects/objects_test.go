package objects

import (
	"errors"
	"math"
	"testing"

	"osuconv/curve"
	"osuconv/difficulty"
	"osuconv/hitsample"
	"osuconv/sliderpath"
	"osuconv/timing"
	"osuconv/vector"
)

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-6 }

func testControlPoints() *timing.ControlPoints {
	cp := &timing.ControlPoints{}
	cp.AddTiming(timing.TimingPoint{Time: 0, BeatLength: 500, TimeSignature: 4})
	cp.AddSample(timing.SamplePoint{Time: 0, Bank: hitsample.BankSoft, Volume: 70})
	return cp
}

func testDifficulty() difficulty.Difficulty {
	d := difficulty.Default()
	d.ApproachRate = 5
	d.CircleSize = 4
	d.SliderMultiplier = 1
	d.SliderTickRate = 1
	return d
}

// newTestSlider is a 300px horizontal slider: 0.2 px/ms, ticks every 100px.
func newTestSlider(repeats int) *Slider {
	path := sliderpath.New(curve.Linear, []vector.Vector2{vector.New(0, 0), vector.New(300, 0)}, 300)
	samples := []hitsample.Info{hitsample.BankSample{Name: hitsample.Normal}}
	return NewSlider(0, vector.New(100, 100), path, repeats, samples, nil)
}

func kinds(objs []HitObject) []Kind {
	out := make([]Kind, len(objs))
	for i, o := range objs {
		out[i] = o.Kind()
	}
	return out
}

func equalKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSliderDerivedValues(t *testing.T) {
	s := newTestSlider(0)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	if !approx(s.Velocity, 0.2) {
		t.Errorf("Velocity = %v, want 0.2", s.Velocity)
	}
	if !approx(s.TickDistance, 100) {
		t.Errorf("TickDistance = %v, want 100", s.TickDistance)
	}
	if !approx(s.SpanDuration, 1500) {
		t.Errorf("SpanDuration = %v, want 1500", s.SpanDuration)
	}
	if !approx(s.EndTime(), 1500) {
		t.Errorf("EndTime = %v, want 1500", s.EndTime())
	}
	if got := s.EndPosition(); !got.AlmostEquals(vector.New(400, 100), 1e-9) {
		t.Errorf("EndPosition = %v, want (400, 100)", got)
	}
}

func TestSliderNestedWithoutRepeats(t *testing.T) {
	s := newTestSlider(0)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	nested := s.NestedObjects()
	want := []Kind{KindSliderHead, KindSliderTick, KindSliderTick, KindSliderTail}
	if got := kinds(nested); !equalKinds(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	times := []float64{0, 500, 1000, 1500}
	for i, n := range nested {
		if !approx(n.Common().StartTime, times[i]) {
			t.Errorf("nested %d at %v, want %v", i, n.Common().StartTime, times[i])
		}
	}
	if got := nested[1].Common().Position; !got.AlmostEquals(vector.New(200, 100), 1e-9) {
		t.Errorf("first tick at %v, want (200, 100)", got)
	}
}

func TestSliderRepeatTicksMirror(t *testing.T) {
	s := newTestSlider(1)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	nested := s.NestedObjects()
	want := []Kind{
		KindSliderHead, KindSliderTick, KindSliderTick,
		KindSliderRepeat, KindSliderTick, KindSliderTick, KindSliderTail,
	}
	if got := kinds(nested); !equalKinds(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := 1; i < len(nested); i++ {
		if nested[i].Common().StartTime < nested[i-1].Common().StartTime {
			t.Fatalf("nested objects out of order at %d", i)
		}
	}

	xs := []float64{100, 200, 300, 400, 300, 200, 100}
	for i, n := range nested {
		if got := n.Common().Position.X; !approx(got, xs[i]) {
			t.Errorf("nested %d (%v) x = %v, want %v", i, n.Kind(), got, xs[i])
		}
	}
	if !s.EndPosition().AlmostEquals(vector.New(100, 100), 1e-9) {
		t.Errorf("EndPosition = %v, want slider head", s.EndPosition())
	}
}

func TestNestedTiming(t *testing.T) {
	s := newTestSlider(1)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	nested := s.NestedObjects()

	firstTick := nested[1].(*SliderTick)
	if want := 500.0/2 + 1200*0.66; !approx(firstTick.TimePreempt, want) {
		t.Errorf("first span tick preempt = %v, want %v", firstTick.TimePreempt, want)
	}
	laterTick := nested[4].(*SliderTick)
	if want := 500.0/2 + 200; !approx(laterTick.TimePreempt, want) {
		t.Errorf("second span tick preempt = %v, want %v", laterTick.TimePreempt, want)
	}

	repeat := nested[3].(*SliderRepeat)
	if want := 1200.0 + 1500; !approx(repeat.TimePreempt, want) {
		t.Errorf("repeat preempt = %v, want %v", repeat.TimePreempt, want)
	}
	tail := nested[6].(*SliderTail)
	if !approx(tail.TimePreempt, 3000) || tail.TimeFadeIn != 0 {
		t.Errorf("tail preempt/fade = %v/%v, want 3000/0", tail.TimePreempt, tail.TimeFadeIn)
	}
}

func TestSliderWithoutTickGeneration(t *testing.T) {
	cp := testControlPoints()
	cp.AddDifficulty(timing.DifficultyPoint{Time: 0, SpeedMultiplier: 1, GenerateTicks: false})
	s := newTestSlider(2)
	if err := s.ApplyDefaults(cp, testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(s.TickDistance, 1) {
		t.Errorf("TickDistance = %v, want +Inf", s.TickDistance)
	}
	want := []Kind{KindSliderHead, KindSliderRepeat, KindSliderRepeat, KindSliderTail}
	if got := kinds(s.NestedObjects()); !equalKinds(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
}

func TestSliderSamples(t *testing.T) {
	s := newTestSlider(1)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	if len(s.NodeSamples) != 3 {
		t.Fatalf("node samples = %d, want 3", len(s.NodeSamples))
	}
	head := s.NestedObjects()[0]
	hs, ok := head.Common().Samples[0].(hitsample.BankSample)
	if !ok || hs.Bank != hitsample.BankSoft || hs.Volume != 70 {
		t.Errorf("head sample = %#v", head.Common().Samples[0])
	}
	tick := s.NestedObjects()[1]
	if hitsample.Name(tick.Common().Samples[0]) != hitsample.SliderTick {
		t.Errorf("tick sample = %#v", tick.Common().Samples[0])
	}
	if len(s.SlidingSamples) != 1 || hitsample.Name(s.SlidingSamples[0].Samples[0]) != hitsample.SliderSlide {
		t.Errorf("sliding samples = %+v", s.SlidingSamples)
	}
}

func TestTailSamplesFollowRepeatCount(t *testing.T) {
	s := newTestSlider(2)
	for _, name := range []string{"head", "r1", "r2", "tail"} {
		s.NodeSamples = append(s.NodeSamples, []hitsample.Info{hitsample.FileSample{Filename: name}})
	}
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	tailName := func() string {
		for _, n := range s.NestedObjects() {
			if n.Kind() == KindSliderTail {
				f, _ := n.Common().Samples[0].(hitsample.FileSample)
				return f.Filename
			}
		}
		return ""
	}
	if got := tailName(); got != "tail" {
		t.Errorf("tail sample = %q, want tail", got)
	}

	s.SetRepeatCount(0)
	if err := s.RebuildNested(); err != nil {
		t.Fatal(err)
	}
	if got := tailName(); got != "r1" {
		t.Errorf("tail sample after lowering repeats = %q, want r1", got)
	}
}

type strangeSample struct{}

func (strangeSample) LookupNames() []string { return nil }
func (strangeSample) SampleVolume() int     { return 0 }

func TestSliderUnknownSampleFails(t *testing.T) {
	s := newTestSlider(0)
	s.Samples = []hitsample.Info{strangeSample{}}
	err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard)
	if !errors.Is(err, hitsample.ErrUnknownSampleType) {
		t.Fatalf("err = %v, want ErrUnknownSampleType", err)
	}
}

func TestRepositionMovesNested(t *testing.T) {
	s := newTestSlider(1)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	s.Reposition(vector.New(0, 0))
	xs := []float64{0, 100, 200, 300, 200, 100, 0}
	for i, n := range s.NestedObjects() {
		if p := n.Common().Position; !approx(p.X, xs[i]) || p.Y != 0 {
			t.Errorf("nested %d at %v, want (%v, 0)", i, p, xs[i])
		}
	}
}

func TestRebuildAfterMutation(t *testing.T) {
	s := newTestSlider(0)
	if err := s.RebuildNested(); !errors.Is(err, ErrNoDefaults) {
		t.Fatalf("err = %v, want ErrNoDefaults", err)
	}
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	SetStackHeight(s, 2)

	s.SetRepeatCount(2)
	if !s.NestedStale() {
		t.Error("nested objects should be stale after SetRepeatCount")
	}
	if err := s.RebuildNested(); err != nil {
		t.Fatal(err)
	}
	if s.NestedStale() {
		t.Error("nested objects still stale after rebuild")
	}
	repeats := 0
	for _, n := range s.NestedObjects() {
		if n.Kind() == KindSliderRepeat {
			repeats++
		}
		if n.Common().StackHeight != 2 {
			t.Errorf("%v lost stack height", n.Kind())
		}
	}
	if repeats != 2 {
		t.Errorf("repeats = %d, want 2", repeats)
	}
}

func TestSetPathInvalidatesEndPosition(t *testing.T) {
	s := newTestSlider(0)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	_ = s.EndPosition()
	s.SetPath(sliderpath.New(curve.Linear, []vector.Vector2{vector.New(0, 0), vector.New(0, 50)}, 50))
	if got := s.EndPosition(); !got.AlmostEquals(vector.New(100, 150), 1e-9) {
		t.Errorf("EndPosition = %v, want (100, 150)", got)
	}
}

func TestSetStackHeightCascades(t *testing.T) {
	s := newTestSlider(1)
	if err := s.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	SetStackHeight(s, 3)
	SetScale(s, 0.25)
	for _, n := range s.NestedObjects() {
		if n.Common().StackHeight != 3 || n.Common().Scale != 0.25 {
			t.Errorf("%v: height %d scale %v", n.Kind(), n.Common().StackHeight, n.Common().Scale)
		}
	}
	want := vector.New(100-6.4*0.25*3, 100-6.4*0.25*3)
	if got := s.StackedPosition(); !got.AlmostEquals(want, 1e-9) {
		t.Errorf("StackedPosition = %v, want %v", got, want)
	}
}

func TestCircleDefaults(t *testing.T) {
	c := NewCircle(1000, vector.New(10, 20), []hitsample.Info{hitsample.BankSample{Name: hitsample.Clap}})
	if err := c.ApplyDefaults(testControlPoints(), testDifficulty(), ModeStandard); err != nil {
		t.Fatal(err)
	}
	if c.TimePreempt != 1200 || c.TimeFadeIn != 400 {
		t.Errorf("preempt/fade = %v/%v", c.TimePreempt, c.TimeFadeIn)
	}
	if want := difficulty.CircleSizeToScale(4); c.Scale != want {
		t.Errorf("Scale = %v, want %v", c.Scale, want)
	}
	if s := c.Samples[0].(hitsample.BankSample); s.Bank != hitsample.BankSoft {
		t.Errorf("sample bank = %q, want soft", s.Bank)
	}
}

func TestAssignCombos(t *testing.T) {
	objs := []HitObject{
		NewCircle(0, vector.Zero, nil),
		NewCircle(100, vector.Zero, nil),
		NewCircle(200, vector.Zero, nil),
		NewCircle(300, vector.Zero, nil),
	}
	objs[2].Common().NewCombo = true
	objs[2].Common().ComboOffset = 2
	AssignCombos(objs)

	type combo struct {
		index, withOffsets, inCombo int
		last                        bool
	}
	want := []combo{
		{1, 1, 0, false},
		{1, 1, 1, true},
		{2, 4, 0, false},
		{2, 4, 1, true},
	}
	for i, o := range objs {
		b := o.Common()
		got := combo{b.ComboIndex, b.ComboIndexWithOffsets, b.IndexInCombo, b.LastInCombo}
		if got != want[i] {
			t.Errorf("object %d combo = %+v, want %+v", i, got, want[i])
		}
	}
}
