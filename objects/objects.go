// Package objects defines the hit object variants and their derived state.
//
// The variant set is closed. Code that dispatches on object kind switches over
// the concrete types and panics on anything else.
package objects

import (
	"fmt"

	"osuconv/difficulty"
	"osuconv/hitsample"
	"osuconv/timing"
	"osuconv/vector"
)

// Kind tags a hit object variant.
type Kind uint8

const (
	KindCircle Kind = iota
	KindSlider
	KindSpinner
	KindSliderHead
	KindSliderTick
	KindSliderRepeat
	KindSliderTail
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindSlider:
		return "slider"
	case KindSpinner:
		return "spinner"
	case KindSliderHead:
		return "head"
	case KindSliderTick:
		return "tick"
	case KindSliderRepeat:
		return "repeat"
	case KindSliderTail:
		return "tail"
	default:
		return "unknown"
	}
}

// Mode selects the stacking and stack offset rules.
type Mode uint8

const (
	ModeStandard Mode = iota
	ModeDroid
)

func (m Mode) String() string {
	if m == ModeDroid {
		return "droid"
	}
	return "standard"
}

// ParseMode accepts "standard" (or "osu") and "droid".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "standard", "osu":
		return ModeStandard, nil
	case "droid":
		return ModeDroid, nil
	}
	return ModeStandard, fmt.Errorf("unknown mode %q", s)
}

// sampleLeniency is how far past an object's end its sample point is looked up.
const sampleLeniency = 5.0

// HitObject is implemented by the variants in this package only.
type HitObject interface {
	Kind() Kind
	Common() *Base
	EndTime() float64
	EndPosition() vector.Vector2
	ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error
	hitObject()
}

// Base carries the fields every variant shares.
type Base struct {
	StartTime float64
	Position  vector.Vector2
	Samples   []hitsample.Info

	NewCombo    bool
	ComboOffset int

	ComboIndex            int
	ComboIndexWithOffsets int
	IndexInCombo          int
	LastInCombo           bool

	StackHeight int
	Scale       float64
	TimePreempt float64
	TimeFadeIn  float64

	mode Mode
}

func (b *Base) Common() *Base { return b }

// Radius is the circle radius at the object's scale.
func (b *Base) Radius() float64 { return difficulty.ObjectRadius * b.Scale }

// StackOffset is the displacement caused by the stack height.
func (b *Base) StackOffset() vector.Vector2 {
	var step float64
	switch b.mode {
	case ModeDroid:
		step = -4 * difficulty.StandardScaleToOldDroidScale(b.Scale)
	default:
		step = -6.4 * b.Scale
	}
	o := step * float64(b.StackHeight)
	return vector.New(o, o)
}

func (b *Base) StackedPosition() vector.Vector2 {
	return b.Position.Add(b.StackOffset())
}

func (b *Base) applyDefaults(d difficulty.Difficulty, mode Mode) {
	b.TimePreempt = difficulty.ApproachRateToPreempt(d.ApproachRate)
	b.TimeFadeIn = difficulty.FadeIn(b.TimePreempt)
	b.Scale = difficulty.CircleSizeToScale(d.CircleSize)
	b.mode = mode
}

// resolveSamples fills inherited bank and volume from the sample point active
// at t.
func (b *Base) resolveSamples(cp *timing.ControlPoints, t float64) {
	point := cp.SampleAt(t)
	resolved := make([]hitsample.Info, len(b.Samples))
	for i, s := range b.Samples {
		resolved[i] = point.Apply(s)
	}
	b.Samples = resolved
}

// StackedEndPosition is the end position shifted by the stack offset.
func StackedEndPosition(o HitObject) vector.Vector2 {
	return o.EndPosition().Add(o.Common().StackOffset())
}

// Circle is a hit circle.
type Circle struct {
	Base
}

func NewCircle(start float64, pos vector.Vector2, samples []hitsample.Info) *Circle {
	return &Circle{Base: Base{StartTime: start, Position: pos, Samples: samples}}
}

func (*Circle) Kind() Kind                    { return KindCircle }
func (*Circle) hitObject()                    {}
func (c *Circle) EndTime() float64            { return c.StartTime }
func (c *Circle) EndPosition() vector.Vector2 { return c.Position }

func (c *Circle) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	c.applyDefaults(d, mode)
	c.resolveSamples(cp, c.EndTime()+sampleLeniency)
	return nil
}

// Spinner spins from StartTime until End.
type Spinner struct {
	Base
	End float64
}

func NewSpinner(start, end float64, pos vector.Vector2, samples []hitsample.Info) *Spinner {
	return &Spinner{Base: Base{StartTime: start, Position: pos, Samples: samples}, End: end}
}

func (*Spinner) Kind() Kind                    { return KindSpinner }
func (*Spinner) hitObject()                    {}
func (s *Spinner) EndTime() float64            { return s.End }
func (s *Spinner) EndPosition() vector.Vector2 { return s.Position }

func (s *Spinner) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	s.applyDefaults(d, mode)
	s.resolveSamples(cp, s.EndTime()+sampleLeniency)
	return nil
}

// Nested returns a slider's nested objects and nil for every other variant.
func Nested(o HitObject) []HitObject {
	if s, ok := o.(*Slider); ok {
		return s.NestedObjects()
	}
	return nil
}

// SetStackHeight sets the stack height of o and of every object nested in it.
func SetStackHeight(o HitObject, h int) {
	o.Common().StackHeight = h
	for _, n := range Nested(o) {
		n.Common().StackHeight = h
	}
}

// SetScale sets the scale of o and of every object nested in it.
func SetScale(o HitObject, scale float64) {
	o.Common().Scale = scale
	for _, n := range Nested(o) {
		n.Common().Scale = scale
	}
}
