package objects

import (
	"osuconv/difficulty"
	"osuconv/timing"
	"osuconv/vector"
)

// SliderHead is the circle at the start of a slider.
type SliderHead struct {
	Base
}

func (*SliderHead) Kind() Kind                    { return KindSliderHead }
func (*SliderHead) hitObject()                    {}
func (h *SliderHead) EndTime() float64            { return h.StartTime }
func (h *SliderHead) EndPosition() vector.Vector2 { return h.Position }

func (h *SliderHead) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	h.applyDefaults(d, mode)
	h.resolveSamples(cp, h.EndTime()+sampleLeniency)
	return nil
}

// SliderTick is a scoring point along a span.
type SliderTick struct {
	Base
	SpanIndex     int
	SpanStartTime float64
	PathProgress  float64
}

func (*SliderTick) Kind() Kind                    { return KindSliderTick }
func (*SliderTick) hitObject()                    {}
func (t *SliderTick) EndTime() float64            { return t.StartTime }
func (t *SliderTick) EndPosition() vector.Vector2 { return t.Position }

func (t *SliderTick) ApplyDefaults(_ *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	t.applyDefaults(d, mode)

	offset := t.TimePreempt * 0.66
	if t.SpanIndex > 0 {
		// first span ticks fade in with the slider, later ones on a fixed offset
		offset = 200
	}
	t.TimePreempt = (t.StartTime-t.SpanStartTime)/2 + offset
	return nil
}

// endCircle holds the timing shared by repeats and tails.
type endCircle struct {
	Base
	RepeatIndex  int
	SpanDuration float64
	SliderStart  float64
	PathProgress float64
}

func (e *endCircle) EndTime() float64            { return e.StartTime }
func (e *endCircle) EndPosition() vector.Vector2 { return e.Position }

func (e *endCircle) applyEndDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) {
	e.applyDefaults(d, mode)
	if e.RepeatIndex > 0 {
		// appear exactly as the previous end circle is hit
		e.TimeFadeIn = 0
		e.TimePreempt = e.SpanDuration * 2
	} else {
		e.TimePreempt += e.StartTime - e.SliderStart
	}
	e.resolveSamples(cp, e.EndTime()+sampleLeniency)
}

// SliderRepeat is the reverse arrow at the end of a non-final span.
type SliderRepeat struct {
	endCircle
}

func (*SliderRepeat) Kind() Kind { return KindSliderRepeat }
func (*SliderRepeat) hitObject() {}

func (r *SliderRepeat) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	r.applyEndDefaults(cp, d, mode)
	return nil
}

// SliderTail is the end of the final span.
type SliderTail struct {
	endCircle
}

func (*SliderTail) Kind() Kind { return KindSliderTail }
func (*SliderTail) hitObject() {}

func (t *SliderTail) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	t.applyEndDefaults(cp, d, mode)
	return nil
}
