package objects

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"osuconv/difficulty"
	"osuconv/hitsample"
	"osuconv/sliderpath"
	"osuconv/timing"
	"osuconv/vector"
)

// ErrNoDefaults is returned when nested objects are rebuilt before
// ApplyDefaults has run.
var ErrNoDefaults = errors.New("slider defaults not applied")

// SlidingSegment is the sliding sound from Time until the next segment.
type SlidingSegment struct {
	Time    float64
	Samples []hitsample.Info
}

type positionMemo struct {
	value vector.Vector2
	valid bool
}

type defaultsContext struct {
	cp   *timing.ControlPoints
	d    difficulty.Difficulty
	mode Mode
	set  bool
}

// Slider follows a path for one or more spans.
//
// Changes to the path or repeat count leave the nested objects stale until
// ApplyDefaults or RebuildNested runs again.
type Slider struct {
	Base

	path        *sliderpath.Path
	repeatCount int

	// TickDistanceMultiplier scales the tick spacing; legacy beatmaps set it
	// from the slider velocity.
	TickDistanceMultiplier float64
	GenerateTicks          bool

	// NodeSamples holds the samples of the head, every repeat and the tail.
	NodeSamples    [][]hitsample.Info
	SlidingSamples []SlidingSegment

	Velocity     float64
	TickDistance float64
	SpanDuration float64

	nested      []HitObject
	nestedStale bool
	endPosition positionMemo
	defaults    defaultsContext
}

func NewSlider(start float64, pos vector.Vector2, path *sliderpath.Path, repeatCount int, samples []hitsample.Info, nodeSamples [][]hitsample.Info) *Slider {
	return &Slider{
		Base:                   Base{StartTime: start, Position: pos, Samples: samples},
		path:                   path,
		repeatCount:            repeatCount,
		TickDistanceMultiplier: 1,
		GenerateTicks:          true,
		NodeSamples:            nodeSamples,
		nestedStale:            true,
	}
}

func (*Slider) Kind() Kind { return KindSlider }
func (*Slider) hitObject() {}

func (s *Slider) Path() *sliderpath.Path { return s.path }
func (s *Slider) RepeatCount() int       { return s.repeatCount }
func (s *Slider) SpanCount() int         { return s.repeatCount + 1 }
func (s *Slider) Distance() float64      { return s.path.Distance() }

// SetPath replaces the path.
func (s *Slider) SetPath(p *sliderpath.Path) {
	s.path = p
	s.endPosition.valid = false
	s.nestedStale = true
}

func (s *Slider) SetRepeatCount(n int) {
	s.repeatCount = max(n, 0)
	s.endPosition.valid = false
	s.nestedStale = true
}

// NestedStale reports whether the nested objects predate the last change.
func (s *Slider) NestedStale() bool { return s.nestedStale }

// NestedObjects returns the nested objects in start time order.
func (s *Slider) NestedObjects() []HitObject { return s.nested }

func (s *Slider) EndTime() float64 {
	return s.StartTime + float64(s.SpanCount())*s.SpanDuration
}

func (s *Slider) Duration() float64 { return s.EndTime() - s.StartTime }

// ProgressAt maps progress over the whole slider to progress along the path.
func (s *Slider) ProgressAt(progress float64) float64 {
	spans := float64(s.SpanCount())
	p := math.Mod(progress*spans, 1)
	if int(progress*spans)%2 == 1 {
		p = 1 - p
	}
	return p
}

// PositionAt is the absolute position at progress over the whole slider.
func (s *Slider) PositionAt(progress float64) vector.Vector2 {
	return s.Position.Add(s.path.PositionAt(s.ProgressAt(progress)))
}

func (s *Slider) EndPosition() vector.Vector2 {
	if !s.endPosition.valid {
		s.endPosition = positionMemo{value: s.PositionAt(1), valid: true}
	}
	return s.endPosition.value
}

// Reposition moves the slider and every nested object with it.
func (s *Slider) Reposition(pos vector.Vector2) {
	s.Position = pos
	s.endPosition.valid = false
	for _, n := range s.nested {
		switch o := n.(type) {
		case *SliderHead:
			o.Position = pos
		case *SliderTick:
			o.Position = pos.Add(s.path.PositionAt(o.PathProgress))
		case *SliderRepeat:
			o.Position = pos.Add(s.path.PositionAt(o.PathProgress))
		case *SliderTail:
			o.Position = s.EndPosition()
		default:
			panic(fmt.Sprintf("objects: unexpected nested object %T", n))
		}
	}
}

func (s *Slider) ApplyDefaults(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	s.applyDefaults(d, mode)
	s.defaults = defaultsContext{cp: cp, d: d, mode: mode, set: true}

	timingPoint := cp.TimingAt(s.StartTime)
	difficultyPoint := cp.DifficultyAt(s.StartTime)

	s.Velocity = 100 * d.SliderMultiplier / (timingPoint.BeatLength * difficultyPoint.BPMMultiplier())
	// not 100*multiplier/bpmMultiplier: stable accumulates this rounding
	scoringDistance := s.Velocity * timingPoint.BeatLength

	s.GenerateTicks = difficultyPoint.GenerateTicks
	if s.GenerateTicks {
		s.TickDistance = scoringDistance / d.SliderTickRate * s.TickDistanceMultiplier
	} else {
		s.TickDistance = math.Inf(1)
	}

	s.SpanDuration = s.path.Distance() / s.Velocity
	s.endPosition.valid = false

	if err := s.createNested(cp, d, mode); err != nil {
		return err
	}
	s.resolveSamples(cp, s.EndTime()+sampleLeniency)
	return nil
}

// RebuildNested regenerates the nested objects with the defaults of the last
// ApplyDefaults call.
func (s *Slider) RebuildNested() error {
	if !s.defaults.set {
		return ErrNoDefaults
	}
	return s.ApplyDefaults(s.defaults.cp, s.defaults.d, s.defaults.mode)
}

func (s *Slider) createNested(cp *timing.ControlPoints, d difficulty.Difficulty, mode Mode) error {
	if err := s.growNodeSamples(); err != nil {
		return err
	}

	events := sliderEvents(s.StartTime, s.SpanDuration, s.Velocity, s.TickDistance, s.path.Distance(), s.SpanCount())
	nested := make([]HitObject, 0, len(events))

	for _, e := range events {
		var (
			o   HitObject
			err error
		)
		switch e.kind {
		case eventHead:
			head := &SliderHead{Base: Base{StartTime: e.time, Position: s.Position}}
			head.Samples, err = hitsample.CloneAll(s.NodeSamples[0])
			o = head
		case eventTick:
			tick := &SliderTick{
				Base:          Base{StartTime: e.time, Position: s.Position.Add(s.path.PositionAt(e.pathProgress))},
				SpanIndex:     e.spanIndex,
				SpanStartTime: e.spanStartTime,
				PathProgress:  e.pathProgress,
			}
			tick.Samples = tickSamples(cp, e.time)
			o = tick
		case eventRepeat:
			repeat := &SliderRepeat{endCircle{
				Base:         Base{StartTime: e.time, Position: s.Position.Add(s.path.PositionAt(e.pathProgress))},
				RepeatIndex:  e.spanIndex,
				SpanDuration: s.SpanDuration,
				SliderStart:  s.StartTime,
				PathProgress: e.pathProgress,
			}}
			repeat.Samples, err = hitsample.CloneAll(s.NodeSamples[e.spanIndex+1])
			o = repeat
		case eventTail:
			tail := &SliderTail{endCircle{
				Base:         Base{StartTime: e.time, Position: s.EndPosition()},
				RepeatIndex:  e.spanIndex,
				SpanDuration: s.SpanDuration,
				SliderStart:  s.StartTime,
				PathProgress: e.pathProgress,
			}}
			tail.Samples, err = hitsample.CloneAll(s.NodeSamples[s.repeatCount+1])
			o = tail
		}
		if err != nil {
			return fmt.Errorf("slider at %v: %w", s.StartTime, err)
		}
		if err := o.ApplyDefaults(cp, d, mode); err != nil {
			return err
		}
		o.Common().StackHeight = s.StackHeight
		o.Common().Scale = s.Scale
		nested = append(nested, o)
	}

	s.SlidingSamples = s.slidingSamples(cp)
	s.nested = nested
	s.nestedStale = false
	return nil
}

// growNodeSamples pads the node samples with copies of the slider's samples
// until there is one entry per head, repeat and tail. Extra entries left by a
// lower repeat count are kept; the tail always reads index repeatCount+1.
func (s *Slider) growNodeSamples() error {
	want := s.repeatCount + 2
	nodes := slices.Clone(s.NodeSamples)
	for len(nodes) < want {
		c, err := hitsample.CloneAll(s.Samples)
		if err != nil {
			return fmt.Errorf("slider at %v: %w", s.StartTime, err)
		}
		nodes = append(nodes, c)
	}
	s.NodeSamples = nodes
	return nil
}

func tickSamples(cp *timing.ControlPoints, t float64) []hitsample.Info {
	point := cp.SampleAt(t)
	return []hitsample.Info{hitsample.BankSample{
		Name:        hitsample.SliderTick,
		Bank:        point.Bank,
		Volume:      point.Volume,
		CustomIndex: point.CustomIndex,
	}}
}

func (s *Slider) slidingSamples(cp *timing.ControlPoints) []SlidingSegment {
	normal, hasNormal := hitsample.First(s.Samples, hitsample.Normal)
	whistle, hasWhistle := hitsample.First(s.Samples, hitsample.Whistle)
	if !hasNormal && !hasWhistle {
		return nil
	}

	var segments []SlidingSegment
	for _, point := range cp.SamplesBetween(s.StartTime, s.EndTime()) {
		var samples []hitsample.Info
		if hasNormal {
			samples = append(samples, point.Apply(normal.With(hitsample.SliderSlide)))
		}
		if hasWhistle {
			samples = append(samples, point.Apply(whistle.With(hitsample.SliderWhistle)))
		}
		segments = append(segments, SlidingSegment{
			Time:    math.Max(point.Time, s.StartTime),
			Samples: samples,
		})
	}
	return segments
}
