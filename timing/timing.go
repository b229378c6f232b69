// Package timing holds the control-point timelines of a beatmap.
package timing

import (
	"slices"
	"sort"
	"strconv"

	"osuconv/hitsample"
)

// TimingPoint is a red line.
type TimingPoint struct {
	Time          float64
	BeatLength    float64
	TimeSignature int
}

// BPM is beats per minute.
func (p TimingPoint) BPM() float64 { return 60000 / p.BeatLength }

// DifficultyPoint is a green line's slider velocity part. BeatLength is the
// raw negative value a green line was written with; zero when the point was
// not read from one.
type DifficultyPoint struct {
	Time            float64
	SpeedMultiplier float64
	BeatLength      float64
	GenerateTicks   bool
}

// BPMMultiplier is the legacy beat length multiplier for the point. Green
// lines clamp their raw beat length so velocity matches stable bit for bit.
func (p DifficultyPoint) BPMMultiplier() float64 {
	if p.BeatLength < 0 {
		return min(max(-p.BeatLength, 10), 1000) / 100
	}
	return min(max(1/p.SpeedMultiplier, 0.1), 10)
}

// SamplePoint is the default bank and volume of a section.
type SamplePoint struct {
	Time        float64
	Bank        string
	Volume      int
	CustomIndex int
}

// Apply fills the unset parts of a bank sample from the point. File samples
// are returned unchanged.
func (p SamplePoint) Apply(info hitsample.Info) hitsample.Info {
	s, ok := info.(hitsample.BankSample)
	if !ok {
		return info
	}
	if s.Bank == hitsample.BankNone || s.EditorAutoBank {
		s.Bank = p.Bank
	}
	if s.Volume <= 0 {
		s.Volume = p.Volume
	}
	if s.CustomIndex == 0 {
		s.CustomIndex = p.CustomIndex
	}
	if s.Suffix == "" && s.CustomIndex > 1 {
		s.Suffix = strconv.Itoa(s.CustomIndex)
	}
	return s
}

// EffectPoint carries kiai and bar line state.
type EffectPoint struct {
	Time             float64
	Kiai             bool
	OmitFirstBarLine bool
}

var (
	DefaultTiming     = TimingPoint{BeatLength: 1000, TimeSignature: 4}
	DefaultDifficulty = DifficultyPoint{SpeedMultiplier: 1, GenerateTicks: true}
	DefaultSample     = SamplePoint{Bank: hitsample.BankNormal, Volume: 100}
	DefaultEffect     = EffectPoint{}
)

// ControlPoints is the set of timelines, each sorted by time.
type ControlPoints struct {
	Timing     []TimingPoint
	Difficulty []DifficultyPoint
	Sample     []SamplePoint
	Effect     []EffectPoint
}

// indexAt returns the index of the last point at or before t, or -1.
func indexAt(n int, t float64, timeOf func(int) float64) int {
	return sort.Search(n, func(i int) bool { return timeOf(i) > t }) - 1
}

// TimingAt returns the active timing point. Before the first red line the
// first one applies.
func (c *ControlPoints) TimingAt(t float64) TimingPoint {
	if len(c.Timing) == 0 {
		return DefaultTiming
	}
	i := indexAt(len(c.Timing), t, func(i int) float64 { return c.Timing[i].Time })
	return c.Timing[max(i, 0)]
}

func (c *ControlPoints) DifficultyAt(t float64) DifficultyPoint {
	i := indexAt(len(c.Difficulty), t, func(i int) float64 { return c.Difficulty[i].Time })
	if i < 0 {
		return DefaultDifficulty
	}
	return c.Difficulty[i]
}

// SampleAt returns the active sample point. Before the first one the first
// applies.
func (c *ControlPoints) SampleAt(t float64) SamplePoint {
	if len(c.Sample) == 0 {
		return DefaultSample
	}
	i := indexAt(len(c.Sample), t, func(i int) float64 { return c.Sample[i].Time })
	return c.Sample[max(i, 0)]
}

func (c *ControlPoints) EffectAt(t float64) EffectPoint {
	i := indexAt(len(c.Effect), t, func(i int) float64 { return c.Effect[i].Time })
	if i < 0 {
		return DefaultEffect
	}
	return c.Effect[i]
}

// SamplesBetween returns the sample point active at start followed by every
// sample point that begins strictly inside (start, end).
func (c *ControlPoints) SamplesBetween(start, end float64) []SamplePoint {
	out := []SamplePoint{c.SampleAt(start)}
	for _, p := range c.Sample {
		if p.Time > start && p.Time < end {
			out = append(out, p)
		}
	}
	return out
}

// insertIndex keeps insertion order stable for equal times.
func insertIndex(n int, t float64, timeOf func(int) float64) int {
	return sort.Search(n, func(i int) bool { return timeOf(i) > t })
}

func (c *ControlPoints) AddTiming(p TimingPoint) {
	i := insertIndex(len(c.Timing), p.Time, func(i int) float64 { return c.Timing[i].Time })
	c.Timing = slices.Insert(c.Timing, i, p)
}

func (c *ControlPoints) AddDifficulty(p DifficultyPoint) {
	i := insertIndex(len(c.Difficulty), p.Time, func(i int) float64 { return c.Difficulty[i].Time })
	c.Difficulty = slices.Insert(c.Difficulty, i, p)
}

func (c *ControlPoints) AddSample(p SamplePoint) {
	i := insertIndex(len(c.Sample), p.Time, func(i int) float64 { return c.Sample[i].Time })
	c.Sample = slices.Insert(c.Sample, i, p)
}

func (c *ControlPoints) AddEffect(p EffectPoint) {
	i := insertIndex(len(c.Effect), p.Time, func(i int) float64 { return c.Effect[i].Time })
	c.Effect = slices.Insert(c.Effect, i, p)
}

// Clone returns a deep copy.
func (c *ControlPoints) Clone() *ControlPoints {
	return &ControlPoints{
		Timing:     slices.Clone(c.Timing),
		Difficulty: slices.Clone(c.Difficulty),
		Sample:     slices.Clone(c.Sample),
		Effect:     slices.Clone(c.Effect),
	}
}
