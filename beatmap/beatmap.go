// Package beatmap holds a playable beatmap: its difficulty, timing and objects.
package beatmap

import (
	"fmt"

	"osuconv/difficulty"
	"osuconv/objects"
	"osuconv/timing"
)

// Metadata identifies a beatmap.
type Metadata struct {
	Title, Artist, Creator, Version string
	BeatmapID, BeatmapSetID         int

	// MD5 is the checksum of the decoded .osu file.
	MD5 string
}

// Beatmap is the input and output of conversion.
type Beatmap struct {
	FormatVersion int
	StackLeniency float64
	Mode          objects.Mode
	Metadata      Metadata
	Difficulty    difficulty.Difficulty
	ControlPoints *timing.ControlPoints
	HitObjects    []objects.HitObject
}

func New() *Beatmap {
	return &Beatmap{
		FormatVersion: 14,
		StackLeniency: 0.7,
		Difficulty:    difficulty.Default(),
		ControlPoints: &timing.ControlPoints{},
	}
}

// Clone copies everything except the hit objects, which are shared.
// Conversion re-instantiates objects on its own.
func (b *Beatmap) Clone() *Beatmap {
	c := *b
	if b.ControlPoints != nil {
		c.ControlPoints = b.ControlPoints.Clone()
	}
	c.HitObjects = append([]objects.HitObject(nil), b.HitObjects...)
	return &c
}

// Counts tallies objects by kind, nested objects included.
type Counts struct {
	Circles, Sliders, Spinners   int
	Heads, Ticks, Repeats, Tails int
}

func (b *Beatmap) Counts() Counts {
	var c Counts
	for _, o := range b.HitObjects {
		switch o.(type) {
		case *objects.Circle:
			c.Circles++
		case *objects.Slider:
			c.Sliders++
		case *objects.Spinner:
			c.Spinners++
		default:
			panic(fmt.Sprintf("beatmap: unexpected top level object %T", o))
		}
		for _, n := range objects.Nested(o) {
			switch n.Kind() {
			case objects.KindSliderHead:
				c.Heads++
			case objects.KindSliderTick:
				c.Ticks++
			case objects.KindSliderRepeat:
				c.Repeats++
			case objects.KindSliderTail:
				c.Tails++
			}
		}
	}
	return c
}

// MaxCombo counts every circle, spinner and nested slider object.
func (b *Beatmap) MaxCombo() int {
	c := b.Counts()
	return c.Circles + c.Spinners + c.Heads + c.Ticks + c.Repeats + c.Tails
}

// MaxStackHeight is the largest absolute stack height.
func (b *Beatmap) MaxStackHeight() int {
	m := 0
	for _, o := range b.HitObjects {
		m = max(m, abs(o.Common().StackHeight))
	}
	return m
}

// Length is the time from the first object's start to the last object's end.
func (b *Beatmap) Length() float64 {
	if len(b.HitObjects) == 0 {
		return 0
	}
	end := 0.0
	for _, o := range b.HitObjects {
		end = max(end, o.EndTime())
	}
	return end - b.HitObjects[0].Common().StartTime
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
