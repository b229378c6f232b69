package mods

import (
	"fmt"

	"osuconv/beatmap"
	"osuconv/objects"
	"osuconv/sliderpath"
	"osuconv/vector"
)

const (
	playfieldWidth  = 512.0
	playfieldHeight = 384.0
)

// Mirror flips the playfield horizontally once the beatmap is finished.
type Mirror struct{}

func (Mirror) Acronym() string { return "MR" }

func (Mirror) ApplyToBeatmap(b *beatmap.Beatmap) error {
	for _, o := range b.HitObjects {
		if err := flipObject(o, true, false); err != nil {
			return err
		}
	}
	return nil
}

// flipObject mirrors an object across the playfield centre lines.
func flipObject(o objects.HitObject, flipX, flipY bool) error {
	flip := func(p vector.Vector2, relative bool) vector.Vector2 {
		if flipX {
			p.X = -p.X
			if !relative {
				p.X += playfieldWidth
			}
		}
		if flipY {
			p.Y = -p.Y
			if !relative {
				p.Y += playfieldHeight
			}
		}
		return p
	}

	switch h := o.(type) {
	case *objects.Circle:
		h.Position = flip(h.Position, false)
	case *objects.Spinner:
		h.Position = flip(h.Position, false)
	case *objects.Slider:
		anchors := h.Path().Anchors()
		for i, a := range anchors {
			anchors[i] = flip(a, true)
		}
		h.SetPath(sliderpath.New(h.Path().Type(), anchors, h.Path().ExpectedDistance()))
		h.Reposition(flip(h.Position, false))
		if err := h.RebuildNested(); err != nil {
			return fmt.Errorf("flip slider at %v: %w", h.StartTime, err)
		}
	default:
		panic(fmt.Sprintf("mods: unexpected object %T", o))
	}
	return nil
}
