// Package convert turns a decoded beatmap into a playable one: objects are
// rebuilt, mods applied, nested objects generated and stacks assigned.
package convert

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"osuconv/beatmap"
	"osuconv/hitsample"
	"osuconv/logging"
	"osuconv/mods"
	"osuconv/objects"
	"osuconv/stacking"
	"osuconv/timing"
	"osuconv/vector"
)

var (
	// ErrNestedObject is returned when a source beatmap contains slider parts
	// as top level objects.
	ErrNestedObject = errors.New("nested object at top level")
	// ErrInvalidControlPoint is returned for non-finite positions or anchors.
	ErrInvalidControlPoint = errors.New("invalid control point")
)

// Options are the per-conversion settings that are not mods.
type Options struct {
	Mode objects.Mode
	// CustomSpeedMultiplier is a playback rate on top of rate mods. Zero means 1.
	CustomSpeedMultiplier float64
}

// Convert builds a playable beatmap from src. src is not modified.
func Convert(src *beatmap.Beatmap, ms []mods.Mod, opts Options) (*beatmap.Beatmap, error) {
	log := logging.Logger().With("beatmap", src.Metadata.Version, "mods", mods.Acronyms(ms))

	if err := ValidateControlPoints(src); err != nil {
		return nil, err
	}

	b := src.Clone()
	b.Mode = opts.Mode
	d := b.Difficulty
	log.Debug("cloned beatmap", "objects", len(src.HitObjects), "format", src.FormatVersion)

	objs, err := reinstantiate(src.HitObjects, src.FormatVersion, b.ControlPoints)
	if err != nil {
		return nil, err
	}
	objects.AssignCombos(objs)
	b.HitObjects = objs
	log.Debug("rebuilt objects", "objects", len(objs))

	for _, m := range ms {
		if dm, ok := m.(mods.DifficultyMod); ok {
			dm.ApplyToDifficulty(&d)
		}
	}
	log.Debug("applied difficulty mods", "ar", d.ApproachRate, "cs", d.CircleSize)

	if fm, ok := mods.Find[mods.ForceDifficultyMod](ms); ok && fm.ForcesDifficulty() {
		fm.ApplyToDifficulty(&d)
		log.Debug("reapplied forced difficulty", "mod", fm.Acronym(), "ar", d.ApproachRate)
	}

	speed := opts.CustomSpeedMultiplier
	if speed == 0 {
		speed = 1
	}
	settings := mods.Settings{Mode: opts.Mode, Mods: ms, CustomSpeedMultiplier: speed}
	for _, m := range ms {
		if sm, ok := m.(mods.DifficultyWithSettingsMod); ok {
			sm.ApplyToDifficultyWithSettings(&d, settings)
		}
	}
	b.Difficulty = d
	log.Debug("applied settings mods", "ar", d.ApproachRate, "od", d.OverallDifficulty)

	for _, o := range b.HitObjects {
		if err := o.ApplyDefaults(b.ControlPoints, b.Difficulty, b.Mode); err != nil {
			return nil, fmt.Errorf("apply defaults: %w", err)
		}
	}
	log.Debug("applied defaults")

	for _, m := range ms {
		hm, ok := m.(mods.HitObjectMod)
		if !ok {
			continue
		}
		for _, o := range b.HitObjects {
			if err := hm.ApplyToHitObject(o); err != nil {
				return nil, fmt.Errorf("%s: %w", hm.Acronym(), err)
			}
		}
	}
	log.Debug("applied object mods")

	stacking.PostProcess(b)
	log.Debug("stacked", "maxStack", b.MaxStackHeight())

	for _, m := range ms {
		if bm, ok := m.(mods.BeatmapMod); ok {
			if err := bm.ApplyToBeatmap(b); err != nil {
				return nil, fmt.Errorf("%s: %w", bm.Acronym(), err)
			}
		}
	}
	log.Debug("applied beatmap mods")

	return b, nil
}

// ConvertContext runs Convert on its own goroutine and gives up when ctx is
// done first. A panic during conversion is returned as an error.
func ConvertContext(ctx context.Context, src *beatmap.Beatmap, ms []mods.Mod, opts Options) (*beatmap.Beatmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		b   *beatmap.Beatmap
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("convert panicked: %v", r)}
			}
		}()
		b, err := Convert(src, ms, opts)
		done <- result{b: b, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.b, r.err
	}
}

// reinstantiate builds fresh objects so that conversion never mutates the
// source beatmap.
func reinstantiate(src []objects.HitObject, formatVersion int, cp *timing.ControlPoints) ([]objects.HitObject, error) {
	out := make([]objects.HitObject, 0, len(src))
	for i, o := range src {
		samples, err := hitsample.CloneAll(o.Common().Samples)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}

		var c objects.HitObject
		switch h := o.(type) {
		case *objects.Circle:
			c = objects.NewCircle(h.StartTime, h.Position, samples)
		case *objects.Spinner:
			c = objects.NewSpinner(h.StartTime, h.End, h.Position, samples)
		case *objects.Slider:
			nodes := make([][]hitsample.Info, 0, len(h.NodeSamples))
			for _, node := range h.NodeSamples {
				n, err := hitsample.CloneAll(node)
				if err != nil {
					return nil, fmt.Errorf("object %d: %w", i, err)
				}
				nodes = append(nodes, n)
			}
			s := objects.NewSlider(h.StartTime, h.Position, h.Path().Clone(), h.RepeatCount(), samples, nodes)
			s.TickDistanceMultiplier = h.TickDistanceMultiplier
			if formatVersion < 8 {
				// Before v8 the slider velocity also spread the ticks.
				s.TickDistanceMultiplier = 1 / cp.DifficultyAt(h.StartTime).SpeedMultiplier
			}
			c = s
		case *objects.SliderHead, *objects.SliderTick, *objects.SliderRepeat, *objects.SliderTail:
			return nil, fmt.Errorf("object %d (%v): %w", i, o.Kind(), ErrNestedObject)
		default:
			panic(fmt.Sprintf("convert: unexpected object %T", o))
		}

		c.Common().NewCombo = o.Common().NewCombo
		c.Common().ComboOffset = o.Common().ComboOffset
		out = append(out, c)
	}
	return out, nil
}

// ValidateControlPoints rejects beatmaps with non-finite positions or slider
// anchors.
func ValidateControlPoints(b *beatmap.Beatmap) error {
	for i, o := range b.HitObjects {
		if !o.Common().Position.IsFinite() {
			return fmt.Errorf("object %d at %v: position %v: %w", i, o.Common().StartTime, o.Common().Position, ErrInvalidControlPoint)
		}
		s, ok := o.(*objects.Slider)
		if !ok {
			continue
		}
		if j := slices.IndexFunc(s.Path().Anchors(), func(a vector.Vector2) bool { return !a.IsFinite() }); j >= 0 {
			return fmt.Errorf("object %d at %v: anchor %d: %w", i, o.Common().StartTime, j, ErrInvalidControlPoint)
		}
	}
	return nil
}
