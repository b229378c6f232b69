// Package mods defines the modifier capabilities the conversion pipeline
// applies and a set of concrete modifiers.
package mods

import (
	"errors"
	"fmt"
	"strings"

	"osuconv/beatmap"
	"osuconv/difficulty"
	"osuconv/objects"
)

// Mod is any modifier. Capabilities are discovered with type assertions.
type Mod interface {
	Acronym() string
}

// DifficultyMod changes difficulty settings before objects are built.
type DifficultyMod interface {
	Mod
	ApplyToDifficulty(d *difficulty.Difficulty)
}

// ForceDifficultyMod is a DifficultyMod whose values win over every other
// DifficultyMod. It is applied a second time after all of them.
type ForceDifficultyMod interface {
	DifficultyMod
	ForcesDifficulty() bool
}

// Settings is the context passed to DifficultyWithSettingsMod.
type Settings struct {
	Mode objects.Mode
	Mods []Mod
	// CustomSpeedMultiplier is a free playback rate on top of rate mods; 1 is normal speed.
	CustomSpeedMultiplier float64
}

// DifficultyWithSettingsMod changes difficulty with knowledge of the mode,
// the other mods and the playback rate.
type DifficultyWithSettingsMod interface {
	Mod
	ApplyToDifficultyWithSettings(d *difficulty.Difficulty, s Settings)
}

// HitObjectMod changes each object after its defaults are applied.
type HitObjectMod interface {
	Mod
	ApplyToHitObject(o objects.HitObject) error
}

// BeatmapMod changes the finished beatmap after stacking.
type BeatmapMod interface {
	Mod
	ApplyToBeatmap(b *beatmap.Beatmap) error
}

var ErrUnknownMod = errors.New("unknown mod")

// Parse reads a mod list like "HR,DT" or "HRDT".
func Parse(s string) ([]Mod, error) {
	s = strings.ToUpper(strings.NewReplacer(",", "", " ", "", "+", "").Replace(s))
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMod, s)
	}
	var out []Mod
	for i := 0; i < len(s); i += 2 {
		acronym := s[i : i+2]
		var m Mod
		switch acronym {
		case "HR":
			m = HardRock{}
		case "EZ":
			m = Easy{}
		case "DT", "NC":
			m = DoubleTime()
		case "HT":
			m = HalfTime()
		case "MR":
			m = Mirror{}
		case "RE":
			m = ReallyEasy{}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMod, acronym)
		}
		out = append(out, m)
	}
	return out, nil
}

// Find returns the first mod of type T.
func Find[T Mod](ms []Mod) (T, bool) {
	for _, m := range ms {
		if t, ok := m.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Acronyms joins the acronyms of ms.
func Acronyms(ms []Mod) string {
	var b strings.Builder
	for _, m := range ms {
		b.WriteString(m.Acronym())
	}
	return b.String()
}
