// Package difficulty holds beatmap difficulty settings and the conversions
// between them and gameplay quantities.
package difficulty

import "math"

// Difficulty is a beatmap's [Difficulty] section.
type Difficulty struct {
	CircleSize        float64
	ApproachRate      float64
	OverallDifficulty float64
	DrainRate         float64
	SliderMultiplier  float64
	SliderTickRate    float64
}

func Default() Difficulty {
	return Difficulty{
		CircleSize:        5,
		ApproachRate:      5,
		OverallDifficulty: 5,
		DrainRate:         5,
		SliderMultiplier:  1.4,
		SliderTickRate:    1,
	}
}

const (
	PreemptMin = 450.0
	PreemptMid = 1200.0
	PreemptMax = 1800.0

	// playfield objects are 128px wide at scale 1
	ObjectRadius = 64.0

	// broken gamefield rounding allowance from stable
	scaleFudge = 1.00041

	// droid's historic scale at CS 5.2450170716245195
	oldDroidScaleOffset = 5.2450170716245195
)

func ApproachRateToPreempt(ar float64) float64 {
	if ar < 5 {
		return PreemptMid + 120*(5-ar)
	} else if ar == 5 {
		return PreemptMid
	} else {
		return PreemptMid - 150*(ar-5)
	}
}

func PreemptToAR(preempt float64) float64 {
	if preempt > PreemptMid {
		return 5 - (preempt-PreemptMid)/120
	} else if preempt == PreemptMid {
		return 5
	} else {
		return 5 + (PreemptMid-preempt)/150
	}
}

// FadeIn is the fade-in duration for a given preempt.
func FadeIn(preempt float64) float64 {
	return 400 * math.Min(1, preempt/PreemptMin)
}

// CircleSizeToScale converts CS into the object scale used by standard.
func CircleSizeToScale(cs float64) float64 {
	return (1 - 0.7*(cs-5)/5) / 2 * scaleFudge
}

// ScaleToCircleSize is the inverse of CircleSizeToScale without the fudge.
func ScaleToCircleSize(scale float64) float64 {
	return 5 + 5*(1-2*scale)/0.7
}

// CircleSizeToOldDroidScale converts CS into the scale older osu!droid builds
// used for stacking.
func CircleSizeToOldDroidScale(cs float64) float64 {
	return (681.0/480.0)*(54.42-cs*4.48)*2/128 + 0.5*(11-oldDroidScaleOffset)/5
}

// StandardScaleToOldDroidScale maps a standard scale back to a droid scale.
func StandardScaleToOldDroidScale(scale float64) float64 {
	return CircleSizeToOldDroidScale(ScaleToCircleSize(scale))
}

// Windows are the hit windows in milliseconds for 300, 100 and 50.
type Windows struct {
	Great, Ok, Meh float64
}

func HitWindows(od float64) Windows {
	return Windows{
		Great: 80 - 6*od,
		Ok:    140 - 8*od,
		Meh:   200 - 10*od,
	}
}

// Clamp restricts the ranges the way stable does on load.
func (d *Difficulty) Clamp() {
	d.DrainRate = clamp(d.DrainRate, 0, 10)
	d.OverallDifficulty = clamp(d.OverallDifficulty, 0, 10)
	d.ApproachRate = clamp(d.ApproachRate, 0, 10)
	d.CircleSize = clamp(d.CircleSize, 0, 10)
	d.SliderMultiplier = clamp(d.SliderMultiplier, 0.4, 3.6)
	d.SliderTickRate = clamp(d.SliderTickRate, 0.5, 8)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
