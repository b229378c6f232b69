package mods

import (
	"osuconv/difficulty"
	"osuconv/objects"
)

// HardRock raises every setting and flips the playfield vertically.
type HardRock struct{}

func (HardRock) Acronym() string { return "HR" }

func (HardRock) ApplyToDifficulty(d *difficulty.Difficulty) {
	d.CircleSize = min(d.CircleSize*1.3, 10)
	d.ApproachRate = min(d.ApproachRate*1.4, 10)
	d.OverallDifficulty = min(d.OverallDifficulty*1.4, 10)
	d.DrainRate = min(d.DrainRate*1.4, 10)
}

func (HardRock) ApplyToHitObject(o objects.HitObject) error {
	return flipObject(o, false, true)
}

// Easy halves every setting.
type Easy struct{}

func (Easy) Acronym() string { return "EZ" }

func (Easy) ApplyToDifficulty(d *difficulty.Difficulty) {
	d.CircleSize /= 2
	d.ApproachRate /= 2
	d.OverallDifficulty /= 2
	d.DrainRate /= 2
}

// DifficultyAdjust overrides the settings that are set.
type DifficultyAdjust struct {
	CircleSize        *float64
	ApproachRate      *float64
	OverallDifficulty *float64
	DrainRate         *float64
}

func (DifficultyAdjust) Acronym() string        { return "DA" }
func (DifficultyAdjust) ForcesDifficulty() bool { return true }

func (m DifficultyAdjust) ApplyToDifficulty(d *difficulty.Difficulty) {
	if m.CircleSize != nil {
		d.CircleSize = *m.CircleSize
	}
	if m.ApproachRate != nil {
		d.ApproachRate = *m.ApproachRate
	}
	if m.OverallDifficulty != nil {
		d.OverallDifficulty = *m.OverallDifficulty
	}
	if m.DrainRate != nil {
		d.DrainRate = *m.DrainRate
	}
}

func forcedAR(ms []Mod) bool {
	da, ok := Find[DifficultyAdjust](ms)
	return ok && da.ApproachRate != nil
}

func forcedOD(ms []Mod) bool {
	da, ok := Find[DifficultyAdjust](ms)
	return ok && da.OverallDifficulty != nil
}

// RateAdjust changes playback speed. AR and OD are rescaled so that preempt
// and hit windows stay the same in real time.
type RateAdjust struct {
	acronym string
	Rate    float64
}

func DoubleTime() RateAdjust { return RateAdjust{acronym: "DT", Rate: 1.5} }
func HalfTime() RateAdjust   { return RateAdjust{acronym: "HT", Rate: 0.75} }

func (m RateAdjust) Acronym() string { return m.acronym }

// TrackRate is the rate including the custom speed multiplier.
func (m RateAdjust) TrackRate(s Settings) float64 {
	rate := m.Rate
	if s.CustomSpeedMultiplier > 0 {
		rate *= s.CustomSpeedMultiplier
	}
	return rate
}

func (m RateAdjust) ApplyToDifficultyWithSettings(d *difficulty.Difficulty, s Settings) {
	rate := m.TrackRate(s)
	if rate <= 0 || rate == 1 {
		return
	}
	if !forcedAR(s.Mods) {
		preempt := difficulty.ApproachRateToPreempt(d.ApproachRate) / rate
		d.ApproachRate = difficulty.PreemptToAR(preempt)
	}
	if !forcedOD(s.Mods) {
		great := difficulty.HitWindows(d.OverallDifficulty).Great / rate
		d.OverallDifficulty = (80 - great) / 6
	}
}

// ReallyEasy is osu!droid's beginner mod. It lowers AR further the faster the
// custom speed is, unless AR is forced.
type ReallyEasy struct{}

func (ReallyEasy) Acronym() string { return "RE" }

func (ReallyEasy) ApplyToDifficultyWithSettings(d *difficulty.Difficulty, s Settings) {
	if !forcedAR(s.Mods) {
		if _, ok := Find[Easy](s.Mods); ok {
			// undo Easy's halving before the flat reduction
			d.ApproachRate *= 2
			d.ApproachRate -= 0.5
		}
		d.ApproachRate -= 0.5
		if s.CustomSpeedMultiplier > 0 {
			d.ApproachRate -= s.CustomSpeedMultiplier - 1
		}
	}

	if s.Mode == objects.ModeDroid {
		d.CircleSize = max(d.CircleSize-1, 0)
	} else {
		d.CircleSize /= 2
	}
	if !forcedOD(s.Mods) {
		d.OverallDifficulty /= 2
	}
	d.DrainRate /= 2
}
