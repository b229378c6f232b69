// Package stacking assigns stack heights to objects that overlap in time and
// space.
package stacking

import (
	"fmt"
	"math"

	"osuconv/beatmap"
	"osuconv/difficulty"
	"osuconv/logging"
	"osuconv/objects"
)

// StackDistance is the distance under which two objects stack, in osu!pixels.
const StackDistance = 3.0

// droidTimeWindow is the base stacking window of osu!droid in milliseconds.
const droidTimeWindow = 2000.0

type class uint8

const (
	classCircle class = iota
	classSlider
	classSpinner
)

func classify(o objects.HitObject) class {
	switch o.(type) {
	case *objects.Circle:
		return classCircle
	case *objects.Slider:
		return classSlider
	case *objects.Spinner:
		return classSpinner
	default:
		panic(fmt.Sprintf("stacking: unexpected object %T", o))
	}
}

func distance(o1, o2 objects.HitObject) float64 {
	return o1.Common().Position.Distance(o2.Common().Position)
}

func endDistance(from, to objects.HitObject) float64 {
	return from.EndPosition().Distance(to.Common().Position)
}

func addStackHeight(o objects.HitObject, delta int) {
	objects.SetStackHeight(o, o.Common().StackHeight+delta)
}

// PostProcess resets every stack height and recomputes them with the rules of
// the beatmap's mode and format version.
func PostProcess(b *beatmap.Beatmap) {
	objs := b.HitObjects
	for _, o := range objs {
		objects.SetStackHeight(o, 0)
	}
	if len(objs) == 0 {
		return
	}

	log := logging.Logger()
	switch {
	case b.Mode == objects.ModeDroid:
		log.Debug("stacking", "rules", "droid", "objects", len(objs))
		applyDroidStacking(objs, b.StackLeniency)
	case b.FormatVersion >= 6:
		log.Debug("stacking", "rules", "modern", "objects", len(objs))
		ApplyStacking(objs, b.StackLeniency, 0, len(objs)-1)
	default:
		log.Debug("stacking", "rules", "legacy", "format", b.FormatVersion, "objects", len(objs))
		applyStackingOld(objs, b.StackLeniency)
	}
}

// ApplyStacking stacks the objects in [startIndex, endIndex]. Stack heights in
// that range must be zero on entry; objects outside it that join a stack are
// reset as they are reached. Objects need their defaults applied.
func ApplyStacking(objs []objects.HitObject, stackLeniency float64, startIndex, endIndex int) {
	if len(objs) == 0 {
		return
	}
	startIndex = max(startIndex, 0)
	endIndex = min(endIndex, len(objs)-1)

	extendedEndIndex := endIndex
	if endIndex < len(objs)-1 {
		// Extend the end index to include objects they are stacked on.
		for i := endIndex; i >= startIndex; i-- {
			stackBaseIndex := i
			for n := stackBaseIndex + 1; n < len(objs); n++ {
				stackBase := objs[stackBaseIndex]
				if classify(stackBase) == classSpinner {
					break
				}
				objN := objs[n]
				if classify(objN) == classSpinner {
					continue
				}

				stackThreshold := objN.Common().TimePreempt * stackLeniency
				if objN.Common().StartTime-stackBase.EndTime() > stackThreshold {
					break
				}

				if distance(stackBase, objN) < StackDistance ||
					(classify(stackBase) == classSlider && endDistance(stackBase, objN) < StackDistance) {
					stackBaseIndex = n
					// not reset yet: past the update range
					objects.SetStackHeight(objN, 0)
				}
			}

			if stackBaseIndex > extendedEndIndex {
				extendedEndIndex = stackBaseIndex
				if extendedEndIndex == len(objs)-1 {
					break
				}
			}
		}
	}

	// Reverse pass. Objects that already carry a stack were handled through a
	// later object of an interleaved stack.
	extendedStartIndex := startIndex
	for i := extendedEndIndex; i > startIndex; i-- {
		n := i
		objI := objs[i]
		if objI.Common().StackHeight != 0 || classify(objI) == classSpinner {
			continue
		}

		stackThreshold := objI.Common().TimePreempt * stackLeniency

		switch classify(objI) {
		case classCircle:
			for n--; n >= 0; n-- {
				objN := objs[n]
				if classify(objN) == classSpinner {
					continue
				}
				if objI.Common().StartTime-objN.EndTime() > stackThreshold {
					break
				}

				// not reset yet: before the update range
				if n < extendedStartIndex {
					objects.SetStackHeight(objN, 0)
					extendedStartIndex = n
				}

				// Circles under the end of the last slider in a stack move
				// down and right instead.
				if classify(objN) == classSlider && endDistance(objN, objI) < StackDistance {
					offset := objI.Common().StackHeight - objN.Common().StackHeight + 1
					for j := n + 1; j <= i; j++ {
						objJ := objs[j]
						if endDistance(objN, objJ) < StackDistance {
							addStackHeight(objJ, -offset)
						}
					}
					// the slider becomes the base of a new stack in the outer loop
					break
				}

				if distance(objN, objI) < StackDistance {
					objects.SetStackHeight(objN, objI.Common().StackHeight+1)
					objI = objN
				}
			}

		case classSlider:
			// From the first slider in a stack on, stacking is always positive.
			for n--; n >= startIndex; n-- {
				objN := objs[n]
				if classify(objN) == classSpinner {
					continue
				}
				if objI.Common().StartTime-objN.Common().StartTime > stackThreshold {
					break
				}
				if endDistance(objN, objI) < StackDistance {
					objects.SetStackHeight(objN, objI.Common().StackHeight+1)
					objI = objN
				}
			}
		}
	}
}

// applyStackingOld is the stacking of format versions before 6. The time
// window runs from the current object's end time and moves forward with every
// object stacked on it.
func applyStackingOld(objs []objects.HitObject, stackLeniency float64) {
	for i, cur := range objs {
		if cur.Common().StackHeight != 0 && classify(cur) != classSlider {
			continue
		}

		startTime := cur.EndTime()
		sliderStack := 0

		// position2 is the slider end, or the position for anything else.
		position2 := cur.Common().Position
		if s, ok := cur.(*objects.Slider); ok {
			position2 = s.Position.Add(s.Path().PositionAt(1))
		}

		for j := i + 1; j < len(objs); j++ {
			objJ := objs[j]
			stackThreshold := cur.Common().TimePreempt * stackLeniency
			if objJ.Common().StartTime-stackThreshold > startTime {
				break
			}

			// Stable never updates the inner object, so its end time is its
			// start time here.
			if objJ.Common().Position.Distance(cur.Common().Position) < StackDistance {
				addStackHeight(cur, 1)
				startTime = objJ.Common().StartTime
			} else if objJ.Common().Position.Distance(position2) < StackDistance {
				// bump notes on a slider end down and right
				sliderStack++
				addStackHeight(objJ, -sliderStack)
				startTime = objJ.Common().StartTime
			}
		}
	}
}

// applyDroidStacking chains each object onto the previous one when they are
// close in time and space.
func applyDroidStacking(objs []objects.HitObject, stackLeniency float64) {
	if len(objs) == 0 {
		return
	}
	threshold := math.Sqrt(difficulty.StandardScaleToOldDroidScale(objs[0].Common().Scale))

	for i := 0; i < len(objs)-1; i++ {
		cur := objs[i]
		next := objs[i+1]
		if next.Common().StartTime-cur.Common().StartTime < droidTimeWindow*stackLeniency &&
			distance(next, cur) < threshold {
			objects.SetStackHeight(next, cur.Common().StackHeight+1)
		}
	}
}
