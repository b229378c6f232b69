package objects

import (
	"cmp"
	"math"
	"slices"
)

// maxSliderLength caps the distance over which ticks are generated.
const maxSliderLength = 100000.0

type eventKind uint8

const (
	eventHead eventKind = iota
	eventTick
	eventRepeat
	eventTail
)

type sliderEvent struct {
	kind          eventKind
	spanIndex     int
	spanStartTime float64
	time          float64
	// pathProgress is progress along the forward path.
	pathProgress float64
}

// sliderEvents lays out the nested objects of a slider in time order.
func sliderEvents(startTime, spanDuration, velocity, tickDistance, totalDistance float64, spanCount int) []sliderEvent {
	length := math.Min(maxSliderLength, totalDistance)
	tickDistance = math.Min(math.Max(tickDistance, 0), length)

	// ticks too close to a span end are dropped
	minDistanceFromEnd := velocity * 10

	events := []sliderEvent{{
		kind:          eventHead,
		spanStartTime: startTime,
		time:          startTime,
	}}

	for span := 0; span < spanCount; span++ {
		spanStartTime := startTime + float64(span)*spanDuration
		reversed := span%2 == 1

		if tickDistance != 0 {
			var ticks []sliderEvent
			for d := tickDistance; d <= length; d += tickDistance {
				if d >= length-minDistanceFromEnd {
					break
				}
				pathProgress := d / length
				timeProgress := pathProgress
				if reversed {
					timeProgress = 1 - pathProgress
				}
				ticks = append(ticks, sliderEvent{
					kind:          eventTick,
					spanIndex:     span,
					spanStartTime: spanStartTime,
					time:          spanStartTime + timeProgress*spanDuration,
					pathProgress:  pathProgress,
				})
			}
			if reversed {
				slices.Reverse(ticks)
			}
			events = append(events, ticks...)
		}

		if span < spanCount-1 {
			events = append(events, sliderEvent{
				kind:          eventRepeat,
				spanIndex:     span,
				spanStartTime: spanStartTime,
				time:          spanStartTime + spanDuration,
				pathProgress:  float64((span + 1) % 2),
			})
		}
	}

	events = append(events, sliderEvent{
		kind:          eventTail,
		spanIndex:     spanCount - 1,
		spanStartTime: startTime + float64(spanCount-1)*spanDuration,
		time:          startTime + float64(spanCount)*spanDuration,
		pathProgress:  float64(spanCount % 2),
	})

	slices.SortStableFunc(events, func(a, b sliderEvent) int {
		return cmp.Compare(a.time, b.time)
	})
	return events
}
