// Package audio turns a warning lead time and intensity label into an
// ordered countdown clip sequence and renders it to a single file with an
// external ffmpeg invocation.
package audio

import (
	"fmt"
	"strconv"
)

// Clip identifiers shared between the timeline builder and the clip set on
// disk. The renderer appends the file extension.
const (
	clipSilent  = "silent"
	clipSecond  = "second"
	clipTick    = "ding"
	clipArrival = "arrive"
)

// qualifierClips maps the second character of an intensity label to the
// spoken qualifier clip.
var qualifierClips = map[byte]string{
	'-': "intensity-weak",
	'+': "intensity-strong",
}

// postArrivalTicks is the fixed tick flourish after the arrival chime.
const postArrivalTicks = 5

// tensClip spells the tens digit of n, e.g. 25 -> "2x".
func tensClip(n int) string {
	return fmt.Sprintf("%dx", n/10)
}

// unitsClip spells the units digit of n, e.g. 25 -> "x5".
func unitsClip(n int) string {
	return fmt.Sprintf("x%d", n%10)
}

// BuildTimeline maps an intensity display label and a lead time to the
// ordered clip sequence for the renderer: the spoken intensity, an "N
// seconds remaining" lead-in, a per-second tick or number countdown sized
// so the arrival chime lands at predicted wave arrival, and a short
// post-arrival flourish. countdownDelay and playbackDelay are subtracted
// from the lead before sizing the countdown.
func BuildTimeline(label string, leadSeconds float64, countdownDelay, playbackDelay int) []string {
	clips := make([]string, 0, 16)

	// Spoken intensity: the level digit, then its qualifier.
	clips = append(clips, label[:1])
	qualifier := "intensity"
	if len(label) > 1 {
		if q, ok := qualifierClips[label[1]]; ok {
			qualifier = q
		}
	}
	clips = append(clips, qualifier, clipSilent)

	// Seconds actually available for the spoken countdown, minus one for
	// the leading silent clip already emitted.
	effective := int(leadSeconds) - countdownDelay - playbackDelay - 1

	// Lead-in: announce the remaining seconds.
	switch {
	case effective >= 20:
		clips = append(clips, tensClip(effective), unitsClip(effective), clipSecond)
		effective -= 2
	case effective > 10:
		clips = append(clips, clipSilent, unitsClip(effective), clipSecond)
		effective -= 2
	case effective > 0:
		clips = append(clips, strconv.Itoa(effective), clipSecond)
		effective -= 2
	}

	// Per-second countdown. Every iteration accounts for one second.
	for effective > 0 {
		switch {
		case effective%10 == 0 && effective >= 20:
			clips = append(clips, tensClip(effective), unitsClip(effective), clipSilent)
		case effective <= 10:
			clips = append(clips, strconv.Itoa(effective), clipSilent)
		default:
			clips = append(clips, clipTick)
		}
		effective--
	}

	clips = append(clips, clipArrival)
	for i := 0; i < postArrivalTicks; i++ {
		clips = append(clips, clipTick)
	}

	return clips
}
