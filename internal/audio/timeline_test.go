package audio

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTimelineFifteenSecondLead(t *testing.T) {
	t.Parallel()

	clips := BuildTimeline("5", 15, 2, 1)

	// 15s lead minus countdown delay 2, playback delay 1 and the leading
	// silent clip leaves 11 effective seconds: lead-in "…11 seconds", then
	// a spoken 9..1 countdown.
	want := []string{
		"5", "intensity", "silent",
		"silent", "x1", "second",
		"9", "silent", "8", "silent", "7", "silent", "6", "silent", "5", "silent",
		"4", "silent", "3", "silent", "2", "silent", "1", "silent",
		"arrive", "ding", "ding", "ding", "ding", "ding",
	}
	assert.Equal(t, want, clips)
}

func TestBuildTimelineEndsWithArrivalFlourish(t *testing.T) {
	t.Parallel()

	for _, lead := range []float64{3, 8, 15, 27, 45, 90} {
		clips := BuildTimeline("5", lead, 2, 1)

		require.GreaterOrEqual(t, len(clips), 6, "lead %v", lead)
		tail := clips[len(clips)-6:]
		assert.Equal(t, "arrive", tail[0], "lead %v", lead)
		for _, c := range tail[1:] {
			assert.Equal(t, "ding", c, "lead %v", lead)
		}
		assert.Equal(t, 1, countClip(clips, "arrive"), "exactly one arrival clip, lead %v", lead)
	}
}

func TestBuildTimelineNoNegativeClips(t *testing.T) {
	t.Parallel()

	for lead := 0.0; lead <= 60; lead++ {
		for _, clip := range BuildTimeline("6-", lead, 2, 1) {
			if n, err := strconv.Atoi(strings.TrimSuffix(clip, "x")); err == nil {
				assert.GreaterOrEqual(t, n, 0, "lead %v clip %q", lead, clip)
			}
			assert.False(t, strings.HasPrefix(clip, "-"), "lead %v clip %q", lead, clip)
		}
	}
}

func TestBuildTimelineQualifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label     string
		level     string
		qualifier string
	}{
		{"4", "4", "intensity"},
		{"5-", "5", "intensity-weak"},
		{"5+", "5", "intensity-strong"},
		{"6-", "6", "intensity-weak"},
		{"6+", "6", "intensity-strong"},
		{"7", "7", "intensity"},
	}
	for _, tt := range tests {
		clips := BuildTimeline(tt.label, 10, 2, 1)
		require.GreaterOrEqual(t, len(clips), 3, "label %s", tt.label)
		assert.Equal(t, tt.level, clips[0], "label %s", tt.label)
		assert.Equal(t, tt.qualifier, clips[1], "label %s", tt.label)
		assert.Equal(t, "silent", clips[2], "label %s", tt.label)
	}
}

func TestBuildTimelineExhaustedLead(t *testing.T) {
	t.Parallel()

	// Lead already consumed by the delays: no countdown, but the intensity
	// announcement and arrival flourish are still emitted.
	clips := BuildTimeline("5+", 3, 2, 1)
	want := []string{
		"5", "intensity-strong", "silent",
		"arrive", "ding", "ding", "ding", "ding", "ding",
	}
	assert.Equal(t, want, clips)
}

func TestBuildTimelineLongLeadSpeaksTensOfSeconds(t *testing.T) {
	t.Parallel()

	clips := BuildTimeline("6+", 35, 2, 1)

	// effective = 31: lead-in speaks "31 seconds"
	require.GreaterOrEqual(t, len(clips), 6)
	assert.Equal(t, []string{"6", "intensity-strong", "silent", "3x", "x1", "second"}, clips[:6])

	// the countdown announces the round 20-second mark
	assert.Contains(t, clips, "2x")
	assert.Contains(t, clips, "x0")

	// ticks fill the gap between spoken marks
	assert.Greater(t, countClip(clips, "ding"), 5)
}

func TestBuildTimelineSecondAccounting(t *testing.T) {
	t.Parallel()

	// Between the lead-in and the arrival chime every emitted group stands
	// for one second, so the countdown section length tracks the effective
	// lead exactly.
	clips := BuildTimeline("5", 25, 2, 1)
	effective := 25 - 2 - 1 - 1

	var seconds int
	// lead-in consumed 2 seconds
	seconds += 2
	i := 6 // after level, qualifier, silent, tens/units lead-in, "second"
	for ; clips[i] != "arrive"; i++ {
		switch clips[i] {
		case "ding":
			seconds++
		case "silent":
			// terminates a spoken group; second already counted
		default:
			if strings.HasSuffix(clips[i], "x") || strings.HasPrefix(clips[i], "x") {
				// tens/units pair counts once, on the tens clip
				if strings.HasSuffix(clips[i], "x") {
					seconds++
				}
			} else {
				seconds++
			}
		}
	}
	assert.Equal(t, effective, seconds)
}

func countClip(clips []string, name string) int {
	n := 0
	for _, c := range clips {
		if c == name {
			n++
		}
	}
	return n
}
