package audio

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// DetectSegments cuts the timeline after every run of silenceMS of
// consecutive non-speech frames. The run counter resets after each cut, so a
// long silence is cut again every silenceMS. The returned segments are
// contiguous, start at 0 and end at totalMS.
func DetectSegments(frames FrameSource, frameMS, silenceMS, totalMS int) ([]Segment, error) {
	if !ValidFrameMS(frameMS) {
		return nil, fmt.Errorf("%w: frame_ms must be 10, 20 or 30, got %d", ErrConfiguration, frameMS)
	}
	if silenceMS <= 0 {
		return nil, fmt.Errorf("%w: silence_ms must be positive, got %d", ErrConfiguration, silenceMS)
	}

	framesNeeded := (silenceMS + frameMS - 1) / frameMS

	boundaries := []int{0}
	silentRun := 0
	scanned := 0

	for frames.Scan() {
		frame := frames.Frame()
		scanned++

		if frame.IsSpeech {
			silentRun = 0
			continue
		}

		silentRun++
		if silentRun >= framesNeeded {
			boundaries = append(boundaries, frame.Index+1)
			silentRun = 0
		}
	}
	if err := frames.Err(); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(boundaries))
	for i, b := range boundaries {
		start := clampMS(b*frameMS, totalMS)
		end := totalMS
		if i+1 < len(boundaries) {
			end = clampMS(boundaries[i+1]*frameMS, totalMS)
		}
		if end <= start {
			continue
		}
		segments = append(segments, Segment{StartMS: start, EndMS: end})
	}

	log.Debug().
		Int("frames", scanned).
		Int("frames_needed", framesNeeded).
		Int("cuts", len(boundaries)-1).
		Int("segments", len(segments)).
		Int("total_ms", totalMS).
		Msg("Detected segment boundaries")

	return segments, nil
}

func clampMS(ms, totalMS int) int {
	if ms < 0 {
		return 0
	}
	if ms > totalMS {
		return totalMS
	}
	return ms
}
