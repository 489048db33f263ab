package audio

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSegments(t *testing.T) {
	tests := []struct {
		name      string
		speech    []bool
		frameMS   int
		silenceMS int
		totalMS   int
		want      []Segment
	}{
		{
			name:      "single cut once the run reaches silence_ms",
			speech:    speechPattern(500, 100, 175), // silent 2000-3500 ms
			frameMS:   20,
			silenceMS: 1000,
			totalMS:   10000,
			want:      []Segment{{0, 3000}, {3000, 10000}},
		},
		{
			name:      "no frames",
			speech:    nil,
			frameMS:   30,
			silenceMS: 1000,
			totalMS:   25,
			want:      []Segment{{0, 25}},
		},
		{
			name:      "silence never long enough",
			speech:    speechPattern(100, 10, 40),
			frameMS:   30,
			silenceMS: 1000,
			totalMS:   3000,
			want:      []Segment{{0, 3000}},
		},
		{
			name:      "long silence cuts repeatedly",
			speech:    speechPattern(10, 0, 10),
			frameMS:   30,
			silenceMS: 60,
			totalMS:   300,
			want:      []Segment{{0, 60}, {60, 120}, {120, 180}, {180, 240}, {240, 300}},
		},
		{
			name:      "partial tail stays in last segment",
			speech:    speechPattern(33, 0, 33),
			frameMS:   30,
			silenceMS: 450,
			totalMS:   1015,
			want:      []Segment{{0, 450}, {450, 900}, {900, 1015}},
		},
		{
			name:      "frames needed rounds up",
			speech:    speechPattern(60, 10, 44), // 34 silent frames of 30 ms
			frameMS:   30,
			silenceMS: 1000,
			totalMS:   1800,
			want:      []Segment{{0, 1320}, {1320, 1800}},
		},
		{
			name:      "one frame short of the threshold",
			speech:    speechPattern(60, 10, 43),
			frameMS:   30,
			silenceMS: 1000,
			totalMS:   1800,
			want:      []Segment{{0, 1800}},
		},
		{
			name:      "speech resets the run",
			speech:    []bool{false, false, true, false, false, false, true},
			frameMS:   10,
			silenceMS: 30,
			totalMS:   70,
			want:      []Segment{{0, 60}, {60, 70}},
		},
		{
			name:      "empty buffer",
			speech:    nil,
			frameMS:   10,
			silenceMS: 30,
			totalMS:   0,
			want:      []Segment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSegments(newBoolSource(tt.speech), tt.frameMS, tt.silenceMS, tt.totalMS)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DetectSegments() mismatch (-want +got):\n%s", diff)
			}
			assertCoverage(t, got, tt.totalMS)
		})
	}
}

func TestDetectSegmentsValidation(t *testing.T) {
	_, err := DetectSegments(newBoolSource(nil), 25, 1000, 1000)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = DetectSegments(newBoolSource(nil), 30, 0, 1000)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestDetectSegmentsPropagatesClassifierError(t *testing.T) {
	src := newBoolSource(speechPattern(10, 0, 10))
	src.failAt = 4

	segs, err := DetectSegments(src, 10, 20, 100)
	require.Error(t, err)
	assert.Nil(t, segs)
}

func TestDetectSegmentsWithEnergyClassifier(t *testing.T) {
	// Tone everywhere except 2000-3500 ms.
	buf := NewBufferFromSamples(toneSamples(10000, func(ms int) bool {
		return ms < 2000 || ms >= 3500
	}))

	c, err := NewEnergyClassifier(3)
	require.NoError(t, err)

	frames, err := NewFrameScanner(buf, 20, c)
	require.NoError(t, err)

	got, err := DetectSegments(frames, 20, 1000, buf.DurationMS())
	require.NoError(t, err)
	assert.Equal(t, []Segment{{0, 3000}, {3000, 10000}}, got)
}

func assertCoverage(t *testing.T, segs []Segment, totalMS int) {
	t.Helper()
	if totalMS == 0 {
		assert.Empty(t, segs)
		return
	}
	require.NotEmpty(t, segs)
	assert.Equal(t, 0, segs[0].StartMS)
	assert.Equal(t, totalMS, segs[len(segs)-1].EndMS)
	for i, s := range segs {
		assert.Greater(t, s.EndMS, s.StartMS, "segment %d", i)
		if i > 0 {
			assert.Equal(t, segs[i-1].EndMS, s.StartMS, "gap before segment %d", i)
		}
	}
}
