package audio

import (
	"errors"
	"math"
)

// boolSource replays a fixed classification.
type boolSource struct {
	speech []bool
	pos    int
	frame  Frame
	err    error
	failAt int
}

func newBoolSource(speech []bool) *boolSource {
	return &boolSource{speech: speech, failAt: -1}
}

func (s *boolSource) Scan() bool {
	if s.pos >= len(s.speech) {
		return false
	}
	if s.pos == s.failAt {
		s.err = errors.New("classifier exploded")
		return false
	}
	s.frame = Frame{Index: s.pos, IsSpeech: s.speech[s.pos]}
	s.pos++
	return true
}

func (s *boolSource) Frame() Frame { return s.frame }
func (s *boolSource) Err() error   { return s.err }

// speechPattern returns n frames that are speech except in [silentFrom, silentTo).
func speechPattern(n, silentFrom, silentTo int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = i < silentFrom || i >= silentTo
	}
	return out
}

// countingClassifier records every frame it sees.
type countingClassifier struct {
	sizes []int
	err   error
}

func (c *countingClassifier) IsSpeech(frame []byte, sampleRate int) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.sizes = append(c.sizes, len(frame))
	return len(c.sizes)%2 == 0, nil
}

// toneSamples builds a 440 Hz tone where loud is true and digital silence
// elsewhere; loud reports per millisecond.
func toneSamples(totalMS int, loud func(ms int) bool) []int16 {
	samplesPerMS := SampleRate / 1000
	samples := make([]int16, totalMS*samplesPerMS)
	for i := range samples {
		if !loud(i / samplesPerMS) {
			continue
		}
		t := float64(i) / SampleRate
		samples[i] = int16(12000 * math.Sin(2*math.Pi*440*t))
	}
	return samples
}
