package audio

import (
	"errors"
	"fmt"
)

const (
	SampleRate  = 16000
	Channels    = 1 // Mono
	SampleWidth = 2 // 16-bit little-endian

	bytesPerMS = SampleRate / 1000 * SampleWidth * Channels
)

// ErrConfiguration is wrapped by every invalid-option error.
var ErrConfiguration = errors.New("invalid configuration")

// Segment is a half-open millisecond interval [StartMS, EndMS) over a Buffer.
type Segment struct {
	StartMS int `json:"start_ms"`
	EndMS   int `json:"end_ms"`
}

// DurationMS returns the length of the segment.
func (s Segment) DurationMS() int {
	return s.EndMS - s.StartMS
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d ms, %d ms)", s.StartMS, s.EndMS)
}

// Frame is one fixed-duration chunk of a Buffer together with its classification.
type Frame struct {
	Index    int
	Offset   int
	Length   int
	IsSpeech bool
}

// Classifier decides whether a single frame of 16-bit mono PCM contains speech.
type Classifier interface {
	IsSpeech(frame []byte, sampleRate int) (bool, error)
}

// Decoder normalizes an audio file into a Buffer.
type Decoder interface {
	Decode(path string) (*Buffer, error)
}

// DecodeError reports an input that could not be normalized to the target format.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidFrameMS reports whether the VAD can classify frames of the given duration.
func ValidFrameMS(frameMS int) bool {
	switch frameMS {
	case 10, 20, 30:
		return true
	}
	return false
}
