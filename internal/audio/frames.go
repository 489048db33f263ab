package audio

import (
	"fmt"
)

// FrameSource yields classified frames in ascending index order.
type FrameSource interface {
	Scan() bool
	Frame() Frame
	Err() error
}

// FrameScanner classifies a Buffer one fixed-size frame at a time. Frames are
// produced lazily, the trailing chunk shorter than one frame is never
// classified, and the first classifier error stops the scan.
type FrameScanner struct {
	buf        *Buffer
	classifier Classifier
	frameBytes int

	next  int
	frame Frame
	err   error
}

var _ FrameSource = (*FrameScanner)(nil)

// NewFrameScanner fails with ErrConfiguration when frameMS is not 10, 20 or 30.
func NewFrameScanner(buf *Buffer, frameMS int, classifier Classifier) (*FrameScanner, error) {
	if !ValidFrameMS(frameMS) {
		return nil, fmt.Errorf("%w: frame_ms must be 10, 20 or 30, got %d", ErrConfiguration, frameMS)
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is nil", ErrConfiguration)
	}

	return &FrameScanner{
		buf:        buf,
		classifier: classifier,
		frameBytes: frameMS * bytesPerMS,
	}, nil
}

// NumFrames returns the number of complete frames in the buffer.
func (s *FrameScanner) NumFrames() int {
	return s.buf.Len() / s.frameBytes
}

func (s *FrameScanner) Scan() bool {
	if s.err != nil || s.next >= s.NumFrames() {
		return false
	}

	offset := s.next * s.frameBytes
	chunk := s.buf.Bytes()[offset : offset+s.frameBytes]

	isSpeech, err := s.classifier.IsSpeech(chunk, SampleRate)
	if err != nil {
		s.err = fmt.Errorf("failed to classify frame %d: %w", s.next, err)
		return false
	}

	s.frame = Frame{
		Index:    s.next,
		Offset:   offset,
		Length:   s.frameBytes,
		IsSpeech: isSpeech,
	}
	s.next++
	return true
}

func (s *FrameScanner) Frame() Frame {
	return s.frame
}

func (s *FrameScanner) Err() error {
	return s.err
}
