package audio

import (
	"encoding/binary"
	"fmt"
)

// Buffer holds 16 kHz mono 16-bit little-endian PCM. It is never modified
// after construction; slices returned from it share its memory and must be
// treated as read-only.
type Buffer struct {
	pcm []byte
}

// NewBuffer wraps already-normalized PCM bytes.
func NewBuffer(pcm []byte) (*Buffer, error) {
	if len(pcm)%(SampleWidth*Channels) != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of %d", len(pcm), SampleWidth*Channels)
	}
	return &Buffer{pcm: pcm}, nil
}

// NewBufferFromSamples encodes samples as little-endian PCM.
func NewBufferFromSamples(samples []int16) *Buffer {
	pcm := make([]byte, len(samples)*SampleWidth)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	return &Buffer{pcm: pcm}
}

// Bytes returns the underlying PCM.
func (b *Buffer) Bytes() []byte {
	return b.pcm
}

// Len returns the size of the buffer in bytes.
func (b *Buffer) Len() int {
	return len(b.pcm)
}

// NumSamples returns the number of samples per channel.
func (b *Buffer) NumSamples() int {
	return len(b.pcm) / (SampleWidth * Channels)
}

// DurationMS returns the buffer duration rounded up to the next millisecond,
// so a sub-millisecond tail still belongs to the timeline.
func (b *Buffer) DurationMS() int {
	return (b.NumSamples()*1000 + SampleRate - 1) / SampleRate
}

// Slice returns the bytes covered by seg. A segment ending at or past the
// buffer duration extends to the last byte, which keeps the tail that does
// not fill a whole millisecond.
func (b *Buffer) Slice(seg Segment) []byte {
	start := b.offset(seg.StartMS)
	end := b.offset(seg.EndMS)
	if seg.EndMS >= b.DurationMS() {
		end = len(b.pcm)
	}
	if start > end {
		start = end
	}
	return b.pcm[start:end]
}

// Samples decodes the bytes covered by seg into int16 samples.
func (b *Buffer) Samples(seg Segment) []int16 {
	raw := b.Slice(seg)
	samples := make([]int16, len(raw)/SampleWidth)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}

func (b *Buffer) offset(ms int) int {
	if ms <= 0 {
		return 0
	}
	off := ms * bytesPerMS
	if off > len(b.pcm) {
		return len(b.pcm)
	}
	return off
}
