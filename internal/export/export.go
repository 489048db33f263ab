package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/internal/audio"
)

const wavFormatPCM = 1

// Artifact is one exported segment. Index is 1-based and matches the
// chunk_<index>.wav name.
type Artifact struct {
	ID      uuid.UUID `json:"id"`
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	StartMS int       `json:"start_ms"`
	EndMS   int       `json:"end_ms"`
}

// Segment returns the span the artifact was cut from.
func (a Artifact) Segment() audio.Segment {
	return audio.Segment{StartMS: a.StartMS, EndMS: a.EndMS}
}

// EncodeError reports a single segment that could not be written.
type EncodeError struct {
	Index int
	Path  string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to export chunk %d to %s: %v", e.Index, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Exporter writes each segment of buf as an independent artifact under dir.
type Exporter interface {
	Export(buf *audio.Buffer, segments []audio.Segment, dir string) ([]Artifact, error)
}

// ChunkName returns the file name for the 1-based chunk index.
func ChunkName(index int) string {
	return fmt.Sprintf("chunk_%d.wav", index)
}

var _ Exporter = (*WAVExporter)(nil)

type WAVExporter struct{}

func NewWAVExporter() *WAVExporter {
	return &WAVExporter{}
}

// Export writes segments in order. A failed segment is logged and skipped;
// the returned error joins every EncodeError while the artifact list still
// holds everything that was written. Nothing already written is removed.
func (e *WAVExporter) Export(buf *audio.Buffer, segments []audio.Segment, dir string) ([]Artifact, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	artifacts := make([]Artifact, 0, len(segments))
	var errs []error

	for i, seg := range segments {
		index := i + 1
		name := ChunkName(index)
		path := filepath.Join(dir, name)

		if err := writeWAV(path, buf.Samples(seg)); err != nil {
			encErr := &EncodeError{Index: index, Path: path, Err: err}
			log.Error().
				Err(err).
				Int("index", index).
				Str("path", path).
				Int("start_ms", seg.StartMS).
				Int("end_ms", seg.EndMS).
				Msg("Failed to export chunk")
			errs = append(errs, encErr)
			continue
		}

		artifact := Artifact{
			ID:      uuid.New(),
			Index:   index,
			Name:    name,
			Path:    path,
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
		}
		artifacts = append(artifacts, artifact)

		log.Debug().
			Str("chunk_id", artifact.ID.String()).
			Str("path", path).
			Int("start_ms", seg.StartMS).
			Int("end_ms", seg.EndMS).
			Msg("Saved chunk")
	}

	return artifacts, errors.Join(errs...)
}

func writeWAV(path string, samples []int16) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close chunk file: %w", cerr)
		}
	}()

	data := make([]int, len(samples))
	for i, sample := range samples {
		data[i] = int(sample)
	}

	enc := wav.NewEncoder(f, audio.SampleRate, audio.SampleWidth*8, audio.Channels, wavFormatPCM)
	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: audio.Channels,
			SampleRate:  audio.SampleRate,
		},
		Data:           data,
		SourceBitDepth: audio.SampleWidth * 8,
	}

	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	return nil
}

// ReadWAV loads an exported chunk back into a Buffer.
func ReadWAV(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	intBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm buffer: %w", err)
	}
	if intBuf.Format.SampleRate != audio.SampleRate || intBuf.Format.NumChannels != audio.Channels {
		return nil, fmt.Errorf("unexpected format %d Hz x %d channels", intBuf.Format.SampleRate, intBuf.Format.NumChannels)
	}

	samples := make([]int16, len(intBuf.Data))
	for i, v := range intBuf.Data {
		samples[i] = int16(v)
	}
	return audio.NewBufferFromSamples(samples), nil
}
