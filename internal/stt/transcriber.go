package stt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/user/audio-splitter/internal/export"
)

// Transcript is the text recognised in one exported chunk. Segment times are
// seconds relative to the start of the chunk; StartMS/EndMS place the chunk
// on the original timeline.
type Transcript struct {
	ID        uuid.UUID `json:"id"`
	ChunkFile string    `json:"chunk_file"`
	Index     int       `json:"index"`
	StartMS   int       `json:"start_ms"`
	EndMS     int       `json:"end_ms"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Source    string    `json:"source"` // "vosk" or "deepgram"
	Segments  []Segment `json:"segments"`
}

type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// NewTranscript returns a transcript stub for artifact.
func NewTranscript(artifact export.Artifact, source, language string) *Transcript {
	return &Transcript{
		ID:        uuid.New(),
		ChunkFile: artifact.Name,
		Index:     artifact.Index,
		StartMS:   artifact.StartMS,
		EndMS:     artifact.EndMS,
		Language:  language,
		Source:    source,
		Segments:  []Segment{},
	}
}

// Transcriber interface for STT backends. Each call handles exactly one
// chunk file.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact export.Artifact) (*Transcript, error)
	Close() error
}

// Pool feeds artifacts to a Transcriber from a fixed number of workers.
type Pool struct {
	transcriber Transcriber
	workers     int
}

func NewPool(transcriber Transcriber, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		transcriber: transcriber,
		workers:     workers,
	}
}

// Run transcribes every artifact. A chunk that fails is logged and left out
// of the result; only context cancellation or an error from fn stops the
// run. fn, if non-nil, is called once per transcript in completion order and
// never concurrently. The returned transcripts are sorted by chunk index.
func (p *Pool) Run(ctx context.Context, artifacts []export.Artifact, fn func(*Transcript) error) ([]*Transcript, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var (
		mu          sync.Mutex
		transcripts []*Transcript
	)

	log.Info().Int("workers", p.workers).Int("chunks", len(artifacts)).Msg("Started STT worker pool")

	for _, artifact := range artifacts {
		artifact := artifact
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			transcript, err := p.transcriber.Transcribe(ctx, artifact)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().
					Err(err).
					Str("chunk_id", artifact.ID.String()).
					Str("chunk", artifact.Name).
					Msg("Failed to transcribe chunk")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()

			transcripts = append(transcripts, transcript)
			if fn != nil {
				if err := fn(transcript); err != nil {
					return fmt.Errorf("failed to handle transcript for %s: %w", artifact.Name, err)
				}
			}

			log.Debug().
				Str("chunk", artifact.Name).
				Int("segments", len(transcript.Segments)).
				Msg("Transcribed chunk")
			return nil
		})
	}

	err := g.Wait()

	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].Index < transcripts[j].Index
	})

	log.Info().Int("transcribed", len(transcripts)).Int("chunks", len(artifacts)).Msg("Stopped STT worker pool")
	return transcripts, err
}
