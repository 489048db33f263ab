// Package splitter runs the decode, classify, detect, merge and export stages
// for one audio file at a time.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/user/audio-splitter/internal/audio"
	"github.com/user/audio-splitter/internal/export"
)

// Options controls segmentation. Every field is required; there are no
// defaults at this level.
type Options struct {
	// FrameMS is the VAD frame duration: 10, 20 or 30.
	FrameMS int
	// VADMode is the classifier aggressiveness, 0-3. It is only checked
	// here; the classifier passed to New is expected to be built with it.
	VADMode int
	// SilenceMS is the minimum run of non-speech that triggers a cut.
	SilenceMS int
	// MinChunkSec is the minimum duration of an output segment.
	MinChunkSec float64
}

// maxMinChunkSec keeps MinChunkMS within int32 milliseconds.
const maxMinChunkSec = math.MaxInt32 / 1000

// MinChunkMS converts MinChunkSec to whole milliseconds.
func (o Options) MinChunkMS() int {
	return int(o.MinChunkSec * 1000)
}

func (o Options) Validate() error {
	if !audio.ValidFrameMS(o.FrameMS) {
		return fmt.Errorf("%w: frame_ms must be 10, 20 or 30, got %d", audio.ErrConfiguration, o.FrameMS)
	}
	if o.VADMode < 0 || o.VADMode > 3 {
		return fmt.Errorf("%w: vad_mode must be between 0 and 3, got %d", audio.ErrConfiguration, o.VADMode)
	}
	if o.SilenceMS <= 0 {
		return fmt.Errorf("%w: silence_ms must be positive, got %d", audio.ErrConfiguration, o.SilenceMS)
	}
	if !(o.MinChunkSec > 0) || o.MinChunkSec > maxMinChunkSec {
		return fmt.Errorf("%w: min_chunk_sec must be in (0, %d], got %v", audio.ErrConfiguration, maxMinChunkSec, o.MinChunkSec)
	}
	return nil
}

// Result describes one completed run.
type Result struct {
	RunID     uuid.UUID
	Input     string
	OutputDir string
	TotalMS   int
	Segments  []audio.Segment
	Artifacts []export.Artifact
}

// Splitter owns its classifier. Close releases it.
type Splitter struct {
	opts       Options
	decoder    audio.Decoder
	classifier audio.Classifier
	exporter   export.Exporter
}

func New(opts Options, decoder audio.Decoder, classifier audio.Classifier, exporter export.Exporter) (*Splitter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if decoder == nil || classifier == nil || exporter == nil {
		return nil, errors.New("splitter needs a decoder, a classifier and an exporter")
	}

	return &Splitter{
		opts:       opts,
		decoder:    decoder,
		classifier: classifier,
		exporter:   exporter,
	}, nil
}

// Segment runs the pure stages over an already decoded buffer.
func (s *Splitter) Segment(buf *audio.Buffer) ([]audio.Segment, error) {
	frames, err := audio.NewFrameScanner(buf, s.opts.FrameMS, s.classifier)
	if err != nil {
		return nil, err
	}

	segments, err := audio.DetectSegments(frames, s.opts.FrameMS, s.opts.SilenceMS, buf.DurationMS())
	if err != nil {
		return nil, fmt.Errorf("failed to detect segments: %w", err)
	}

	return audio.MergeShortSegments(segments, s.opts.MinChunkMS()), nil
}

// Split processes one file. outputDir may be empty, in which case chunks go
// to "<input without extension>_chunks". Export failures of single chunks
// are returned together with the partial result.
func (s *Splitter) Split(ctx context.Context, path, outputDir string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &Result{
		RunID:     uuid.New(),
		Input:     path,
		OutputDir: outputDir,
	}
	if result.OutputDir == "" {
		result.OutputDir = DefaultOutputDir(path)
	}

	logger := log.With().Str("run_id", result.RunID.String()).Str("input", path).Logger()

	buf, err := s.decoder.Decode(path)
	if err != nil {
		return nil, err
	}
	result.TotalMS = buf.DurationMS()

	segments, err := s.Segment(buf)
	if err != nil {
		return nil, err
	}
	result.Segments = segments

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts, exportErr := s.exporter.Export(buf, segments, result.OutputDir)
	result.Artifacts = artifacts

	logger.Info().
		Int("total_ms", result.TotalMS).
		Int("segments", len(segments)).
		Int("chunks", len(artifacts)).
		Str("output_dir", result.OutputDir).
		Dur("elapsed", time.Since(started)).
		Msg("Split audio")

	return result, exportErr
}

// Factory builds a Splitter with its own classifier. SplitAll calls it once
// per file so concurrent runs never share a classifier.
type Factory func() (*Splitter, error)

// SplitAll processes independent files with at most workers running at once.
// Results keep the order of paths; a file that fails leaves a nil entry and
// its error is joined into the returned error. With more than one input and
// a non-empty outputDir, each file gets its own subdirectory. Inputs whose
// chunk directories would coincide get a "_<n>" suffix, n being the input's
// 1-based position.
func SplitAll(ctx context.Context, factory Factory, paths []string, outputDir string, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	dirs := outputDirs(paths, outputDir)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := splitOne(ctx, factory, path, dirs[i])
			results[i] = res
			if err != nil {
				log.Error().Err(err).Str("input", path).Msg("Failed to split audio")
				errs[i] = fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}

	// Workers report through errs, so Wait never fails.
	_ = g.Wait()
	return results, errors.Join(errs...)
}

func splitOne(ctx context.Context, factory Factory, path, dir string) (*Result, error) {
	s, err := factory()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Split(ctx, path, dir)
}

// Close tears down the classifier when it holds resources.
func (s *Splitter) Close() error {
	if c, ok := s.classifier.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DefaultOutputDir returns "<input without extension>_chunks".
func DefaultOutputDir(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_chunks"
}

func chunkDirName(path string) string {
	return filepath.Base(DefaultOutputDir(path))
}

// outputDirs resolves one distinct chunk directory per input.
func outputDirs(paths []string, outputDir string) []string {
	dirs := make([]string, len(paths))
	used := make(map[string]bool, len(paths))

	for i, path := range paths {
		dir := outputDir
		switch {
		case dir == "":
			dir = DefaultOutputDir(path)
		case len(paths) > 1:
			dir = filepath.Join(outputDir, chunkDirName(path))
		}

		unique := dir
		for n := i + 1; used[dirKey(unique)]; n++ {
			unique = fmt.Sprintf("%s_%d", dir, n)
		}
		if unique != dir {
			log.Warn().Str("input", path).Str("output_dir", unique).Msg("Chunk directory already taken, using suffix")
		}

		used[dirKey(unique)] = true
		dirs[i] = unique
	}
	return dirs
}

func dirKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
