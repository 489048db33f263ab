package splitter

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/audio-splitter/internal/audio"
	"github.com/user/audio-splitter/internal/export"
)

var testOpts = Options{FrameMS: 20, VADMode: 3, SilenceMS: 1000, MinChunkSec: 2.5}

// mapDecoder serves buffers by path.
type mapDecoder map[string]*audio.Buffer

func (d mapDecoder) Decode(path string) (*audio.Buffer, error) {
	buf, ok := d[path]
	if !ok {
		return nil, &audio.DecodeError{Path: path, Err: errors.New("no such file")}
	}
	return buf, nil
}

type closingClassifier struct {
	audio.Classifier
	closed *int32
}

func (c closingClassifier) Close() error {
	atomic.AddInt32(c.closed, 1)
	return nil
}

// talk builds speech with a 1.5 s pause starting at pauseAt ms.
func talk(totalMS, pauseAt int) *audio.Buffer {
	samples := make([]int16, totalMS*16)
	for i := range samples {
		ms := i / 16
		if ms >= pauseAt && ms < pauseAt+1500 {
			continue
		}
		samples[i] = int16(9000 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}
	return audio.NewBufferFromSamples(samples)
}

func newEnergySplitter(t *testing.T, decoder audio.Decoder) *Splitter {
	t.Helper()
	c, err := audio.NewEnergyClassifier(testOpts.VADMode)
	require.NoError(t, err)
	s, err := New(testOpts, decoder, c, export.NewWAVExporter())
	require.NoError(t, err)
	return s
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, testOpts.Validate())

	bad := []Options{
		{FrameMS: 25, VADMode: 3, SilenceMS: 1000, MinChunkSec: 5},
		{FrameMS: 30, VADMode: 4, SilenceMS: 1000, MinChunkSec: 5},
		{FrameMS: 30, VADMode: -1, SilenceMS: 1000, MinChunkSec: 5},
		{FrameMS: 30, VADMode: 3, SilenceMS: 0, MinChunkSec: 5},
		{FrameMS: 30, VADMode: 3, SilenceMS: 1000, MinChunkSec: 0},
		{FrameMS: 30, VADMode: 3, SilenceMS: 1000, MinChunkSec: math.NaN()},
		{FrameMS: 30, VADMode: 3, SilenceMS: 1000, MinChunkSec: math.Inf(1)},
		{FrameMS: 30, VADMode: 3, SilenceMS: 1000, MinChunkSec: 1e300},
		{FrameMS: 30, VADMode: 3, SilenceMS: 1000, MinChunkSec: maxMinChunkSec + 1},
	}
	for _, opts := range bad {
		err := opts.Validate()
		assert.True(t, errors.Is(err, audio.ErrConfiguration), "%+v", opts)
	}
}

func TestMinChunkMSAtLimit(t *testing.T) {
	opts := testOpts
	opts.MinChunkSec = maxMinChunkSec
	require.NoError(t, opts.Validate())
	assert.Equal(t, maxMinChunkSec*1000, opts.MinChunkMS())
	assert.Positive(t, opts.MinChunkMS())
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	c, err := audio.NewEnergyClassifier(0)
	require.NoError(t, err)

	_, err = New(Options{FrameMS: 15, SilenceMS: 1000, MinChunkSec: 5}, mapDecoder{}, c, export.NewWAVExporter())
	assert.True(t, errors.Is(err, audio.ErrConfiguration))
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lecture.mp3")
	buf := talk(10000, 2000)

	s := newEnergySplitter(t, mapDecoder{input: buf})
	defer s.Close()

	res, err := s.Split(context.Background(), input, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "lecture_chunks"), res.OutputDir)
	assert.Equal(t, 10000, res.TotalMS)
	assert.Equal(t, []audio.Segment{{StartMS: 0, EndMS: 3000}, {StartMS: 3000, EndMS: 10000}}, res.Segments)

	require.Len(t, res.Artifacts, 2)
	for i, artifact := range res.Artifacts {
		assert.Equal(t, i+1, artifact.Index)
		assert.Equal(t, res.Segments[i], artifact.Segment())
	}
}

func TestSplitMergesShortSegments(t *testing.T) {
	input := "short.wav"
	buf := talk(10000, 2000)

	c, err := audio.NewEnergyClassifier(3)
	require.NoError(t, err)
	opts := testOpts
	opts.MinChunkSec = 5.0
	s, err := New(opts, mapDecoder{input: buf}, c, export.NewWAVExporter())
	require.NoError(t, err)

	res, err := s.Split(context.Background(), input, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []audio.Segment{{StartMS: 0, EndMS: 10000}}, res.Segments)
}

func TestSplitDecodeError(t *testing.T) {
	s := newEnergySplitter(t, mapDecoder{})

	_, err := s.Split(context.Background(), "missing.wav", t.TempDir())
	var decErr *audio.DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestSplitCancelled(t *testing.T) {
	s := newEnergySplitter(t, mapDecoder{"a.wav": talk(3000, 1000)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Split(ctx, "a.wav", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitAll(t *testing.T) {
	out := t.TempDir()
	decoder := mapDecoder{
		"/in/one.wav":   talk(8000, 2000),
		"/in/two.wav":   talk(12000, 6000),
		"/in/three.wav": talk(4000, 500),
	}
	paths := []string{"/in/one.wav", "/in/missing.wav", "/in/two.wav", "/in/three.wav"}

	var closed, built int32
	factory := func() (*Splitter, error) {
		atomic.AddInt32(&built, 1)
		c, err := audio.NewEnergyClassifier(testOpts.VADMode)
		if err != nil {
			return nil, err
		}
		return New(testOpts, decoder, closingClassifier{Classifier: c, closed: &closed}, export.NewWAVExporter())
	}

	results, err := SplitAll(context.Background(), factory, paths, out, 2)
	require.Error(t, err)
	var decErr *audio.DecodeError
	assert.True(t, errors.As(err, &decErr))

	require.Len(t, results, 4)
	assert.Nil(t, results[1])
	for _, i := range []int{0, 2, 3} {
		require.NotNil(t, results[i], paths[i])
		assert.Equal(t, paths[i], results[i].Input)
		assert.Equal(t, filepath.Join(out, filepath.Base(DefaultOutputDir(paths[i]))), results[i].OutputDir)
		assert.NotEmpty(t, results[i].Artifacts)
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&built))
	assert.Equal(t, int32(4), atomic.LoadInt32(&closed))
}

func TestSplitAllSameStemInputs(t *testing.T) {
	out := t.TempDir()
	decoder := mapDecoder{
		"/a/ch1.wav": talk(10000, 2000),
		"/b/ch1.wav": talk(10000, 6000),
	}
	factory := func() (*Splitter, error) {
		c, err := audio.NewEnergyClassifier(testOpts.VADMode)
		if err != nil {
			return nil, err
		}
		return New(testOpts, decoder, c, export.NewWAVExporter())
	}

	results, err := SplitAll(context.Background(), factory, []string{"/a/ch1.wav", "/b/ch1.wav"}, out, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(out, "ch1_chunks"), results[0].OutputDir)
	assert.Equal(t, filepath.Join(out, "ch1_chunks_2"), results[1].OutputDir)
	assert.Equal(t, []audio.Segment{{StartMS: 0, EndMS: 3000}, {StartMS: 3000, EndMS: 10000}}, results[0].Segments)
	assert.Equal(t, []audio.Segment{{StartMS: 0, EndMS: 7000}, {StartMS: 7000, EndMS: 10000}}, results[1].Segments)

	for _, res := range results {
		for _, artifact := range res.Artifacts {
			chunk, err := export.ReadWAV(artifact.Path)
			require.NoError(t, err)
			assert.Equal(t, artifact.EndMS-artifact.StartMS, chunk.DurationMS(), artifact.Path)
		}
	}
}

func TestOutputDirs(t *testing.T) {
	assert.Equal(t,
		[]string{"rec/ch1_chunks", "rec/ch1_chunks_2", "rec/ch2_chunks"},
		outputDirs([]string{"rec/ch1.wav", "rec/ch1.mp3", "rec/ch2.wav"}, ""))

	assert.Equal(t,
		[]string{"out/ch1_chunks", "out/ch1_chunks_2", "out/ch1_chunks_3"},
		outputDirs([]string{"/a/ch1.wav", "/b/ch1.wav", "/c/ch1.flac"}, "out"))

	assert.Equal(t, []string{"out"}, outputDirs([]string{"/a/ch1.wav"}, "out"))
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, "/audio/ch1_chunks", DefaultOutputDir("/audio/ch1.m4b"))
	assert.Equal(t, "talk_chunks", DefaultOutputDir("talk"))
}
