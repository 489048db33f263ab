package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/rs/zerolog/log"
)

// resampleQuality is passed to beep.Resample; 4 is beep's recommended
// trade-off between speed and aliasing.
const resampleQuality = 4

var _ Decoder = (*FileDecoder)(nil)

// FileDecoder reads wav, mp3, flac and ogg/vorbis files and raw .pcm/.raw
// files that are already 16 kHz mono 16-bit. Everything else is resampled
// to 16 kHz and mixed down to mono.
type FileDecoder struct{}

func NewFileDecoder() *FileDecoder {
	return &FileDecoder{}
}

func (d *FileDecoder) Decode(path string) (*Buffer, error) {
	buf, err := d.decode(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &DecodeError{Path: path, Err: errors.New("no audio samples")}
	}

	log.Debug().
		Str("path", path).
		Int("samples", buf.NumSamples()).
		Int("duration_ms", buf.DurationMS()).
		Msg("Decoded audio")

	return buf, nil
}

func (d *FileDecoder) decode(path string) (*Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".pcm" || ext == ".raw" {
		pcm, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read raw pcm: %w", err)
		}
		return NewBuffer(pcm)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	if ext == ".wav" {
		defer f.Close()
		return decodeWAV(f)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		scale    float64
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
		scale = 1<<15 - 1
	case ".flac":
		streamer, format, err = flac.Decode(f)
		scale = 1 << 15
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
		scale = 1<<15 - 1
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read %s stream: %w", strings.TrimPrefix(ext, "."), err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != beep.SampleRate(SampleRate) {
		s = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(SampleRate), streamer)
	}

	return readMono(s, format.NumChannels, scale)
}

// decodeWAV reads integer PCM directly so samples at the target format
// come through unchanged.
func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}

	intBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav stream: %w", err)
	}

	channels := intBuf.Format.NumChannels
	rate := intBuf.Format.SampleRate
	if channels < 1 || rate <= 0 {
		return nil, fmt.Errorf("invalid wav format %d Hz x %d channels", rate, channels)
	}

	to16, err := pcm16Converter(intBuf.SourceBitDepth)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(intBuf.Data)/channels)
	for i := range samples {
		var sum int
		for c := 0; c < channels; c++ {
			sum += to16(intBuf.Data[i*channels+c])
		}
		samples[i] = int16(sum / channels)
	}

	if rate == SampleRate {
		return NewBufferFromSamples(samples), nil
	}
	return resample(samples, rate)
}

// pcm16Converter maps a sample of the given bit depth onto the 16-bit range.
func pcm16Converter(bitDepth int) (func(int) int, error) {
	switch bitDepth {
	case 8:
		return func(v int) int { return (v - 128) << 8 }, nil
	case 16:
		return func(v int) int { return v }, nil
	case 24:
		return func(v int) int { return v >> 8 }, nil
	case 32:
		return func(v int) int { return v >> 16 }, nil
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}
}

// resample converts 16-bit mono samples at rate to SampleRate.
func resample(samples []int16, rate int) (*Buffer, error) {
	pos := 0
	src := beep.StreamerFunc(func(out [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := 0
		for n < len(out) && pos < len(samples) {
			v := float64(samples[pos]) / (1 << 15)
			out[n] = [2]float64{v, v}
			n++
			pos++
		}
		return n, true
	})

	s := beep.Resample(resampleQuality, beep.SampleRate(rate), beep.SampleRate(SampleRate), src)
	return readMono(s, 1, 1<<15)
}

// readMono drains s into 16-bit mono PCM. beep always streams two channels;
// mono sources carry the same value in both. scale undoes the codec's
// integer-to-float conversion.
func readMono(s beep.Streamer, numChannels int, scale float64) (*Buffer, error) {
	var pcm []byte
	samples := make([][2]float64, 4096)
	var out [2]byte

	for {
		n, ok := s.Stream(samples)
		for _, sample := range samples[:n] {
			v := sample[0]
			if numChannels > 1 {
				v = (sample[0] + sample[1]) / 2
			}
			binary.LittleEndian.PutUint16(out[:], uint16(toInt16(v*scale)))
			pcm = append(pcm, out[:]...)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to stream samples: %w", err)
	}

	return NewBuffer(pcm)
}

func toInt16(v float64) int16 {
	scaled := math.Round(v)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
