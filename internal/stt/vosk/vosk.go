package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/internal/audio"
	"github.com/user/audio-splitter/internal/export"
	"github.com/user/audio-splitter/internal/stt"
)

// feedBytes is how much PCM is handed to the recognizer per call (0.5 s).
const feedBytes = audio.SampleRate * audio.SampleWidth / 2

var _ stt.Transcriber = (*VoskTranscriber)(nil)

// VoskTranscriber shares one loaded model across calls and creates a fresh
// recognizer per chunk, so chunks can be transcribed concurrently.
type VoskTranscriber struct {
	model    *vosk.VoskModel
	language string
}

type VoskResult struct {
	Text   string     `json:"text"`
	Result []VoskWord `json:"result"`
}

type VoskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

func NewVoskTranscriber(modelPath, language string) (*VoskTranscriber, error) {
	log.Info().Str("model_path", modelPath).Msg("Loading Vosk model")

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Vosk model from %s: %w", modelPath, err)
	}

	log.Info().Msg("Vosk model loaded successfully")

	return &VoskTranscriber{
		model:    model,
		language: language,
	}, nil
}

func (v *VoskTranscriber) Transcribe(ctx context.Context, artifact export.Artifact) (*stt.Transcript, error) {
	buf, err := export.ReadWAV(artifact.Path)
	if err != nil {
		return nil, err
	}

	recognizer, err := vosk.NewRecognizer(v.model, float64(audio.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create Vosk recognizer: %w", err)
	}
	defer recognizer.Free()
	recognizer.SetWords(1)

	transcript := stt.NewTranscript(artifact, "vosk", v.language)

	// Vosk emits a result at each endpoint it detects inside the chunk.
	pcm := buf.Bytes()
	for off := 0; off < len(pcm); off += feedBytes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := off + feedBytes
		if end > len(pcm) {
			end = len(pcm)
		}

		switch recognizer.AcceptWaveform(pcm[off:end]) {
		case -1:
			return nil, fmt.Errorf("failed to process audio chunk %s", artifact.Name)
		case 1:
			appendResult(transcript, recognizer.Result())
		}
	}
	appendResult(transcript, recognizer.FinalResult())

	texts := make([]string, 0, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		texts = append(texts, seg.Text)
	}
	transcript.Text = strings.Join(texts, " ")

	log.Debug().
		Str("chunk_id", artifact.ID.String()).
		Str("text", transcript.Text).
		Msg("Vosk transcription completed")

	return transcript, nil
}

func appendResult(t *stt.Transcript, jsonResult string) {
	if jsonResult == "" {
		return
	}

	var result VoskResult
	if err := json.Unmarshal([]byte(jsonResult), &result); err != nil {
		log.Warn().
			Err(err).
			Str("json", jsonResult).
			Msg("Failed to parse Vosk result")
		return
	}
	if result.Text == "" {
		return
	}

	seg := stt.Segment{
		ID:   len(t.Segments),
		Text: result.Text,
	}
	if len(result.Result) > 0 {
		var conf float64
		for _, w := range result.Result {
			conf += w.Conf
		}
		seg.Start = result.Result[0].Start
		seg.End = result.Result[len(result.Result)-1].End
		seg.Confidence = conf / float64(len(result.Result))
	}
	t.Segments = append(t.Segments, seg)
}

func (v *VoskTranscriber) Close() error {
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
