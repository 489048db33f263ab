package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/internal/export"
	"github.com/user/audio-splitter/internal/stt"
)

const defaultBaseURL = "https://api.deepgram.com/v1/listen"

var _ stt.Transcriber = (*DeepgramTranscriber)(nil)

type DeepgramTranscriber struct {
	apiKey    string
	model     string
	language  string
	punctuate bool

	baseURL string
	client  *http.Client
}

type DeepgramResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func NewDeepgramTranscriber(apiKey, model, language string, punctuate bool) *DeepgramTranscriber {
	return &DeepgramTranscriber{
		apiKey:    apiKey,
		model:     model,
		language:  language,
		punctuate: punctuate,
		baseURL:   defaultBaseURL,
		client:    &http.Client{},
	}
}

// WithBaseURL points the transcriber at another endpoint.
func (d *DeepgramTranscriber) WithBaseURL(baseURL string) *DeepgramTranscriber {
	d.baseURL = baseURL
	return d
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, artifact export.Artifact) (*stt.Transcript, error) {
	wavData, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file: %w", err)
	}

	params := url.Values{}
	if d.model != "" {
		params.Set("model", d.model)
	}
	if d.language != "" {
		params.Set("language", d.language)
	}
	params.Set("punctuate", strconv.FormatBool(d.punctuate))
	params.Set("smart_format", "true")

	fullURL := d.baseURL + "?" + params.Encode()

	log.Debug().
		Str("url", fullURL).
		Str("chunk", artifact.Name).
		Int("audio_size_bytes", len(wavData)).
		Msg("Making Deepgram API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(wavData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Deepgram API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Deepgram API error response")
		return nil, fmt.Errorf("Deepgram API error %d: %s", resp.StatusCode, string(body))
	}

	var result DeepgramResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	transcript := stt.NewTranscript(artifact, "deepgram", d.language)
	if len(result.Results.Channels) == 0 {
		log.Debug().Str("chunk", artifact.Name).Msg("No channels in Deepgram response")
		return transcript, nil
	}

	channel := result.Results.Channels[0]
	if channel.DetectedLanguage != "" {
		transcript.Language = channel.DetectedLanguage
	}
	if len(channel.Alternatives) == 0 {
		return transcript, nil
	}

	best := channel.Alternatives[0]
	transcript.Text = best.Transcript
	if best.Transcript != "" {
		seg := stt.Segment{
			Text:       best.Transcript,
			Confidence: best.Confidence,
		}
		if n := len(best.Words); n > 0 {
			seg.Start = best.Words[0].Start
			seg.End = best.Words[n-1].End
		}
		transcript.Segments = append(transcript.Segments, seg)
	}

	log.Debug().
		Str("chunk_id", artifact.ID.String()).
		Float64("confidence", best.Confidence).
		Msg("Deepgram transcription completed")

	return transcript, nil
}

func (d *DeepgramTranscriber) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
