package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/user/audio-splitter/internal/store"
	"github.com/user/audio-splitter/internal/stt"
	"github.com/user/audio-splitter/internal/stt/deepgram"
	"github.com/user/audio-splitter/internal/stt/vosk"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe DIR...",
	Short: "Transcribe the chunks of split directories",
	Long: `Transcribe the chunks listed in each directory's manifest.jsonl.

Every chunk_<n>.wav gets a chunk_<n>.json next to it. Chunks that fail are
logged and skipped.

Examples:
  audio-splitter transcribe --stt-backend vosk lecture_chunks/
  STT_BACKEND=deepgram DEEPGRAM_API_KEY=... audio-splitter transcribe out/*`,
	Args: cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		applyFlagOverrides(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.STTBackend == "none" {
			return errors.New("no STT backend configured, set STT_BACKEND or --stt-backend")
		}

		var errs []error
		for _, dir := range args {
			st, err := store.NewFileStore(dir)
			if err != nil {
				return err
			}
			if err := transcribeDir(cmd.Context(), st); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	addSTTFlags(transcribeCmd)
	addSTTFlags(splitCmd)
}

func addSTTFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&overrides.STTBackend, "stt-backend", "", "speech-to-text backend: none, vosk or deepgram")
	f.StringVar(&overrides.Language, "language", "", "transcription language code")
	f.IntVar(&overrides.MaxParallelSTT, "stt-workers", 0, "chunks transcribed in parallel")
}

func newTranscriber() (stt.Transcriber, error) {
	switch cfg.STTBackend {
	case "vosk":
		t, err := vosk.NewVoskTranscriber(cfg.VoskModelPath, cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vosk transcriber: %w", err)
		}
		return t, nil
	case "deepgram":
		return deepgram.NewDeepgramTranscriber(
			cfg.DeepgramAPIKey,
			cfg.DeepgramModel,
			cfg.Language,
			cfg.DeepgramPunctuate,
		), nil
	default:
		return nil, fmt.Errorf("unsupported STT backend: %s", cfg.STTBackend)
	}
}

func transcribeDir(ctx context.Context, st *store.FileStore) error {
	artifacts, err := st.LoadManifest()
	if err != nil {
		return err
	}

	transcriber, err := newTranscriber()
	if err != nil {
		return err
	}
	defer transcriber.Close()

	pool := stt.NewPool(transcriber, cfg.MaxParallelSTT)
	transcripts, err := pool.Run(ctx, artifacts, func(t *stt.Transcript) error {
		_, err := st.SaveTranscript(t)
		return err
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("dir", st.Dir()).
		Int("chunks", len(artifacts)).
		Int("transcripts", len(transcripts)).
		Msg("Transcription finished")

	if len(transcripts) < len(artifacts) {
		return fmt.Errorf("%d of %d chunks failed to transcribe", len(artifacts)-len(transcripts), len(artifacts))
	}
	return nil
}
