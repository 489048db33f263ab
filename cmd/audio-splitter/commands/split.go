package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/user/audio-splitter/internal/audio"
	"github.com/user/audio-splitter/internal/export"
	"github.com/user/audio-splitter/internal/splitter"
	"github.com/user/audio-splitter/internal/store"
)

var splitTranscribe bool

var splitCmd = &cobra.Command{
	Use:   "split FILE...",
	Short: "Split audio files at pauses in speech",
	Long: `Split audio files at pauses in speech.

Supported inputs: wav, mp3, flac, ogg/vorbis, and raw .pcm/.raw files that
are already 16 kHz mono 16-bit little-endian.

Chunks are written to <input>_chunks/ unless --output-dir is set. With
several inputs and --output-dir, each input gets its own subdirectory.

Examples:
  audio-splitter split lecture.mp3
  audio-splitter split --silence-ms 700 --min-chunk-sec 8 ch1.wav ch2.wav
  audio-splitter split --transcribe --output-dir out/ interview.flac`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		opts := cfg.SplitOptions()
		factory := func() (*splitter.Splitter, error) {
			classifier, err := newClassifier(cfg.VADBackend, opts.VADMode)
			if err != nil {
				return nil, err
			}
			s, err := splitter.New(opts, audio.NewFileDecoder(), classifier, export.NewWAVExporter())
			if err != nil {
				classifier.Close()
				return nil, err
			}
			return s, nil
		}

		log.Info().
			Int("frame_ms", opts.FrameMS).
			Int("vad_mode", opts.VADMode).
			Str("vad_backend", cfg.VADBackend).
			Int("silence_ms", opts.SilenceMS).
			Float64("min_chunk_sec", opts.MinChunkSec).
			Int("files", len(args)).
			Msg("Splitting audio")

		results, splitErr := splitter.SplitAll(cmd.Context(), factory, args, cfg.OutputDir, cfg.MaxParallelFiles)

		var stores []*store.FileStore
		for _, res := range results {
			if res == nil {
				continue
			}
			st, err := store.NewFileStore(res.OutputDir)
			if err != nil {
				return err
			}
			if _, err := st.SaveManifest(res.Artifacts); err != nil {
				return err
			}
			stores = append(stores, st)

			for _, artifact := range res.Artifacts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d\n", artifact.Path, artifact.StartMS, artifact.EndMS)
			}
		}

		if splitTranscribe && cfg.STTBackend == "none" {
			log.Warn().Msg("--transcribe given but no STT backend configured, skipping transcription")
		} else if splitTranscribe {
			for _, st := range stores {
				if err := transcribeDir(cmd.Context(), st); err != nil {
					splitErr = errors.Join(splitErr, err)
				}
			}
		}

		return splitErr
	},
}

func init() {
	f := splitCmd.Flags()
	f.IntVar(&overrides.FrameMS, "frame-ms", 0, "VAD frame duration in ms (10, 20 or 30)")
	f.IntVar(&overrides.VADMode, "vad-mode", 0, "VAD aggressiveness 0-3 (3 flags the most non-speech)")
	f.StringVar(&overrides.VADBackend, "vad-backend", "", "classifier: webrtc or energy")
	f.IntVar(&overrides.SilenceMS, "silence-ms", 0, "minimum silence in ms that triggers a cut")
	f.Float64Var(&overrides.MinChunkSec, "min-chunk-sec", 0, "minimum chunk duration in seconds")
	f.StringVar(&overrides.OutputDir, "output-dir", "", "directory for chunks (default <input>_chunks)")
	f.IntVarP(&overrides.MaxParallelFiles, "jobs", "j", 0, "files processed in parallel")
	f.BoolVar(&splitTranscribe, "transcribe", false, "transcribe chunks with STT_BACKEND after splitting")

	splitCmd.PreRun = func(cmd *cobra.Command, args []string) {
		applyFlagOverrides(cmd)
	}
}

type classifier interface {
	audio.Classifier
	io.Closer
}

func newClassifier(backend string, mode int) (classifier, error) {
	switch backend {
	case "energy":
		return audio.NewEnergyClassifier(mode)
	default:
		return audio.NewWebRTCClassifier(mode)
	}
}
