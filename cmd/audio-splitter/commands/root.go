package commands

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/user/audio-splitter/internal/config"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "audio-splitter",
	Short: "Split recordings into chunks at pauses in speech",
	Long: `Split recordings into chunks at pauses in speech.

Audio is normalized to 16 kHz mono 16-bit PCM, classified frame by frame
with a voice activity detector, cut after every sustained silence, and
short pieces are merged into their neighbours. Each chunk is written as
chunk_<n>.wav together with a manifest.jsonl.

Environment:
  FRAME_MS, VAD_MODE, VAD_BACKEND, SILENCE_MS, MIN_CHUNK_SEC, OUTPUT_DIR,
  MAX_PARALLEL_FILES, STT_BACKEND, STT_LANGUAGE, VOSK_MODEL_PATH,
  DEEPGRAM_API_KEY, DEEPGRAM_MODEL, DEEPGRAM_PUNCTUATE, MAX_PARALLEL_STT,
  LOG_LEVEL`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		setupLogging(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(transcribeCmd)
}

// Execute loads the configuration and runs the command line.
func Execute(ctx context.Context) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logging configured")
}
