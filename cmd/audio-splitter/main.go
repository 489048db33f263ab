// Command audio-splitter cuts long recordings into chunks at pauses in
// speech and can transcribe the chunks.
//
// Usage:
//
//	audio-splitter split [flags] FILE...
//	audio-splitter transcribe [flags] DIR...
//
// Settings are read from the environment (and an optional .env file) and can
// be overridden with flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/cmd/audio-splitter/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("audio-splitter failed")
	}
}
