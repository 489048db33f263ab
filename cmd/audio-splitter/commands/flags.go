package commands

import (
	"github.com/spf13/cobra"

	"github.com/user/audio-splitter/internal/config"
)

// overrides receives flag values; only flags set on the command line are
// copied over the loaded configuration.
var overrides config.Config

func applyFlagOverrides(cmd *cobra.Command) {
	f := cmd.Flags()
	set := map[string]func(){
		"frame-ms":      func() { cfg.FrameMS = overrides.FrameMS },
		"vad-mode":      func() { cfg.VADMode = overrides.VADMode },
		"vad-backend":   func() { cfg.VADBackend = overrides.VADBackend },
		"silence-ms":    func() { cfg.SilenceMS = overrides.SilenceMS },
		"min-chunk-sec": func() { cfg.MinChunkSec = overrides.MinChunkSec },
		"output-dir":    func() { cfg.OutputDir = overrides.OutputDir },
		"jobs":          func() { cfg.MaxParallelFiles = overrides.MaxParallelFiles },
		"stt-backend":   func() { cfg.STTBackend = overrides.STTBackend },
		"language":      func() { cfg.Language = overrides.Language },
		"stt-workers":   func() { cfg.MaxParallelSTT = overrides.MaxParallelSTT },
	}
	for name, apply := range set {
		if f.Lookup(name) != nil && f.Changed(name) {
			apply()
		}
	}
}
