package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective listen address
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Scribe", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("host", config.Server.Host).
		Int("port", config.Server.Port).
		Str("provider", string(config.LLM.DefaultProvider)).
		Int("workers", config.Queue.Concurrency).
		Msg("Scribe starting")
}
