/*
Package log provides structured logging for ddnsd built on zerolog.

A single global logger is initialized once at startup from CLI flags and
shared by every component. Child loggers carry a component field so that
scheduler, detector, provider and API log lines can be filtered apart.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

Component loggers:

	logger := log.WithComponent("scheduler")
	logger.Info().Str("ip", ip).Msg("detected public IP")

Provider-scoped loggers:

	logger := log.WithProvider("cloudflare")
	logger.Error().Err(err).Int("attempt", n).Msg("upsert failed")

# Output Formats

Console output (default) uses zerolog's ConsoleWriter with RFC3339
timestamps for human consumption. JSON output is intended for log
aggregation pipelines and is enabled with the --log-json flag.
*/
package log
