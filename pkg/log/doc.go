/*
Package log provides the ambient, process-wide structured logger used by
cmd/poolctl and pkg/config, built on zerolog.

The pool engine itself never imports this package: per the engine/log
separation documented in pkg/events, engine operations only ever see an
events.Sink. log.NewZerologSink bridges the two so a CLI can wire this
logger into an engine run without the engine depending on zerolog.

Initialize once at startup:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("poolctl")
	logger.Info().Msg("starting")
*/
package log
