// Package logger builds configured *slog.Logger instances.
//
// The factory supports JSON output for production log aggregation and text
// output for local development, a minimum level, a custom output writer, and
// static attributes attached to every record (service name, environment).
//
//	log := logger.New(
//	    logger.WithProduction("publora"),
//	    logger.WithAttr(slog.String("component", "sweeper")),
//	)
package logger
