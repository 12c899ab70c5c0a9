// Package logging wires up the structured logger shared across clipstty.
// Grounded on the zerolog.Logger field-injection style used by the
// retrieved real-time transcription pipeline (LumenPrima-tr-engine's
// internal/ingest.Pipeline carries a zerolog.Logger field rather than a
// package-global).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing human-readable output to stderr,
// filtered by level. level accepts zerolog's level strings
// ("debug","info","warn","error"); an unrecognized value falls back to
// info, matching the "Logging filter" env var contract in spec.md §6.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
