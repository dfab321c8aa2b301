package nvp

import (
	"io"
	"log/slog"
)

// Options configures a Directory.
type Options struct {
	// Logger receives region lifecycle and heap events.
	// Default: a logger that discards everything.
	Logger *slog.Logger

	// Provider backs the regions.
	// Default: an in-memory provider (nothing survives the process).
	Provider Provider
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
