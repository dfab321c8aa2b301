package heap

import (
	"io"
	"log/slog"

	"github.com/joshuapare/nvpkit/nvp/dirty"
)

// Options configures Open.
type Options struct {
	// Logger receives format, recovery and exhaustion events.
	// Default: a logger that discards everything.
	Logger *slog.Logger

	// Tracker collects dirty ranges of the region. It must be sized for the
	// region being opened.
	// Default: a new tracker bounded by the region length.
	Tracker *dirty.Tracker
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
