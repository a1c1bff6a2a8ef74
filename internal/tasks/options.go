package tasks

import (
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

type options struct {
	now    func() time.Time
	logger *log.Logger
	window time.Duration
}

// Option configures a [CredentialManager] or a [Poller].
type Option func(*options)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCacheWindow sets the maximum age of a cache entry the [Poller] may serve.
func WithCacheWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.window = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: shared.NewLogger(os.Stderr),
		window: models.DefaultCacheWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
