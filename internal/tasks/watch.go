package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
)

// DefaultWatchInterval is shorter than [models.DefaultCacheWindow] so consecutive polls
// are served from cache at most once.
const DefaultWatchInterval = 3 * time.Second

// SnapshotSource is anything that answers now-playing queries, such as a [Poller] or a
// [services.WidgetClient].
type SnapshotSource interface {
	NowPlaying(ctx context.Context, key string) (*models.Snapshot, error)
}

// Update reports the outcome of a single poll.
type Update struct {
	Phase    Phase
	Seq      int              // Poll number, starting at 1
	At       time.Time        // When the poll completed
	Snapshot *models.Snapshot // Set when Phase is Received
	Err      error            // Set when Phase is Failed
	Message  string           // Human-readable message for display
}

// Poll phase enumeration
type Phase int

const (
	Polling Phase = iota
	Received
	Failed
)

func (p Phase) String() string {
	switch p {
	case Polling:
		return "polling"
	case Received:
		return "received"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Watcher polls a [SnapshotSource] on an interval.
type Watcher struct {
	source   SnapshotSource
	key      string
	interval time.Duration
	now      func() time.Time
}

// NewWatcher creates a [Watcher] for key. A non-positive interval uses [DefaultWatchInterval].
func NewWatcher(source SnapshotSource, key string, interval time.Duration, opts ...Option) *Watcher {
	o := newOptions(opts)
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{source: source, key: key, interval: interval, now: o.now}
}

// Run polls immediately and then on every tick until ctx is done, returning ctx.Err().
//
// Updates are sent without blocking; a receiver that falls behind misses updates.
func (w *Watcher) Run(ctx context.Context, updates chan<- Update) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		send(updates, Update{Phase: Polling, Seq: seq, At: w.now(), Message: "Polling now-playing..."})
		send(updates, w.poll(ctx, seq))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Once performs a single poll and returns its update.
func (w *Watcher) Once(ctx context.Context) Update {
	return w.poll(ctx, 1)
}

func (w *Watcher) poll(ctx context.Context, seq int) Update {
	snap, err := w.source.NowPlaying(ctx, w.key)
	if err != nil {
		return Update{Phase: Failed, Seq: seq, At: w.now(), Err: err, Message: fmt.Sprintf("✗ %v", err)}
	}
	return Update{Phase: Received, Seq: seq, At: w.now(), Snapshot: snap, Message: receivedMessage(snap)}
}

func receivedMessage(snap *models.Snapshot) string {
	if snap == nil || snap.Track == nil {
		return "Nothing playing"
	}
	if !snap.Playing {
		return fmt.Sprintf("Paused: %s", snap.Track.Title)
	}
	return fmt.Sprintf("Playing: %s", snap.Track.Title)
}

func send(updates chan<- Update, u Update) {
	if updates == nil {
		return
	}
	select {
	case updates <- u:
	default:
	}
}
