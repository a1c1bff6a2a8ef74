// package formatter renders now-playing snapshots for terminal output (plain text, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/nowplaying/internal/models"
)

// FormatDuration renders milliseconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ProgressBar renders a fixed-width text bar for progress out of duration.
func ProgressBar(progress, duration, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if duration > 0 {
		filled = min(width, max(0, progress*width/duration))
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Artists joins artist names in order.
func Artists(t *models.Track) string {
	if t == nil || len(t.Artists) == 0 {
		return "Unknown artist"
	}
	return strings.Join(t.Artists, ", ")
}

// State returns the one-word playback state.
func State(snap *models.Snapshot) string {
	switch {
	case snap == nil || snap.Track == nil:
		return "Stopped"
	case snap.Playing:
		return "Playing"
	default:
		return "Paused"
	}
}

// ExportToText renders a snapshot as plain text
func ExportToText(snap *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	if snap == nil || snap.Track == nil {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes(), nil
	}

	t := snap.Track
	buf.WriteString(fmt.Sprintf("%s: %s\n", State(snap), t.Title))
	buf.WriteString(fmt.Sprintf("Artist: %s\n", Artists(t)))
	if t.Album != "" {
		buf.WriteString(fmt.Sprintf("Album: %s\n", t.Album))
	}
	buf.WriteString(fmt.Sprintf("%s %s / %s\n",
		ProgressBar(snap.ProgressMs, snap.DurationMs, 30),
		FormatDuration(snap.ProgressMs),
		FormatDuration(snap.DurationMs)))
	if t.AlbumImage != nil {
		buf.WriteString(fmt.Sprintf("Artwork: %s\n", *t.AlbumImage))
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a snapshot as a Markdown fragment, with the artwork when present
func ExportToMarkdown(snap *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	if snap == nil || snap.Track == nil {
		buf.WriteString("_Nothing playing_\n")
		return buf.Bytes(), nil
	}

	t := snap.Track
	if t.AlbumImage != nil {
		buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", t.Album, *t.AlbumImage))
	}
	buf.WriteString(fmt.Sprintf("**%s** by %s", t.Title, Artists(t)))
	if t.Album != "" {
		buf.WriteString(fmt.Sprintf(" (%s)", t.Album))
	}
	buf.WriteString(fmt.Sprintf(" [%s / %s]", FormatDuration(snap.ProgressMs), FormatDuration(snap.DurationMs)))
	if !snap.Playing {
		buf.WriteString(" _paused_")
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// ExportToJSON renders a snapshot exactly as the now-playing endpoint serves it
func ExportToJSON(snap *models.Snapshot, pretty bool) ([]byte, error) {
	if snap == nil {
		snap = models.NotPlaying()
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Format names one of the supported renderings.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// Export renders snap in format f.
func Export(snap *models.Snapshot, f Format, pretty bool) ([]byte, error) {
	switch f {
	case "", Text:
		return ExportToText(snap)
	case Markdown:
		return ExportToMarkdown(snap)
	case JSON:
		return ExportToJSON(snap, pretty)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}
