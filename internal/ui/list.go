package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
)

var (
	_ list.Item = historyItem{}
)

// historyItem wraps a [models.Track] seen during this session to implement [list.Item].
type historyItem struct {
	track  models.Track
	seenAt time.Time
}

func (i historyItem) FilterValue() string { return i.track.Title }
func (i historyItem) Title() string       { return i.track.Title }
func (i historyItem) Description() string {
	desc := formatter.Artists(&i.track)
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return fmt.Sprintf("%s • %s", i.seenAt.Format("15:04:05"), desc)
}
