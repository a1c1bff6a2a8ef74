package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	HistoryView
)

// maxHistory bounds the history list.
const maxHistory = 50

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	view       ViewState
	watcher    *tasks.Watcher
	updates    chan tasks.Update
	label      string
	snap       *models.Snapshot
	receivedAt time.Time
	polling    bool
	polls      int
	err        error
	history    list.Model
	bar        progress.Model
	help       help.Model
	keys       keyMap
	width      int
	height     int
	now        func() time.Time
}

// NewModel creates a new TUI model polling source for key. label names the source in the header.
func NewModel(ctx context.Context, source tasks.SnapshotSource, key, label string, interval time.Duration) *Model {
	ctx, cancel := context.WithCancel(ctx)

	history := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Recently played"
	history.SetShowStatusBar(false)
	history.SetFilteringEnabled(false)

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    NowPlayingView,
		watcher: tasks.NewWatcher(source, key, interval),
		updates: make(chan tasks.Update, 16),
		label:   label,
		history: history,
		bar:     progress.New(progress.WithSolidFill(styles.accent), progress.WithoutPercentage()),
		help:    help.New(),
		keys:    newKeyMap(),
		now:     time.Now,
	}
}

// Run starts the widget and blocks until the user quits.
func Run(ctx context.Context, m *Model) error {
	defer m.cancel()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the background watcher and the local progress clock.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startWatcher(), m.waitForUpdate(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-8, 60))
		m.history.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgPollUpdate:
			m.apply(msg.data.(tasks.Update))
			return m, m.waitForUpdate()
		case MsgTick:
			return m, tick()
		case MsgWatchStopped:
			if err, ok := msg.data.(error); ok && err != nil && !errors.Is(err, context.Canceled) {
				m.err = err
			}
			return m, nil
		}
	}

	if m.view == HistoryView {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current view.
func (m *Model) View() string {
	switch m.view {
	case HistoryView:
		return m.renderHistory()
	default:
		return m.renderNowPlaying()
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.history):
		if m.view == HistoryView {
			m.view = NowPlayingView
		} else {
			m.view = HistoryView
		}
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.view = NowPlayingView
		return m, nil
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.view == HistoryView {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply folds a poll update into the model.
func (m *Model) apply(u tasks.Update) {
	switch u.Phase {
	case tasks.Polling:
		m.polling = true
	case tasks.Received:
		m.polling = false
		m.polls++
		m.err = nil
		m.record(u.Snapshot, u.At)
		m.snap = u.Snapshot
		m.receivedAt = u.At
	case tasks.Failed:
		m.polling = false
		m.polls++
		m.err = u.Err
	}
}

// record adds the track to the history when it differs from the one already showing.
func (m *Model) record(next *models.Snapshot, at time.Time) {
	if next == nil || next.Track == nil {
		return
	}
	if m.snap != nil && m.snap.Track != nil && sameTrack(m.snap.Track, next.Track) {
		return
	}

	m.history.InsertItem(0, historyItem{track: *next.Track, seenAt: at})
	if n := len(m.history.Items()); n > maxHistory {
		m.history.RemoveItem(n - 1)
	}
}

func sameTrack(a, b *models.Track) bool {
	return a.Title == b.Title && a.Album == b.Album && strings.Join(a.Artists, ",") == strings.Join(b.Artists, ",")
}

// position returns the playback position, advanced locally since the last poll while playing.
func (m *Model) position() int {
	if m.snap == nil {
		return 0
	}
	pos := m.snap.ProgressMs
	if m.snap.Playing && !m.receivedAt.IsZero() {
		pos += int(m.now().Sub(m.receivedAt).Milliseconds())
	}
	if m.snap.DurationMs > 0 {
		pos = min(pos, m.snap.DurationMs)
	}
	return pos
}

func (m *Model) startWatcher() tea.Cmd {
	return func() tea.Msg {
		return watchStoppedMsg(m.watcher.Run(m.ctx, m.updates))
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-m.updates:
			return pollUpdateMsg(u)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) refresh() tea.Cmd {
	m.polling = true
	return func() tea.Msg {
		return pollUpdateMsg(m.watcher.Once(m.ctx))
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) renderNowPlaying() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("♫ Now Playing"))
	b.WriteString("\n")

	switch {
	case m.err != nil && m.snap == nil:
		b.WriteString(m.renderError())
	case m.snap == nil:
		b.WriteString(styles.muted.Render("Waiting for first poll..."))
	case m.snap.Track == nil:
		b.WriteString(styles.muted.Render("Nothing playing"))
	default:
		b.WriteString(m.renderTrack())
	}

	if m.err != nil && m.snap != nil {
		b.WriteString("\n\n")
		b.WriteString(m.renderError())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())

	content := styles.frame.Render(b.String())
	return fmt.Sprintf("%s\n%s", content, m.help.View(m.keys))
}

func (m *Model) renderTrack() string {
	t := m.snap.Track
	lines := []string{
		styles.track.Render(t.Title),
		formatter.Artists(t),
	}
	if t.Album != "" {
		lines = append(lines, styles.muted.Render(t.Album))
	}

	pos := m.position()
	ratio := 0.0
	if m.snap.DurationMs > 0 {
		ratio = float64(pos) / float64(m.snap.DurationMs)
	}

	state := styles.ok.Render("▶ " + formatter.State(m.snap))
	if !m.snap.Playing {
		state = styles.warn.Render("⏸ " + formatter.State(m.snap))
	}

	lines = append(lines,
		"",
		m.bar.ViewAs(ratio),
		fmt.Sprintf("%s  %s / %s", state, formatter.FormatDuration(pos), formatter.FormatDuration(m.snap.DurationMs)),
	)
	return strings.Join(lines, "\n")
}

func (m *Model) renderError() string {
	switch {
	case errors.Is(m.err, shared.ErrNotConnected):
		return styles.err.Render("✗ Not connected") + "\n" +
			styles.help.Render("Run `nowplaying connect` to link a Spotify account.")
	default:
		return styles.err.Render(fmt.Sprintf("✗ %v", m.err))
	}
}

func (m *Model) renderStatus() string {
	status := fmt.Sprintf("%s • %d polls", m.label, m.polls)
	if m.polling {
		status += " • polling..."
	} else if !m.receivedAt.IsZero() {
		status += fmt.Sprintf(" • updated %s ago", m.now().Sub(m.receivedAt).Round(time.Second))
	}
	return styles.muted.Render(status)
}

func (m *Model) renderHistory() string {
	if len(m.history.Items()) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s",
			styles.title.Render("Recently played"),
			styles.muted.Render("No tracks yet"),
			m.help.View(m.keys))
	}
	return fmt.Sprintf("%s\n%s", m.history.View(), m.help.View(m.keys))
}
