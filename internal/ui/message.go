package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/nowplaying/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPollUpdate MsgKind = iota
	MsgTick
	MsgWatchStopped
)

// pollUpdateMsg is the constructor for [MsgPollUpdate]
func pollUpdateMsg(update tasks.Update) Msg {
	return Msg{kind: MsgPollUpdate, data: update}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

// watchStoppedMsg is the constructor for [MsgWatchStopped]
func watchStoppedMsg(err error) Msg {
	return Msg{kind: MsgWatchStopped, data: err}
}
