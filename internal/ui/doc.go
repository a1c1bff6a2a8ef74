// Package ui implements a terminal now-playing widget using bubbletea's Elm architecture.
//
// The widget has two views:
//  1. [NowPlayingView] : the current track with a progress bar and playback state
//  2. [HistoryView] : tracks seen since the widget started, most recent first
//
// A [tasks.Watcher] polls the now-playing endpoint in the background and delivers updates through a channel.
// Between polls the progress bar advances locally once a second while the track is playing.
//
// Keyboard navigation (r, h/tab, esc, ?, q) with contextual help is displayed via charmbracelet/bubbles/help.
package ui
