// Package ui implements an interactive terminal editor using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [LoginView] : Username and password form shown while anonymous
//  2. [EditorView] : A textarea, the operation bar and the streamed output
//  3. [HistoryView] : Recent runs from local history
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Run snapshots flow through the streaming client's update channel, so output appears
// as fragments arrive without blocking the event loop.
//
// Operations are bound to F1-F4; translate opens a language selector on the first press
// (tab switches, F4 again submits). Esc cancels the active run.
package ui
