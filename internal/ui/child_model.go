package ui

import tea "charm.land/bubbletea/v2"

// ChildModel is implemented by the views the browser hosts. The browser
// routes key messages to the active child and renders its View.
type ChildModel interface {
	// Init returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated child.
	Update(msg tea.Msg) (ChildModel, tea.Cmd)

	// View renders the child model to a string.
	View() string
}

// ModelWithTitle is an optional interface for children that show a title.
type ModelWithTitle interface {
	Title() string
}

// ModelWithSize is an optional interface for children that respond to
// resize events.
type ModelWithSize interface {
	SetSize(width, height int)
}

// ModelWithFocus is an optional interface for children that own a text input.
type ModelWithFocus interface {
	Focus() tea.Cmd
	Blur()
	Focused() bool
}
