package ui

import (
	"context"
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/kvedit/internal/store"
)

// Run starts the interactive browser over session and blocks until the user
// quits or ctx is cancelled. Width/height of 0 auto-detect the terminal size.
func Run(ctx context.Context, session *store.Session, opts Options, width, height int, progOpts ...tea.ProgramOption) (*RootModel, error) {
	m := NewRootModel(ctx, session, opts)

	if width <= 0 || height <= 0 {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if width <= 0 {
				width = w
			}
			if height <= 0 {
				height = h
			}
		}
	}
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.width, m.height = width, height

	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithWindowSize(width, height)}, progOpts...)
	prog := tea.NewProgram(m, progOpts...)
	final, err := prog.Run()
	if fm, ok := final.(*RootModel); ok && fm != nil {
		return fm, err
	}
	return m, err
}
