package ui

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/loader"
)

const basketJSON = `{
  "name": "basket",
  "fruits": [
    {"name": "Apple", "color": "red", "weight": 3},
    {"Name": "Banana"},
    "Cherry"
  ]
}`

func newTestSession(t *testing.T, doc string) *store.Session {
	t.Helper()
	s, err := store.NewSession(loader.Document{JSON: doc, Format: loader.FormatJSON}, "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustNode(t *testing.T, s *store.Session, p jsonpath.Path) graph.Node {
	t.Helper()
	n, ok := s.Graph.FindByPath(p)
	if !ok {
		t.Fatalf("no node at %s", jsonpath.Format(p))
	}
	return n
}

func fruit(i int) jsonpath.Path {
	return jsonpath.Path{jsonpath.Key("fruits"), jsonpath.Index(i)}
}

func key(s string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Text: s, Code: []rune(s)[0]}
}

func typeText(t *testing.T, m ChildModel, s string) {
	t.Helper()
	for _, r := range s {
		m.Update(tea.KeyPressMsg{Text: string(r), Code: r})
	}
}

var (
	enterKey = tea.KeyPressMsg{Code: tea.KeyEnter}
	escKey   = tea.KeyPressMsg{Code: tea.KeyEsc}
	tabKey   = tea.KeyPressMsg{Code: tea.KeyTab}
	downKey  = tea.KeyPressMsg{Code: tea.KeyDown}
	ctrlS    = tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}
)

// run executes cmd and returns its message. Commands that block, like cursor
// blink ticks, are abandoned and yield nil.
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

var bg = context.Background()
