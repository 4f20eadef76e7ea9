package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/tidwall/gjson"

	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/loader"
)

func newTestRoot(t *testing.T, s *store.Session) *RootModel {
	t.Helper()
	m := NewRootModel(bg, s, Options{NoColor: true})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func viewText(m *RootModel) string {
	return fmt.Sprint(m.View().Content)
}

// send feeds msg to m and then any message its command produces, so
// follow-up messages like NodeSavedMsg are processed as the runtime would.
func send(m *RootModel, msg tea.Msg) {
	_, cmd := m.Update(msg)
	if out := run(cmd); out != nil {
		if _, isBatch := out.(tea.BatchMsg); !isBatch {
			m.Update(out)
		}
	}
}

func TestRootModel_ListAndSelection(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)

	sel, ok := s.Graph.SelectedNode()
	if !ok || sel.ID != "$" {
		t.Fatalf("expected root selected initially, got %v %v", sel.ID, ok)
	}
	v := viewText(m)
	for _, want := range []string{`$["fruits"][0]`, "name: Apple", "Cherry", "4 nodes"} {
		if !strings.Contains(v, want) {
			t.Fatalf("expected %q in view:\n%s", want, v)
		}
	}

	send(m, downKey)
	send(m, key("j"))
	sel, _ = s.Graph.SelectedNode()
	if sel.ID != `$["fruits"][1]` {
		t.Fatalf("expected second fruit selected, got %s", sel.ID)
	}
	send(m, key("G"))
	sel, _ = s.Graph.SelectedNode()
	if sel.ID != `$["fruits"][2]` {
		t.Fatalf("expected last node selected, got %s", sel.ID)
	}
	send(m, downKey)
	sel, _ = s.Graph.SelectedNode()
	if sel.ID != `$["fruits"][2]` {
		t.Fatalf("expected cursor clamped at the end, got %s", sel.ID)
	}
}

func TestRootModel_ModalEditFlow(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)

	send(m, downKey)
	send(m, enterKey)
	if m.Mode() != ModalMode || m.Modal() == nil {
		t.Fatalf("expected modal open after enter")
	}
	if !strings.Contains(viewText(m), "JSON Path") {
		t.Fatalf("expected modal in view")
	}

	send(m, key("e"))
	typeText(t, m.Modal(), "!")
	send(m, enterKey)

	if got := gjson.Get(s.JSON.JSON(), "fruits.0.name").String(); got != "Apple!" {
		t.Fatalf("expected saved name, got %q", got)
	}
	if status, isErr := m.Status(); isErr || !strings.Contains(status, "saved") {
		t.Fatalf("expected saved status, got %q", status)
	}
	if !strings.Contains(viewText(m), "[modified]") {
		t.Fatalf("expected modified marker in header")
	}

	send(m, escKey)
	if m.Mode() != NormalMode || m.Modal() != nil {
		t.Fatalf("expected modal closed after esc")
	}
	sel, _ := s.Graph.SelectedNode()
	if sel.ID != `$["fruits"][0]` {
		t.Fatalf("expected selection kept on edited node, got %s", sel.ID)
	}
}

func TestRootModel_InlineEdit(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)

	send(m, key("G"))
	send(m, key("i"))
	if m.Mode() != InlineMode {
		t.Fatalf("expected inline mode")
	}
	if !strings.Contains(viewText(m), "[ Save ]") {
		t.Fatalf("expected inline editor in view:\n%s", viewText(m))
	}
	for _, r := range "berry" {
		send(m, tea.KeyPressMsg{Text: string(r), Code: r})
	}
	send(m, enterKey)

	if m.Mode() != NormalMode {
		t.Fatalf("expected normal mode after save")
	}
	if got := gjson.Get(s.JSON.JSON(), "fruits.2").String(); got != "Cherryberry" {
		t.Fatalf("expected inline value saved, got %q", got)
	}
}

func TestRootModel_InlineCancel(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)

	send(m, key("G"))
	send(m, key("i"))
	send(m, escKey)
	if m.Mode() != NormalMode {
		t.Fatalf("expected normal mode after esc")
	}
	if _, editing := s.Graph.EditingNodeID(); editing {
		t.Fatalf("expected editing cleared")
	}
}

func TestRootModel_Filter(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)

	send(m, key("/"))
	if m.Mode() != FilterMode {
		t.Fatalf("expected filter mode")
	}
	for _, r := range `node.scalar` {
		send(m, tea.KeyPressMsg{Text: string(r), Code: r})
	}
	send(m, enterKey)
	if m.Mode() != NormalMode {
		t.Fatalf("expected normal mode after applying filter")
	}
	v := viewText(m)
	if !strings.Contains(v, "1 nodes") {
		t.Fatalf("expected one visible node:\n%s", v)
	}
	sel, _ := s.Graph.SelectedNode()
	if sel.ID != `$["fruits"][2]` {
		t.Fatalf("expected filtered node selected, got %s", sel.ID)
	}

	send(m, key("/"))
	for range `node.scalar` {
		send(m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	}
	for _, r := range `node.depth ==` {
		send(m, tea.KeyPressMsg{Text: string(r), Code: r})
	}
	send(m, enterKey)
	if m.Mode() != FilterMode {
		t.Fatalf("expected to stay in filter mode on a compile error")
	}
	if _, isErr := m.Status(); !isErr {
		t.Fatalf("expected error status for bad filter")
	}
	send(m, escKey)
	if m.Mode() != NormalMode {
		t.Fatalf("expected esc to leave filter mode")
	}
}

func TestRootModel_WriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "basket.json")
	if err := os.WriteFile(p, []byte(basketJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := loader.LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	s, err := store.NewSession(doc, p)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()
	m := newTestRoot(t, s)

	cherry := mustNode(t, s, fruit(2))
	if _, err := s.SaveInlineValue(bg, cherry.ID, "Plum"); err != nil {
		t.Fatalf("SaveInlineValue: %v", err)
	}
	send(m, ctrlS)
	if status, isErr := m.Status(); isErr || !strings.Contains(status, "wrote") {
		t.Fatalf("expected write status, got %q", status)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gjson.GetBytes(data, "fruits.2").String() != "Plum" {
		t.Fatalf("expected file updated, got %s", data)
	}
	if s.Files.Dirty() {
		t.Fatalf("expected clean file store after write")
	}
}

func TestRootModel_WriteWithoutPathFails(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)
	send(m, ctrlS)
	if _, isErr := m.Status(); !isErr {
		t.Fatalf("expected error status when there is no file")
	}
}

func TestRootModel_Quit(t *testing.T) {
	s := newTestSession(t, basketJSON)
	m := newTestRoot(t, s)
	_, cmd := m.Update(key("q"))
	if _, ok := run(cmd).(tea.QuitMsg); !ok {
		t.Fatalf("expected quit command")
	}
	if viewText(m) != "" {
		t.Fatalf("expected empty view after quit")
	}
}
