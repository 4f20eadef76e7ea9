package ui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/kvedit/internal/store"
)

// NodeSavedMsg reports a successful save of a node's value.
type NodeSavedMsg struct {
	NodeID string
}

// SaveFailedMsg reports a save error. The node stays in edit mode.
type SaveFailedMsg struct {
	NodeID string
	Err    error
}

// NodeEditUI toggles between an Edit button and an InlineEditor bound to the
// graph store's edit buffer. Only the node the store says is being edited
// shows the editor, so starting an edit elsewhere closes this one.
type NodeEditUI struct {
	nodeID  string
	value   string
	graph   *store.GraphStore
	onSave  func(value string) error
	editor  *InlineEditor
	noColor bool
	width   int
}

// NewNodeEditUI returns the toggle for nodeID. value seeds the buffer when
// editing starts; onSave persists the buffer.
func NewNodeEditUI(nodeID, value string, graph *store.GraphStore, onSave func(value string) error, noColor bool) *NodeEditUI {
	return &NodeEditUI{nodeID: nodeID, value: value, graph: graph, onSave: onSave, noColor: noColor}
}

// NodeID returns the node this toggle belongs to.
func (n *NodeEditUI) NodeID() string {
	return n.nodeID
}

// Editing reports whether the store has this node in edit mode.
func (n *NodeEditUI) Editing() bool {
	return n.graph.IsEditing(n.nodeID)
}

// StartEdit puts the node in edit mode, as pressing the Edit button does.
func (n *NodeEditUI) StartEdit() tea.Cmd {
	if !n.graph.EnterEdit(n.nodeID, n.value) {
		return nil
	}
	n.editor = n.newEditor()
	return n.editor.Init()
}

func (n *NodeEditUI) newEditor() *InlineEditor {
	e := NewInlineEditor(n.graph.EditingValue(), InlineEditorOptions{
		OnChange: n.graph.UpdateValue,
		OnSave:   n.save,
		OnCancel: n.cancel,
		NoColor:  n.noColor,
	})
	if n.width > 0 {
		e.SetSize(n.width, 1)
	}
	return e
}

func (n *NodeEditUI) save() tea.Cmd {
	value := n.graph.EditingValue()
	if n.onSave != nil {
		if err := n.onSave(value); err != nil {
			return func() tea.Msg { return SaveFailedMsg{NodeID: n.nodeID, Err: err} }
		}
	}
	n.graph.Cancel()
	n.editor = nil
	id := n.nodeID
	return func() tea.Msg { return NodeSavedMsg{NodeID: id} }
}

func (n *NodeEditUI) cancel() tea.Cmd {
	n.graph.Cancel()
	n.editor = nil
	return nil
}

// Init implements ChildModel.
func (n *NodeEditUI) Init() tea.Cmd {
	return nil
}

// Update implements ChildModel.
func (n *NodeEditUI) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	if !n.Editing() {
		n.editor = nil
		if key, ok := msg.(tea.KeyPressMsg); ok && (key.String() == "enter" || key.String() == "e") {
			return n, n.StartEdit()
		}
		return n, nil
	}
	if n.editor == nil {
		// Edit mode was entered through the store directly.
		n.editor = n.newEditor()
	}
	_, cmd := n.editor.Update(msg)
	return n, cmd
}

// View implements ChildModel.
func (n *NodeEditUI) View() string {
	s := newStyles(CurrentTheme(), n.noColor)
	switch {
	case !n.Editing():
		return s.renderButton("Edit", true)
	case n.editor == nil:
		return s.text.Render(n.graph.EditingValue())
	default:
		return n.editor.View()
	}
}

// SetSize implements ModelWithSize.
func (n *NodeEditUI) SetSize(width, height int) {
	n.width = width
	if n.editor != nil {
		n.editor.SetSize(width, height)
	}
}
