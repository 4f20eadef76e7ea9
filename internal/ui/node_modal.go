package ui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/kvedit/internal/document"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/internal/store"
)

// ModalClosedMsg is sent when the node modal is dismissed.
type ModalClosedMsg struct{}

// ModalOptions configures a NodeModal.
type ModalOptions struct {
	NameKeys  []string
	ColorKeys []string
	NoColor   bool
}

const (
	fieldName = iota
	fieldColor
)

// NodeModal shows a node's normalized content and JSON path, and edits its
// name/color pair. Edit mode is owned by the graph store: the modal is
// editing exactly when the store says this node is.
type NodeModal struct {
	ctx     context.Context
	session *store.Session
	nodeID  string
	opts    ModalOptions

	name   textinput.Model
	color  textinput.Model
	field  int

	// seeded holds the name/color read from the node; shown holds what the
	// inputs displayed after sanitizing. An untouched field saves seeded.
	seeded [2]string
	shown  [2]string
	status string
	failed bool

	width  int
	height int
}

// NewNodeModal opens the modal on nodeID.
func NewNodeModal(ctx context.Context, session *store.Session, nodeID string, opts ModalOptions) *NodeModal {
	if len(opts.NameKeys) == 0 {
		opts.NameKeys = nodeview.DefaultNameKeys
	}
	if len(opts.ColorKeys) == 0 {
		opts.ColorKeys = nodeview.DefaultColorKeys
	}
	return &NodeModal{
		ctx:     ctx,
		session: session,
		nodeID:  nodeID,
		opts:    opts,
		name:    newFieldInput("Name"),
		color:   newFieldInput("Color"),
		width:   80,
		height:  24,
	}
}

func newFieldInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 0
	ti.SetWidth(40)
	return ti
}

// Title implements ModelWithTitle.
func (m *NodeModal) Title() string {
	return "Node Content"
}

// NodeID returns the node shown by the modal.
func (m *NodeModal) NodeID() string {
	return m.nodeID
}

// Editing reports whether the modal's node is in edit mode.
func (m *NodeModal) Editing() bool {
	return m.session.Graph.IsEditing(m.nodeID)
}

// Fields returns the name and color a save would write.
func (m *NodeModal) Fields() (name, color string) {
	return m.fieldValue(fieldName, m.name), m.fieldValue(fieldColor, m.color)
}

func (m *NodeModal) fieldValue(field int, in textinput.Model) string {
	if v := in.Value(); v != m.shown[field] {
		return v
	}
	return m.seeded[field]
}

// Status returns the last save message and whether it was an error.
func (m *NodeModal) Status() (string, bool) {
	return m.status, m.failed
}

// StartEdit fills the fields from the node's rows and enters edit mode.
func (m *NodeModal) StartEdit() tea.Cmd {
	node, ok := m.session.Graph.Node(m.nodeID)
	if !ok {
		return nil
	}
	name, color := nodeview.EditFields(node.Rows, m.opts.NameKeys, m.opts.ColorKeys)
	m.name.SetValue(name)
	m.color.SetValue(color)
	m.seeded = [2]string{name, color}
	m.shown = [2]string{m.name.Value(), m.color.Value()}
	if !m.session.Graph.EnterEdit(m.nodeID, "") {
		return nil
	}
	m.status, m.failed = "", false
	m.field = fieldName
	m.color.Blur()
	return m.name.Focus()
}

// Save applies the fields to the document. On error the modal stays in edit
// mode with the error shown.
func (m *NodeModal) Save() tea.Cmd {
	name, color := m.Fields()
	res, err := m.session.SaveNodeEdit(m.ctx, m.nodeID, document.Edit{Name: name, Color: color})
	if err != nil {
		m.status, m.failed = err.Error(), true
		id := m.nodeID
		return func() tea.Msg { return SaveFailedMsg{NodeID: id, Err: err} }
	}
	m.name.Blur()
	m.color.Blur()
	m.status, m.failed = fmt.Sprintf("saved (%s)", res.Mode), false
	id := m.nodeID
	return func() tea.Msg { return NodeSavedMsg{NodeID: id} }
}

func (m *NodeModal) cancelEdit() {
	m.session.Graph.Cancel()
	m.name.Blur()
	m.color.Blur()
}

func (m *NodeModal) switchField() tea.Cmd {
	if m.field == fieldName {
		m.field = fieldColor
		m.name.Blur()
		return m.color.Focus()
	}
	m.field = fieldName
	m.color.Blur()
	return m.name.Focus()
}

// Init implements ChildModel.
func (m *NodeModal) Init() tea.Cmd {
	return nil
}

// Update implements ChildModel.
func (m *NodeModal) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	key, isKey := msg.(tea.KeyPressMsg)

	if !m.Editing() {
		if !isKey {
			return m, nil
		}
		switch key.String() {
		case "e":
			return m, m.StartEdit()
		case "esc", "q":
			return m, func() tea.Msg { return ModalClosedMsg{} }
		}
		return m, nil
	}

	if isKey {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			return m, m.switchField()
		case "enter":
			return m, m.Save()
		case "esc":
			m.cancelEdit()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.field == fieldName {
		m.name, cmd = m.name.Update(msg)
	} else {
		m.color, cmd = m.color.Update(msg)
	}
	return m, cmd
}

// View implements ChildModel.
func (m *NodeModal) View() string {
	s := newStyles(CurrentTheme(), m.opts.NoColor)
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString(s.title.Render(m.Title()))
	b.WriteString("\n\n")

	node, ok := m.session.Graph.Node(m.nodeID)
	if !ok {
		b.WriteString(s.err.Render("node no longer exists"))
		b.WriteString("\n\n")
		b.WriteString(s.muted.Render("esc close"))
		return s.box.Width(inner).Render(b.String())
	}

	if m.Editing() {
		b.WriteString(m.fieldLine(s, "Name", m.name, m.field == fieldName))
		b.WriteString("\n")
		b.WriteString(m.fieldLine(s, "Color", m.color, m.field == fieldColor))
		b.WriteString("\n\n")
		b.WriteString(s.renderButton("Save", true) + " " + s.renderButton("Cancel", true))
		b.WriteString("\n\n")
	} else {
		b.WriteString(s.label.Render("Content"))
		b.WriteString("\n")
		b.WriteString(s.text.Render(nodeview.Normalize(node.Rows)))
		b.WriteString("\n\n")
	}

	b.WriteString(s.label.Render("JSON Path"))
	b.WriteString("\n")
	b.WriteString(s.path.Render(nodeview.FormatPath(node.Path)))
	b.WriteString("\n\n")

	if m.status != "" {
		if m.failed {
			b.WriteString(s.err.Render(m.status))
		} else {
			b.WriteString(s.success.Render(m.status))
		}
		b.WriteString("\n")
	}
	if m.Editing() {
		b.WriteString(s.muted.Render("tab switch field • enter save • esc cancel"))
	} else {
		b.WriteString(s.renderButton("Edit", true) + " " + s.muted.Render("e edit • esc close"))
	}
	return s.box.Width(inner).Render(b.String())
}

func (m *NodeModal) fieldLine(s styles, label string, in textinput.Model, focused bool) string {
	l := s.label.Render(fmt.Sprintf("%-6s", label))
	if focused {
		l = s.title.Render(fmt.Sprintf("%-6s", label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, l, " ", in.View())
}

// SetSize implements ModelWithSize.
func (m *NodeModal) SetSize(width, height int) {
	m.width, m.height = width, height
	if w := width - 16; w > 10 {
		m.name.SetWidth(w)
		m.color.SetWidth(w)
	}
}
