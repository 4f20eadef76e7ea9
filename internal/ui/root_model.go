package ui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/kvedit/internal/cel"
	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/logger"
)

// Mode controls where key messages are routed.
type Mode int

const (
	// NormalMode browses the node list.
	NormalMode Mode = iota
	// ModalMode routes input to the node modal.
	ModalMode
	// InlineMode routes input to the selected node's inline editor.
	InlineMode
	// FilterMode edits the CEL node filter.
	FilterMode
)

// Options configures the browser.
type Options struct {
	AppName      string
	NameKeys     []string
	ColorKeys    []string
	SummaryWidth int
	NoColor      bool
}

// RootModel lists the graph's nodes and hosts the node modal and the inline
// editor. It is the program's tea.Model.
type RootModel struct {
	ctx     context.Context
	session *store.Session
	opts    Options

	mode   Mode
	modal  *NodeModal
	inline *NodeEditUI

	filterInput textinput.Model
	filter      *cel.NodeFilter

	cursor    int
	status    string
	statusErr bool

	width    int
	height   int
	quitting bool
}

// NewRootModel returns a browser over session. The first node is selected.
func NewRootModel(ctx context.Context, session *store.Session, opts Options) *RootModel {
	if opts.AppName == "" {
		opts.AppName = "kvedit"
	}
	if len(opts.NameKeys) == 0 {
		opts.NameKeys = nodeview.DefaultNameKeys
	}
	if len(opts.ColorKeys) == 0 {
		opts.ColorKeys = nodeview.DefaultColorKeys
	}
	fi := textinput.New()
	fi.Prompt = "filter: "
	fi.Placeholder = `"color" in node.keys`
	fi.CharLimit = 500
	fi.SetWidth(60)

	m := &RootModel{
		ctx:         ctx,
		session:     session,
		opts:        opts,
		mode:        NormalMode,
		filterInput: fi,
		width:       80,
		height:      24,
	}
	if sel, ok := session.Graph.SelectedNode(); ok {
		m.cursor = m.indexOf(sel.ID)
	} else {
		m.selectCursor()
	}
	return m
}

// Init implements tea.Model.
func (m *RootModel) Init() tea.Cmd {
	return nil
}

// Mode returns the current routing mode.
func (m *RootModel) Mode() Mode {
	return m.mode
}

// Modal returns the open modal, if any.
func (m *RootModel) Modal() *NodeModal {
	return m.modal
}

// Status returns the status line text and whether it is an error.
func (m *RootModel) Status() (string, bool) {
	return m.status, m.statusErr
}

// visible returns the nodes that pass the current filter.
func (m *RootModel) visible() []graph.Node {
	nodes := m.session.Graph.Nodes()
	out, err := m.filter.Filter(nodes)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nodes
	}
	return out
}

func (m *RootModel) indexOf(id string) int {
	for i, n := range m.visible() {
		if n.ID == id {
			return i
		}
	}
	return 0
}

// selectCursor clamps the cursor and mirrors it into the graph store.
func (m *RootModel) selectCursor() {
	nodes := m.visible()
	if len(nodes) == 0 {
		m.cursor = 0
		m.session.Graph.SetSelectedNode(nil)
		return
	}
	if m.cursor >= len(nodes) {
		m.cursor = len(nodes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	n := nodes[m.cursor]
	m.session.Graph.SetSelectedNode(&n)
}

// syncCursor moves the cursor onto the store's selected node after the graph
// was re-derived.
func (m *RootModel) syncCursor() {
	if sel, ok := m.session.Graph.SelectedNode(); ok {
		m.cursor = m.indexOf(sel.ID)
	}
	m.selectCursor()
}

func (m *RootModel) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

// Update implements tea.Model.
func (m *RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.modal != nil {
			m.modal.SetSize(m.width, m.height)
		}
		if m.inline != nil {
			m.inline.SetSize(m.width, 1)
		}
		m.filterInput.SetWidth(max(10, m.width-len(m.filterInput.Prompt)-2))
		return m, nil

	case NodeSavedMsg:
		m.setStatus("saved "+msg.NodeID, false)
		if m.mode == InlineMode {
			m.inline = nil
			m.mode = NormalMode
		}
		m.syncCursor()
		return m, nil

	case SaveFailedMsg:
		m.setStatus("save failed: "+msg.Err.Error(), true)
		return m, nil

	case ModalClosedMsg:
		m.modal = nil
		m.mode = NormalMode
		m.syncCursor()
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" || msg.Key().Code == 0x03 {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case ModalMode:
			_, cmd := m.modal.Update(msg)
			return m, cmd
		case InlineMode:
			_, cmd := m.inline.Update(msg)
			if !m.inline.Editing() {
				m.inline = nil
				m.mode = NormalMode
			}
			return m, cmd
		case FilterMode:
			return m.updateFilter(msg)
		default:
			return m.updateNormal(msg)
		}
	}

	switch m.mode {
	case ModalMode:
		_, cmd := m.modal.Update(msg)
		return m, cmd
	case InlineMode:
		_, cmd := m.inline.Update(msg)
		return m, cmd
	case FilterMode:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *RootModel) updateNormal(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.cursor--
		m.selectCursor()
	case "down", "j":
		m.cursor++
		m.selectCursor()
	case "home", "g":
		m.cursor = 0
		m.selectCursor()
	case "end", "G":
		m.cursor = len(m.visible()) - 1
		m.selectCursor()
	case "enter":
		sel, ok := m.session.Graph.SelectedNode()
		if !ok {
			return m, nil
		}
		m.modal = NewNodeModal(m.ctx, m.session, sel.ID, ModalOptions{
			NameKeys:  m.opts.NameKeys,
			ColorKeys: m.opts.ColorKeys,
			NoColor:   m.opts.NoColor,
		})
		m.modal.SetSize(m.width, m.height)
		m.mode = ModalMode
		return m, m.modal.Init()
	case "i":
		sel, ok := m.session.Graph.SelectedNode()
		if !ok {
			return m, nil
		}
		id := sel.ID
		m.inline = NewNodeEditUI(id, store.InitialValue(sel, m.opts.NameKeys), m.session.Graph, func(v string) error {
			_, err := m.session.SaveInlineValue(m.ctx, id, v)
			return err
		}, m.opts.NoColor)
		m.inline.SetSize(m.width, 1)
		cmd := m.inline.StartEdit()
		if !m.inline.Editing() {
			m.inline = nil
			return m, nil
		}
		m.mode = InlineMode
		return m, cmd
	case "/":
		m.mode = FilterMode
		if m.filter != nil {
			m.filterInput.SetValue(m.filter.String())
		}
		return m, m.filterInput.Focus()
	case "ctrl+s":
		return m, m.saveFile()
	}
	return m, nil
}

func (m *RootModel) updateFilter(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.Blur()
		m.mode = NormalMode
		return m, nil
	case "enter":
		expr := strings.TrimSpace(m.filterInput.Value())
		if expr == "" {
			m.filter = nil
			m.setStatus("filter cleared", false)
		} else {
			f, err := cel.NewNodeFilter(expr)
			if err != nil {
				m.setStatus(err.Error(), true)
				return m, nil
			}
			m.filter = f
			m.setStatus("filter: "+expr, false)
		}
		m.filterInput.Blur()
		m.mode = NormalMode
		m.cursor = 0
		m.selectCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *RootModel) saveFile() tea.Cmd {
	lgr := logger.FromContext(m.ctx)
	if err := m.session.Files.Save(m.ctx); err != nil {
		lgr.Error(err, "Failed to save file", logger.FileKey, m.session.Files.Path())
		m.setStatus("write failed: "+err.Error(), true)
		return nil
	}
	m.setStatus("wrote "+m.session.Files.Path(), false)
	return nil
}

// View implements tea.Model.
func (m *RootModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	var body string
	if m.mode == ModalMode && m.modal != nil {
		body = m.header() + "\n" + m.modal.View() + "\n" + m.footer()
	} else {
		body = m.header() + "\n" + m.list() + m.footer()
	}
	v := tea.NewView(body)
	v.AltScreen = true
	return v
}

func (m *RootModel) header() string {
	s := newStyles(CurrentTheme(), m.opts.NoColor)
	title := m.opts.AppName
	if p := m.session.Files.Path(); p != "" {
		title += " " + p
	}
	if m.session.Files.Dirty() {
		title += " [modified]"
	}
	return s.title.Render(title)
}

// list renders the rows that fit between the header and the footer, keeping
// the cursor in view.
func (m *RootModel) list() string {
	s := newStyles(CurrentTheme(), m.opts.NoColor)
	nodes := m.visible()
	if len(nodes) == 0 {
		return s.muted.Render("no nodes") + "\n"
	}

	rows := m.height - 4
	if m.mode == InlineMode {
		rows--
	}
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(len(nodes), start+rows)

	summaryWidth := m.opts.SummaryWidth
	if summaryWidth <= 0 {
		summaryWidth = 60
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		n := nodes[i]
		id := runewidth.Truncate(n.ID, max(10, m.width/2), "…")
		room := m.width - runewidth.StringWidth(id) - 4
		summary := runewidth.Truncate(nodeview.Summary(n), max(0, min(room, summaryWidth)), "…")
		if i == m.cursor {
			line := runewidth.FillRight("› "+id+"  "+summary, max(0, m.width))
			b.WriteString(s.selected.Render(line))
		} else {
			b.WriteString("  " + s.path.Render(id) + "  " + s.muted.Render(summary))
		}
		b.WriteString("\n")
		if i == m.cursor && m.mode == InlineMode && m.inline != nil {
			b.WriteString("    " + m.inline.View() + "\n")
		}
	}
	return b.String()
}

func (m *RootModel) footer() string {
	s := newStyles(CurrentTheme(), m.opts.NoColor)
	var lines []string
	if m.mode == FilterMode {
		lines = append(lines, m.filterInput.View())
	}
	if m.status != "" {
		if m.statusErr {
			lines = append(lines, s.err.Render(m.status))
		} else {
			lines = append(lines, s.success.Render(m.status))
		}
	}
	help := "↑/↓ move • enter open • i edit value • / filter • ctrl+s write • q quit"
	switch m.mode {
	case ModalMode:
		help = "e edit • tab switch field • enter save • esc back"
	case InlineMode:
		help = "enter save • esc cancel"
	case FilterMode:
		help = "enter apply • esc back • empty clears"
	}
	lines = append(lines, s.muted.Render(fmt.Sprintf("%d nodes • %s", len(m.visible()), help)))
	return strings.Join(lines, "\n")
}
