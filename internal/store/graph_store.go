package store

import (
	"sync"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
)

// GraphStore holds the nodes derived from the current document together with
// the selected node and the single in-flight edit.
type GraphStore struct {
	mu            sync.RWMutex
	nodes         []graph.Node
	selectedID    string
	hasSelection  bool
	editingNodeID string
	isEditing     bool
	editingValue  string
}

// NewGraphStore returns an empty store.
func NewGraphStore() *GraphStore {
	return &GraphStore{}
}

// Load re-derives the nodes from doc. A selection or edit whose node no
// longer exists is cleared. On error the store is left unchanged.
func (g *GraphStore) Load(doc string) error {
	nodes, err := graph.Build(doc)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nodes
	if g.hasSelection && g.indexOf(g.selectedID) < 0 {
		g.selectedID, g.hasSelection = "", false
	}
	if g.isEditing && g.indexOf(g.editingNodeID) < 0 {
		g.clearEditing()
	}
	return nil
}

// Nodes returns the current nodes in document order.
func (g *GraphStore) Nodes() []graph.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]graph.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns the node with id.
func (g *GraphStore) Node(id string) (graph.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if i := g.indexOf(id); i >= 0 {
		return g.nodes[i], true
	}
	return graph.Node{}, false
}

// FindByPath returns the node located at path.
func (g *GraphStore) FindByPath(path jsonpath.Path) (graph.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return graph.Find(g.nodes, path)
}

// SelectedNode returns the selected node as of the latest Load.
func (g *GraphStore) SelectedNode() (graph.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.hasSelection {
		return graph.Node{}, false
	}
	if i := g.indexOf(g.selectedID); i >= 0 {
		return g.nodes[i], true
	}
	return graph.Node{}, false
}

// SetSelectedNode selects n, or clears the selection when n is nil. Nodes
// not present in the graph are ignored.
func (g *GraphStore) SetSelectedNode(n *graph.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n == nil {
		g.selectedID, g.hasSelection = "", false
		return
	}
	if g.indexOf(n.ID) < 0 {
		return
	}
	g.selectedID, g.hasSelection = n.ID, true
}

// EnterEdit starts editing nodeID with initialValue, discarding any buffer
// held for another node. It reports false when nodeID is not in the graph.
func (g *GraphStore) EnterEdit(nodeID, initialValue string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.indexOf(nodeID) < 0 {
		return false
	}
	g.editingNodeID, g.isEditing, g.editingValue = nodeID, true, initialValue
	return true
}

// UpdateValue replaces the edit buffer. It does nothing when no node is
// being edited.
func (g *GraphStore) UpdateValue(v string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isEditing {
		g.editingValue = v
	}
}

// Cancel leaves edit mode.
func (g *GraphStore) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearEditing()
}

// IsEditing reports whether nodeID is the node being edited.
func (g *GraphStore) IsEditing(nodeID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isEditing && g.editingNodeID == nodeID
}

// EditingNodeID returns the node being edited, if any.
func (g *GraphStore) EditingNodeID() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.editingNodeID, g.isEditing
}

// EditingValue returns the edit buffer.
func (g *GraphStore) EditingValue() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.editingValue
}

func (g *GraphStore) clearEditing() {
	g.editingNodeID, g.isEditing, g.editingValue = "", false, ""
}

func (g *GraphStore) indexOf(id string) int {
	for i := range g.nodes {
		if g.nodes[i].ID == id {
			return i
		}
	}
	return -1
}
