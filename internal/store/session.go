package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oakwood-commons/kvedit/internal/document"
	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/pkg/loader"
	"github.com/oakwood-commons/kvedit/pkg/logger"
)

// ErrNodeNotFound is returned when an operation names a node that is not in
// the graph.
var ErrNodeNotFound = errors.New("node not found")

// Session wires the three stores together: every document change re-derives
// the graph before SetJSON returns, so callers can re-select immediately.
type Session struct {
	JSON  *JSONStore
	Files *FileStore
	Graph *GraphStore

	// NameKeys are the row keys an inline save on an object node updates.
	// Set before the session is shared.
	NameKeys []string

	// mu serializes edits so a patch is always computed from the document
	// it replaces.
	mu          sync.Mutex
	unsubscribe func()
}

// NewSession builds the stores for doc loaded from path.
func NewSession(doc loader.Document, path string) (*Session, error) {
	g := NewGraphStore()
	if err := g.Load(doc.JSON); err != nil {
		return nil, fmt.Errorf("derive graph: %w", err)
	}
	s := &Session{
		JSON:     NewJSONStore(doc.JSON),
		Files:    NewFileStore(path, doc.Format, doc.JSON),
		Graph:    g,
		NameKeys: nodeview.DefaultNameKeys,
	}
	s.unsubscribe = s.JSON.Subscribe(func(next string) {
		// SetJSON only accepts valid documents, so Load cannot fail here.
		_ = s.Graph.Load(next)
	})
	return s, nil
}

// Close detaches the graph from the document store.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// SaveNodeEdit applies a name/color edit to the node with nodeID. On failure
// nothing is committed and editing state is kept so the user can retry. On
// success the document and file stores are updated, the node at the edited
// path is re-selected when it still exists, and edit mode is left.
func (s *Session) SaveNodeEdit(ctx context.Context, nodeID string, edit document.Edit) (document.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lgr := logger.FromContext(ctx)
	node, ok := s.Graph.Node(nodeID)
	if !ok {
		return document.Result{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	res, err := document.Apply(s.JSON.JSON(), node.Path, edit)
	if err != nil {
		lgr.Error(err, "Failed to save node edit", logger.NodePathKey, node.ID)
		return document.Result{}, err
	}
	if err := s.commit(node, res.Document); err != nil {
		lgr.Error(err, "Failed to save node edit", logger.NodePathKey, node.ID)
		return document.Result{}, err
	}
	lgr.V(1).Info("saved node edit", logger.NodePathKey, node.ID, logger.EditModeKey, res.Mode.String())
	return res, nil
}

// SaveInlineValue stores text from the inline editor. A string node keeps
// text as a string, any other scalar node takes text as JSON when it parses,
// and an object node gets text as its name: the existing name row (matched by
// NameKeys) is updated in place, otherwise a "name" key is merged in.
func (s *Session) SaveInlineValue(ctx context.Context, nodeID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lgr := logger.FromContext(ctx)
	node, ok := s.Graph.Node(nodeID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	var next string
	var err error
	switch {
	case node.IsScalar() && node.Rows[0].Type == graph.TypeString:
		next, err = document.SetValue(s.JSON.JSON(), node.Path, document.QuoteString(text))
	case node.IsScalar():
		next, err = document.SetValue(s.JSON.JSON(), node.Path, text)
	default:
		if k, found := nodeview.NameKey(node.Rows, s.NameKeys); found && len(node.Path) > 0 {
			next, err = document.SetValue(s.JSON.JSON(), node.Path.Append(jsonpath.Key(k)), document.QuoteString(text))
		} else {
			next, err = document.Patch(s.JSON.JSON(), node.Path, document.Edit{Name: text})
		}
	}
	if err == nil {
		err = s.commit(node, next)
	}
	if err != nil {
		lgr.Error(err, "Failed to save node value", logger.NodePathKey, node.ID)
		return "", err
	}
	lgr.V(1).Info("saved node value", logger.NodePathKey, node.ID)
	return next, nil
}

// InitialValue is what the inline editor starts with for n: the scalar value,
// or the object's name.
func InitialValue(n graph.Node, nameKeys []string) string {
	name, _ := nodeview.EditFields(n.Rows, nameKeys, nil)
	return name
}

func (s *Session) commit(node graph.Node, next string) error {
	if err := s.JSON.SetJSON(next); err != nil {
		return err
	}
	s.Files.SetContents(Contents{Contents: next})
	if n, ok := s.Graph.FindByPath(node.Path); ok {
		s.Graph.SetSelectedNode(&n)
	}
	s.Graph.Cancel()
	return nil
}
