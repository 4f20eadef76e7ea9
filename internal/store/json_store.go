// Package store holds the shared state the editor views and the HTTP API
// work against: the document text, the file it came from, and the derived
// graph with its selection and editing state.
package store

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/oakwood-commons/kvedit/internal/graph"
)

// Listener receives the new document after a successful SetJSON.
type Listener func(doc string)

type listenerEntry struct {
	id int
	fn Listener
}

// JSONStore owns the current document text.
type JSONStore struct {
	mu        sync.RWMutex
	json      string
	listeners []listenerEntry
	nextID    int
}

// NewJSONStore returns a store holding doc.
func NewJSONStore(doc string) *JSONStore {
	return &JSONStore{json: doc}
}

// JSON returns the current document text.
func (s *JSONStore) JSON() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.json
}

// SetJSON replaces the document and runs every listener before returning.
// Invalid JSON is rejected without touching the store.
func (s *JSONStore) SetJSON(doc string) error {
	if !gjson.Valid(doc) {
		return fmt.Errorf("set document: %w", graph.ErrInvalidDocument)
	}
	s.mu.Lock()
	s.json = doc
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(doc)
	}
	return nil
}

// Subscribe registers fn and returns a function that removes it.
func (s *JSONStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
