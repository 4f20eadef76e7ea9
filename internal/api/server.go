// Package api exposes a session's document and node operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oakwood-commons/kvedit/internal/cel"
	"github.com/oakwood-commons/kvedit/internal/config"
	"github.com/oakwood-commons/kvedit/internal/document"
	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
	"github.com/oakwood-commons/kvedit/internal/limiter"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/logger"
)

// Server serves one session.
type Server struct {
	session *store.Session
	cfg     config.ServerConfig
	ctx     context.Context
	router  chi.Router
	index   []byte
}

// NodeSummary is one entry of GET /nodes.
type NodeSummary struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// DocumentResponse is the body of GET /document and POST /document/save.
// Path is empty when the document was read from stdin.
type DocumentResponse struct {
	Document json.RawMessage `json:"document"`
	Format   string          `json:"format"`
	Path     string          `json:"path"`
	Dirty    bool            `json:"dirty"`
}

// EditResponse is the body returned by the edit endpoints.
type EditResponse struct {
	Node       *nodeview.View  `json:"node,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	MergePatch json.RawMessage `json:"mergePatch,omitempty"`
	Document   json.RawMessage `json:"document"`
}

type valueRequest struct {
	Value *string `json:"value"`
}

// NewServer builds the router. ctx carries the logger used for requests.
func NewServer(ctx context.Context, session *store.Session, cfg config.Config) *Server {
	name := cfg.App.Name
	if name == "" {
		name = "kvedit"
	}
	s := &Server{session: session, cfg: cfg.Server, ctx: ctx, index: renderIndex(name)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/document", s.handleGetDocument)
	r.Post("/document/save", s.handleSaveDocument)
	r.Get("/nodes", s.handleListNodes)
	r.Get("/node", s.handleGetNode)
	r.Post("/node/edit", s.handleEditNode)
	r.Put("/node/value", s.handleSetValue)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	lgr := logger.FromContext(ctx)
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		lgr.Info("serving", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		lgr.Info("server stopped")
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.FromContext(s.ctx).V(1).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, _ *http.Request) {
	s.writeDocument(w)
}

func (s *Server) writeDocument(w http.ResponseWriter) {
	doc := s.session.JSON.JSON()
	if !json.Valid([]byte(doc)) {
		writeError(w, http.StatusUnprocessableEntity, NewError(ErrCodeMalformed, "current content is not valid JSON"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		Document: json.RawMessage(doc),
		Format:   string(s.session.Files.Format()),
		Path:     s.session.Files.Path(),
		Dirty:    s.session.Files.Dirty(),
	})
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Files.Save(s.requestContext(r)); err != nil {
		if errors.Is(err, store.ErrNoPath) {
			writeError(w, http.StatusConflict, NewError(ErrCodeNoFile, err.Error()))
			return
		}
		writeError(w, http.StatusInternalServerError, NewError(ErrCodeWriteFailed, err.Error()))
		return
	}
	s.writeDocument(w)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidPage, err.Error()))
		return
	}
	nodes := s.session.Graph.Nodes()
	if expr := r.URL.Query().Get("filter"); expr != "" {
		f, err := cel.NewNodeFilter(expr)
		if err != nil {
			writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidFilter, err.Error()))
			return
		}
		if nodes, err = f.Filter(nodes); err != nil {
			writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidFilter, err.Error()))
			return
		}
	}
	nodes = limiter.Apply(page, nodes)
	out := make([]NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeSummary{ID: n.ID, Path: nodeview.FormatPath(n.Path), Summary: nodeview.Summary(n)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nodeview.NewView(n))
}

func (s *Server) handleEditNode(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	var edit document.Edit
	if !decodeBody(w, r, &edit) {
		return
	}

	before := s.session.JSON.JSON()
	res, err := s.session.SaveNodeEdit(s.requestContext(r), n.ID, edit)
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	resp := EditResponse{Mode: res.Mode.String(), Document: json.RawMessage(res.Document)}
	if patch, err := document.MergePatch(before, res.Document); err == nil {
		resp.MergePatch = json.RawMessage(patch)
	}
	if updated, ok := s.session.Graph.FindByPath(n.Path); ok {
		v := nodeview.NewView(updated)
		resp.Node = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNode(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidBody, "value is required"))
		return
	}

	before := s.session.JSON.JSON()
	next, err := s.session.SaveInlineValue(s.requestContext(r), n.ID, *req.Value)
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	resp := EditResponse{Document: json.RawMessage(next)}
	if patch, err := document.MergePatch(before, next); err == nil {
		resp.MergePatch = json.RawMessage(patch)
	}
	if updated, ok := s.session.Graph.FindByPath(n.Path); ok {
		v := nodeview.NewView(updated)
		resp.Node = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// pageFromQuery reads limit, offset and tail.
func pageFromQuery(q url.Values) (limiter.Config, error) {
	var page limiter.Config
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset, "tail": &page.Tail} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return limiter.Config{}, fmt.Errorf("%s: %q is not a number", name, raw)
		}
		*dst = n
	}
	return page, page.Validate()
}

// lookupNode resolves the path query parameter to a node, writing the error
// response when it cannot.
func (s *Server) lookupNode(w http.ResponseWriter, r *http.Request) (graph.Node, bool) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		raw = "$"
	}
	p, err := jsonpath.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidPath, err.Error()))
		return graph.Node{}, false
	}
	n, ok := s.session.Graph.FindByPath(p)
	if !ok {
		n, ok = s.session.Graph.FindByPath(p.NumericKeysAsIndexes())
	}
	if !ok {
		writeError(w, http.StatusNotFound, NewError(ErrCodeNotFound, "no node at "+jsonpath.Format(p)))
		return graph.Node{}, false
	}
	return n, true
}

func (s *Server) writeSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrMalformedDocument):
		writeError(w, http.StatusUnprocessableEntity, NewError(ErrCodeMalformed, err.Error()))
	case errors.Is(err, store.ErrNodeNotFound), errors.Is(err, document.ErrPathNotFound):
		writeError(w, http.StatusNotFound, NewError(ErrCodeNotFound, err.Error()))
	default:
		writeError(w, http.StatusInternalServerError, NewError(ErrCodeInternal, err.Error()))
	}
}

// requestContext carries the server logger into the request context.
func (s *Server) requestContext(r *http.Request) context.Context {
	return logger.WithLogger(r.Context(), logger.FromContext(s.ctx))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, NewError(ErrCodeInvalidBody, err.Error()))
		return false
	}
	return true
}
