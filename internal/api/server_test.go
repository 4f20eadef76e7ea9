package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/oakwood-commons/kvedit/internal/config"
	"github.com/oakwood-commons/kvedit/internal/store"
	"github.com/oakwood-commons/kvedit/pkg/loader"
)

const basket = `{
  "name": "basket",
  "fruits": [
    {"name": "Apple", "color": "red"},
    "Cherry"
  ],
  "price": 5
}`

func newTestServer(t *testing.T, doc, path string) (*Server, *store.Session) {
	t.Helper()
	s, err := store.NewSession(loader.Document{JSON: doc, Format: loader.FormatJSON}, path)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewServer(context.Background(), s, config.Config{}), s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func q(path string) string {
	return url.QueryEscape(path)
}

func decodeDocument(t *testing.T, rec *httptest.ResponseRecorder) DocumentResponse {
	t.Helper()
	var got DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), rec.Body.String())
	return got
}

func TestGetDocument(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")
	rec := do(t, srv, http.MethodGet, "/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := decodeDocument(t, rec)
	assert.JSONEq(t, basket, string(got.Document))
	assert.Equal(t, "json", got.Format)
	assert.Empty(t, got.Path)
	assert.False(t, got.Dirty)
}

func TestGetDocumentReportsDirty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "basket.json")
	srv, _ := newTestServer(t, basket, p)

	rec := do(t, srv, http.MethodPut, "/node/value?path="+q("fruits.1"), `{"value":"Plum"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeDocument(t, do(t, srv, http.MethodGet, "/document", ""))
	assert.Equal(t, p, got.Path)
	assert.True(t, got.Dirty)
	assert.Equal(t, "Plum", gjson.GetBytes(got.Document, "fruits.1").String())
}

func TestListNodes(t *testing.T) {
	srv, s := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodGet, "/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []NodeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, len(s.Graph.Nodes()))
	assert.Equal(t, "$", all[0].ID)

	rec = do(t, srv, http.MethodGet, "/nodes?filter="+q(`node.scalar`), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scalars []NodeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scalars))
	require.Len(t, scalars, 1)
	assert.Equal(t, `$["fruits"][1]`, scalars[0].ID)
}

func TestListNodesInvalidFilter(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")
	rec := do(t, srv, http.MethodGet, "/nodes?filter="+q(`node.depth +`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidFilter, decodeError(t, rec).Code)
}

func TestGetNode(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")

	for _, p := range []string{`$["fruits"][0]`, "fruits.0", "fruits[0]"} {
		t.Run(p, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/node?path="+q(p), "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, `$["fruits"][0]`, gjson.Get(rec.Body.String(), "id").String())
			assert.Equal(t, `$["fruits"][0]`, gjson.Get(rec.Body.String(), "path").String())
			assert.Contains(t, gjson.Get(rec.Body.String(), "content").String(), `"name": "Apple"`)
		})
	}
}

func TestGetNodeErrors(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodGet, "/node?path="+q(`$["nope"]`), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodGet, "/node?path="+q(`$[`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidPath, decodeError(t, rec).Code)
}

func TestEditNodeMerges(t *testing.T) {
	srv, s := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.0"), `{"name":"Apricot","color":"orange"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Equal(t, "merged", gjson.Get(body, "mode").String())
	assert.JSONEq(t, `{"fruits":[{"name":"Apricot","color":"orange"},"Cherry"]}`, gjson.Get(body, "mergePatch").Raw)
	assert.Equal(t, "Apricot", gjson.Get(body, "document.fruits.0.name").String())
	assert.Equal(t, `$["fruits"][0]`, gjson.Get(body, "node.id").String())
	assert.Equal(t, "Apricot", gjson.Get(s.JSON.JSON(), "fruits.0.name").String())
	assert.True(t, s.Files.Dirty())
}

func TestEditNodeReplacesScalar(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.1"), `{"name":"Cherry","color":"dark red"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "replaced", gjson.Get(rec.Body.String(), "mode").String())
	assert.Equal(t, "dark red", gjson.Get(rec.Body.String(), "document.fruits.1.color").String())
}

func TestEditRootOmitsMergePatch(t *testing.T) {
	srv, s := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodPost, "/node/edit", `{"name":"X"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Equal(t, "root-replaced", gjson.Get(body, "mode").String())
	assert.False(t, gjson.Get(body, "mergePatch").Exists())
	assert.Equal(t, "X", gjson.Get(body, "document").String())
	assert.Equal(t, `"X"`, s.JSON.JSON())
}

func TestEditNodeBadBody(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.0"), `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidBody, decodeError(t, rec).Code)

	rec = do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.0"), `{"label":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditNodeMalformedDocument(t *testing.T) {
	good, err := store.NewSession(loader.Document{JSON: basket, Format: loader.FormatJSON}, "")
	require.NoError(t, err)
	t.Cleanup(good.Close)

	broken := &store.Session{
		JSON:  store.NewJSONStore(`{"fruits": [`),
		Files: good.Files,
		Graph: good.Graph,
	}
	srv := NewServer(context.Background(), broken, config.Config{})

	rec := do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.0"), `{"name":"N"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrCodeMalformed, decodeError(t, rec).Code)
	assert.Equal(t, `{"fruits": [`, broken.JSON.JSON())
}

func TestSetValue(t *testing.T) {
	srv, s := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodPut, "/node/value?path="+q("fruits.1"), `{"value":"Damson"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Damson", gjson.Get(s.JSON.JSON(), "fruits.1").String())
	assert.Equal(t, "Damson", gjson.Get(rec.Body.String(), "document.fruits.1").String())

	rec = do(t, srv, http.MethodPut, "/node/value?path="+q("fruits.1"), `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveDocument(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		srv, _ := newTestServer(t, basket, "")
		rec := do(t, srv, http.MethodPost, "/document/save", "")
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, ErrCodeNoFile, decodeError(t, rec).Code)
	})

	t.Run("writes file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "basket.json")
		require.NoError(t, os.WriteFile(p, []byte(basket), 0o644))
		srv, _ := newTestServer(t, basket, p)

		rec := do(t, srv, http.MethodPost, "/node/edit?path="+q("fruits.1"), `{"name":"Cherry","color":"cheap red"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, srv, http.MethodPost, "/document/save", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		saved := decodeDocument(t, rec)
		assert.Equal(t, p, saved.Path)
		assert.False(t, saved.Dirty)

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "cheap red", gjson.GetBytes(data, "fruits.1.color").String())
	})
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")
	srv.cfg.ShutdownTimeout = time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/document")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListNodesPaging(t *testing.T) {
	srv, _ := newTestServer(t, basket, "")

	rec := do(t, srv, http.MethodGet, "/nodes?offset=1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ids := gjson.Get(rec.Body.String(), "#.id").Array()
	require.Len(t, ids, 1)
	assert.Equal(t, `$["fruits"][0]`, ids[0].String())

	rec = do(t, srv, http.MethodGet, "/nodes?tail=1&filter="+q("node.depth > 0"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `$["fruits"][1]`, gjson.Get(rec.Body.String(), "0.id").String())

	for _, query := range []string{"limit=x", "limit=-1", "limit=1&tail=1"} {
		rec = do(t, srv, http.MethodGet, "/nodes?"+query, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Equal(t, ErrCodeInvalidPage, decodeError(t, rec).Code, query)
	}
}

func TestIndexPage(t *testing.T) {
	s, err := store.NewSession(loader.Document{JSON: basket, Format: loader.FormatJSON}, "")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	srv := NewServer(context.Background(), s, config.Config{App: config.AppConfig{Name: "basket <editor>"}})

	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>basket &lt;editor&gt; API</title>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "<code>/node/edit?path=</code>")
	assert.NotContains(t, body, "{{APP}}")
}
