package api

import (
	"bytes"
	_ "embed"
	"html"
	"net/http"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed index.md
var indexMarkdown []byte

// renderIndex converts the embedded API reference to a standalone HTML page.
func renderIndex(appName string) []byte {
	md := bytes.ReplaceAll(indexMarkdown, []byte("{{APP}}"), []byte(appName))

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse(md)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	body := markdown.Render(doc, renderer)

	var page bytes.Buffer
	page.WriteString(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>`)
	page.WriteString(html.EscapeString(appName))
	page.WriteString(` API</title>
  <style>
    body { font-family: system-ui, -apple-system, sans-serif; max-width: 900px; margin: 40px auto; padding: 0 20px; line-height: 1.6; color: #333; }
    code, pre { background: #f4f4f4; border-radius: 3px; }
    pre { padding: 12px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
  </style>
</head>
<body>
`)
	page.Write(body)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes()
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.index)
}
