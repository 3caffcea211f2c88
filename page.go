package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"
)

//go:embed web/index.html.tmpl
var webFS embed.FS

var pageTemplate = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"clock":      func(t time.Time) string { return t.Local().Format("15:04") },
	"kindTitle":  func(k QueryKind) string { return k.title() },
	"kindTitles": kindTitles,
}).ParseFS(webFS, "web/index.html.tmpl"))

// kindTitles feeds the card headings to the page script, keyed by kind.
func kindTitles() map[QueryKind]string {
	titles := make(map[QueryKind]string, 4)
	for _, k := range []QueryKind{QueryKindTraffic, QueryKindFuel, QueryKindDining, QueryKindCustom} {
		titles[k] = k.title()
	}
	return titles
}

// handlerIndex renders the page from the current snapshot. The embedded script
// then keeps it current from /api/events.
func (cfg *apiConfig) handlerIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, cfg.store.Snapshot()); err != nil {
		cfg.respondWithError(w, http.StatusInternalServerError, "Error rendering page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		cfg.logger.Error("error writing page", "error", err)
	}
}
