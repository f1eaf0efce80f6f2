package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	pageDashboard = "dashboard"
	pageStats     = "stats"
	pageRedirect  = "redirect"
	pageAlert     = "alert"
)

var funcs = template.FuncMap{
	"formatTime": formatTime,
	"truncate":   truncate,
	"shortURL":   shortURL,
}

// formatTime renders t in UTC, or "Never" when t is nil or zero.
func formatTime(t any) string {
	switch v := t.(type) {
	case *time.Time:
		if v == nil || v.IsZero() {
			return "Never"
		}
		return v.UTC().Format("2006-01-02 15:04:05 UTC")
	case time.Time:
		if v.IsZero() {
			return "Never"
		}
		return v.UTC().Format("2006-01-02 15:04:05 UTC")
	default:
		return "Never"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func shortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	const op = "web.newRenderer"

	rd := &renderer{pages: make(map[string]*template.Template)}

	for _, page := range []string{pageDashboard, pageStats, pageRedirect, pageAlert} {
		t, err := template.New("layout.html").
			Funcs(funcs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse %s page: %w", op, page, err)
		}
		rd.pages[page] = t
	}

	return rd, nil
}

// render executes page into a buffer first so a template error never leaves
// a half-written response.
func (rd *renderer) render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := rd.pages[page]
	if !ok {
		return fmt.Errorf("web.renderer.render: unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("web.renderer.render: failed to execute %s page: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)

	return err
}
