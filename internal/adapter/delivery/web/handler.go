package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/linkly/url-shortener/internal/client"
	"github.com/linkly/url-shortener/internal/session"
	"github.com/linkly/url-shortener/internal/shortcode"
)

const (
	msgLinkCreated     = "Link created successfully!"
	msgLinkDeleted     = "Link deleted successfully!"
	msgListFailed      = "Failed to fetch links. Please try again."
	msgCodeExists      = "Code already exists. Please choose a different code."
	msgUnreachable     = "Cannot connect to server. Please check if the backend is running."
	msgCreateFailed    = "Failed to create link: Please try again."
	msgDeleteFailed    = "Failed to delete link. Please try again."
	msgLinkNotFound    = "Link not found"
	msgStatsFailed     = "Failed to fetch link stats. Please try again."
	msgRedirectFailure = "An error occurred: "
)

type linkClient interface {
	ListLinks(ctx context.Context, search string) ([]client.Link, error)
	CreateLink(ctx context.Context, targetURL, customCode string) (*client.Link, error)
	GetLinkStats(ctx context.Context, code string) (*client.Link, error)
	DeleteLink(ctx context.Context, code string) error
	RedirectURL(code string) (string, error)
}

type page struct {
	Version string
	BaseURL string
}

type createForm struct {
	Open       bool
	TargetURL  string
	CustomCode string
	Error      string
}

type dashboardPage struct {
	page
	Flash  string
	Search string
	Links  []client.Link
	Error  string
	Form   createForm
}

type statsPage struct {
	page
	Code      string
	Link      *client.Link
	Error     string
	Retryable bool
}

type redirectPage struct {
	page
	Code  string
	Error string
}

type alertPage struct {
	page
	Message string
}

type handler struct {
	version  string
	links    linkClient
	sessions *session.Store
	rd       *renderer
}

func (h *handler) page(r *http.Request) page {
	return page{Version: h.version, BaseURL: requestBaseURL(r)}
}

// requestBaseURL is the dashboard origin as seen by the browser.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.rd.render(w, status, name, data); err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func handleHealth(version string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]any{
			"ok":      true,
			"version": version,
			"uptime":  time.Since(startedAt).Seconds(),
		})
	}
}

// dashboard lists links. Visiting it re-enables redirects for every code in
// the session.
func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(w, r)
	sess.ClearRedirects()

	data := dashboardPage{
		page:   h.page(r),
		Flash:  sess.PopFlash(),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	h.loadLinks(r, &data)

	h.renderPage(w, r, http.StatusOK, pageDashboard, data)
}

func (h *handler) loadLinks(r *http.Request, data *dashboardPage) {
	links, err := h.links.ListLinks(r.Context(), data.Search)
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		data.Error = msgListFailed
		return
	}
	data.Links = links
}

func (h *handler) createLink(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(w, r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := createForm{
		TargetURL:  strings.TrimSpace(r.PostForm.Get("targetUrl")),
		CustomCode: strings.TrimSpace(r.PostForm.Get("customCode")),
	}

	_, err := h.links.CreateLink(r.Context(), form.TargetURL, form.CustomCode)
	if err == nil {
		sess.SetFlash(msgLinkCreated)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	var apiErr *client.APIError

	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict:
		status = http.StatusConflict
		form.Error = msgCodeExists
	case errors.As(err, &apiErr) && apiErr.Message != "":
		status = apiErr.StatusCode
		form.Error = apiErr.Message
	case errors.Is(err, client.ErrUnreachable):
		form.Error = msgUnreachable
	default:
		form.Error = msgCreateFailed
	}
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	form.Open = true
	data := dashboardPage{
		page: h.page(r),
		Form: form,
	}
	h.loadLinks(r, &data)

	h.renderPage(w, r, status, pageDashboard, data)
}

func (h *handler) deleteLink(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(w, r)
	code := chi.URLParam(r, "code")

	if err := h.links.DeleteLink(r.Context(), code); err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		status := http.StatusBadGateway
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}

		h.renderPage(w, r, status, pageAlert, alertPage{
			page:    h.page(r),
			Message: msgDeleteFailed,
		})
		return
	}

	sess.SetFlash(msgLinkDeleted)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	data := statsPage{
		page: h.page(r),
		Code: code,
	}

	link, err := h.links.GetLinkStats(r.Context(), code)
	if err != nil {
		status := http.StatusBadGateway
		if client.IsStatus(err, http.StatusNotFound) {
			status = http.StatusNotFound
			data.Error = msgLinkNotFound
		} else {
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
			data.Error = msgStatsFailed
			data.Retryable = true
		}

		h.renderPage(w, r, status, pageStats, data)
		return
	}

	data.Link = link
	h.renderPage(w, r, http.StatusOK, pageStats, data)
}

// redirect sends the browser to the API redirect endpoint at most once per
// session and code. A repeated visit while the guard is set only shows the
// waiting page; the dashboard clears the guard.
func (h *handler) redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	data := redirectPage{
		page: h.page(r),
		Code: code,
	}

	// Paths such as /favicon.ico can never name a link.
	if !shortcode.IsValidCode(code) {
		data.Error = msgLinkNotFound
		h.renderPage(w, r, http.StatusNotFound, pageRedirect, data)
		return
	}

	sess := h.sessions.Load(w, r)

	if !sess.BeginRedirect(code) {
		h.renderPage(w, r, http.StatusOK, pageRedirect, data)
		return
	}

	target, err := h.links.RedirectURL(code)
	if err != nil {
		sess.EndRedirect(code)
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		data.Error = msgRedirectFailure + err.Error()
		h.renderPage(w, r, http.StatusOK, pageRedirect, data)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}
