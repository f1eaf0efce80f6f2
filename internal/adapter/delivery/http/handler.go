package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/linkly/url-shortener/internal/entity"
	"github.com/linkly/url-shortener/pkg/response"
)

type linkUseCase interface {
	CreateLink(ctx context.Context, targetURL, customCode string) (*entity.Link, error)
	ListLinks(ctx context.Context, search string) ([]entity.Link, error)
	GetLinkStats(ctx context.Context, code string) (*entity.Link, error)
	DeleteLink(ctx context.Context, code string) error
	RedirectAndCount(ctx context.Context, code string) (string, error)
}

func handleHealth(version string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, healthResponse{
			OK:      true,
			Version: version,
			Uptime:  time.Since(startedAt).Seconds(),
		})
	}
}

// handleDocument serves an embedded API document. A failed write means the
// client went away, so it is only logged.
func handleDocument(logger *slog.Logger, contentType string, doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		if _, err := w.Write(doc); err != nil {
			logger.WarnContext(r.Context(), "failed to write document",
				slog.String("path", r.URL.Path),
				slog.Any("err", err),
			)
		}
	}
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

// fail renders err with the status its kind maps to. Unexpected errors are
// attached to the request log entry and hidden from the client.
func (h *linkHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrTargetURLRequired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.TargetURLRequired)
	case errors.Is(err, entity.ErrInvalidURL):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidURL)
	case errors.Is(err, entity.ErrInvalidCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidCode)
	case errors.Is(err, entity.ErrValidation):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidBody)
	case errors.Is(err, entity.ErrCodeExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.CodeExists)
	case errors.Is(err, entity.ErrLinkNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.LinkNotFound)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.InternalError)
	}
}

func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidBody)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(validationMessage(err)))
		return
	}

	link, err := h.useCase.CreateLink(r.Context(), req.TargetURL, req.CustomCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.Success(toLinkResponse(link)))
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toLinkResponses(links)))
}

func (h *linkHandler) getLinkStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.useCase.GetLinkStats(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Success(toLinkResponse(link)))
}

func (h *linkHandler) deleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.useCase.DeleteLink(r.Context(), code); err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Message(response.MsgLinkDeleted))
}

func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	targetURL, err := h.useCase.RedirectAndCount(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.Redirect(w, r, targetURL, http.StatusFound)
}
