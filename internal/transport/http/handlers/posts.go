package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	apierrors "github.com/pribylovaa/go-blog-forum/internal/transport/http/errors"
)

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	post, err := h.reads.PostByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) ListPostComments(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	opts, err := h.pageOptions(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comments, err := h.reads.ListPostComments(r.Context(), id, opts, opts.SearchText)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	total, err := h.reads.CountPostComments(r.Context(), id, opts.SearchText)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if comments == nil {
		comments = []models.PostComment{}
	}

	writeJSON(w, http.StatusOK, Page[models.PostComment]{Items: comments, Total: total, Page: opts.Page(), PageSize: opts.Limit})
}

func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	size, err := positiveParam(r, "limit", 50)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	images, err := h.reads.Images(r.Context(), size)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if images == nil {
		images = []models.Image{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": images})
}
