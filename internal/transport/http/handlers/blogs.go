package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	apierrors "github.com/pribylovaa/go-blog-forum/internal/transport/http/errors"
)

func (h *Handlers) ListBlogs(w http.ResponseWriter, r *http.Request) {
	opts, err := h.pageOptions(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	blogs, err := h.reads.ListBlogs(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	total, err := h.reads.CountBlogs(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if blogs == nil {
		blogs = []models.Blog{}
	}

	writeJSON(w, http.StatusOK, Page[models.Blog]{Items: blogs, Total: total, Page: opts.Page(), PageSize: opts.Limit})
}
