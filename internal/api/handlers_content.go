package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/midnightspa/platform/internal/store"
)

type contentRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

func decodeContent(w http.ResponseWriter, r *http.Request) (contentRequest, bool) {
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.Slug == "" || req.Title == "" {
		respondError(w, http.StatusUnprocessableEntity, "slug and title are required")
		return req, false
	}
	return req, true
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeContent(w, r)
	if !ok {
		return
	}

	post, err := store.CreatePost(r.Context(), h.db, req.Slug, req.Title, req.Published)
	if err != nil {
		log.Printf("Create post: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, post)
}

func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var req struct {
		Published bool `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := store.SetPostPublished(r.Context(), h.db, id, req.Published); err != nil {
		log.Printf("Publish post: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"published": req.Published})
}

func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeContent(w, r)
	if !ok {
		return
	}

	video, err := store.CreateVideo(r.Context(), h.db, req.Slug, req.Title, req.Published)
	if err != nil {
		log.Printf("Create video: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, video)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeContent(w, r)
	if !ok {
		return
	}

	category, err := store.CreateCategory(r.Context(), h.db, req.Slug, req.Title, req.Published)
	if err != nil {
		log.Printf("Create category: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, category)
}

func (h *Handler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID int64  `json:"categoryId"`
		Slug       string `json:"slug"`
		Title      string `json:"title"`
		Published  bool   `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CategoryID == 0 || req.Slug == "" || req.Title == "" {
		respondError(w, http.StatusUnprocessableEntity, "categoryId, slug and title are required")
		return
	}

	sub, err := store.CreateSubcategory(r.Context(), h.db, req.CategoryID, req.Slug, req.Title, req.Published)
	if err != nil {
		log.Printf("Create subcategory: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}
