package handler

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	mediarepo "storyweave/internal/gateway/repository/media"
)

// MediaHandler serves content-addressed media by hash.
type MediaHandler struct {
	store mediarepo.Store
}

func NewMediaHandler(store mediarepo.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

// HandleMedia serves GET /media/{hash}. Objects never change, so responses
// are cacheable forever and the hash doubles as the ETag.
func (h *MediaHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	hash := strings.ToLower(strings.TrimSpace(r.PathValue("hash")))
	if !mediarepo.ValidHash(hash) {
		http.Error(w, "invalid media hash", http.StatusBadRequest)
		return
	}
	obj, err := h.store.Get(r.Context(), hash)
	if err != nil {
		if errors.Is(err, mediarepo.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("media: get hash=%s: %v", hash, err)
		http.Error(w, "media unavailable", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+hash+`"`)
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(obj.Data))
}
