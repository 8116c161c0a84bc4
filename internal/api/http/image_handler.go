package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/security"

	"github.com/gorilla/mux"
)

// ImageOpener reads stored proof images. LocalStorage implements it; S3
// deployments serve images from the bucket instead.
type ImageOpener interface {
	Open(key string) (io.ReadCloser, error)
}

// ImageHandler streams proof images to authenticated users.
type ImageHandler struct {
	images ImageOpener
	tokens security.TokenManager
}

// NewImageHandler creates a new download handler
func NewImageHandler(images ImageOpener, tokens security.TokenManager) *ImageHandler {
	return &ImageHandler{images: images, tokens: tokens}
}

// HandleDownload handles GET requests for a stored image key
func (h *ImageHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}
	if token == "" {
		http.Error(w, "Missing authorization", http.StatusUnauthorized)
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	key := mux.Vars(r)["key"]
	if key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	file, err := h.images.Open(key)
	if err != nil {
		logger.Debug("Image not found", "key", key, "error", err)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	case ".webp":
		contentType = "image/webp"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Image stream interrupted", "key", key, "error", err)
	}
}
