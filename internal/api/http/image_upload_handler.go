package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/storage"

	"github.com/gorilla/mux"
)

const downloadURLTTL = 24 * time.Hour

// UploadLimits bounds inspection photo uploads.
type UploadLimits struct {
	MaxBytes     int64
	AllowedTypes []string
}

func (l UploadLimits) allows(contentType string) bool {
	for _, t := range l.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// PhotoHandler stores inspection and licence photos and serves them back
// for the local backend.
type PhotoHandler struct {
	store  storage.StorageInterface
	limits UploadLimits
	now    func() time.Time
}

type uploadPhotoResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewPhotoHandler(store storage.StorageInterface, limits UploadLimits) *PhotoHandler {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = 10 << 20
	}
	if len(limits.AllowedTypes) == 0 {
		limits.AllowedTypes = []string{"image/jpeg", "image/png"}
	}
	return &PhotoHandler{store: store, limits: limits, now: time.Now}
}

// HandleUpload accepts a multipart form with the image in the "file" field
// and returns the key to pass as photo_ref.
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart envelope on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(h.limits.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorCode(w, http.StatusRequestEntityTooLarge, string(domain.KindValidation), "file too large")
			return
		}
		writeError(w, r, domain.Validationf("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.Validationf("file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.limits.MaxBytes {
		writeErrorCode(w, http.StatusRequestEntityTooLarge, string(domain.KindValidation), "file too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !h.limits.allows(contentType) {
		writeError(w, r, domain.Validationf("content type %q not allowed", contentType))
		return
	}

	key := storage.NewPhotoKey(h.now(), contentType)
	if err := h.store.SaveFile(r.Context(), key, contentType, file); err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.store.GenerateDownloadURL(r.Context(), key, downloadURLTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("Photo uploaded", "key", key, "bytes", header.Size)
	writeJSON(w, http.StatusCreated, uploadPhotoResponse{Key: key, URL: url})
}

// HandleDownload streams a stored file.
func (h *PhotoHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	file, err := h.store.ReadFile(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		writeError(w, r, domain.Validationf("invalid file key"))
		return
	case errors.Is(err, storage.ErrFileNotFound):
		writeError(w, r, domain.NotFoundf("file not found"))
		return
	case err != nil:
		writeError(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", storage.ContentTypeFor(key))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, file); err != nil {
		logger.FromContext(r.Context()).Warn("Download interrupted", "key", key, "error", err)
	}
}
