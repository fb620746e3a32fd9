package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"courier/internal/blob"
	"courier/internal/db"
	"courier/internal/mediaurl"
)

type UploadHandler struct {
	blobs   *blob.Service
	records *db.BlobRepository
	baseURL string
}

func NewUploadHandler(blobService *blob.Service, records *db.BlobRepository, baseURL string) *UploadHandler {
	return &UploadHandler{blobs: blobService, records: records, baseURL: baseURL}
}

type ChatUploadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// POST /api/v1/uploads/chat
//
// Stores the file durably before any message references it. The returned blob
// ID is what a subsequent send request carries in its files array; blobs that
// never get referenced are swept by the cleanup service.
func (h *UploadHandler) UploadChatAttachment(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	file, fileHeader, cleanup, ok := readSingleFileUpload(w, r, h.blobs.MaxUploadBytes())
	if !ok {
		return
	}
	defer cleanup()
	defer file.Close()

	stored, err := h.blobs.Save(r.Context(), blob.KindChatAttachment, fileHeader.Filename, file)
	if !handleBlobSaveError(w, err) {
		return
	}

	rec := &db.BlobRecord{
		ID:           stored.ID,
		OwnerID:      principal.UserID,
		Kind:         string(stored.Kind),
		StoragePath:  stored.StoragePath,
		MimeType:     stored.MimeType,
		SizeBytes:    stored.SizeBytes,
		OriginalName: stored.OriginalName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.records.Create(rec); err != nil {
		_ = h.blobs.Delete(stored.StoragePath)
		slog.Error("error recording blob", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, ChatUploadResponse{
		ID:        stored.ID,
		Name:      stored.OriginalName,
		URL:       mediaurl.Blob(h.baseURL, stored.ID),
		MimeType:  stored.MimeType,
		SizeBytes: stored.SizeBytes,
	})
}

func readSingleFileUpload(
	w http.ResponseWriter,
	r *http.Request,
	maxBytes int64,
) (multipart.File, *multipart.FileHeader, func(), bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "File exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid multipart upload")
		}
		return nil, nil, func() {}, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "File field 'file' is required")
		cleanup()
		return nil, nil, func() {}, false
	}

	if fileHeader == nil || strings.TrimSpace(fileHeader.Filename) == "" {
		file.Close()
		cleanup()
		badRequest(w, "File name is required")
		return nil, nil, func() {}, false
	}

	return file, fileHeader, cleanup, true
}

func handleBlobSaveError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, blob.ErrFileTooLarge) {
		payloadTooLarge(w, "File exceeds maximum upload size")
		return false
	}
	if errors.Is(err, blob.ErrDisallowedType) {
		badRequest(w, "Unsupported file type")
		return false
	}
	if errors.Is(err, blob.ErrExecutableFile) {
		badRequest(w, "Executable files are not allowed")
		return false
	}

	slog.Error("error saving blob", "error", err)
	internalError(w)
	return false
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
