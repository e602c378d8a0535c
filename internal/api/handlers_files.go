// handlers_files.go - Uploaded file handlers
package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/metrics"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/storage"
)

// maxRecentFiles caps the recent file listing.
const maxRecentFiles = 50

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store storage.Store
	log   *zap.Logger
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, log *zap.Logger) FileHandler {
	return &FileHandlerImpl{store: store, log: log}
}

// HandleUploadFile accepts a file as base64 JSON and saves it to storage
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	return h.save(c, req.Name, func() (*models.FileInfo, error) {
		return h.store.Save(req.Name, bytes.NewReader(decoded))
	})
}

// HandleUploadBinary accepts a raw file upload (multipart/form-data)
func (h *FileHandlerImpl) HandleUploadBinary(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	return h.save(c, file.Filename, func() (*models.FileInfo, error) {
		return h.store.Save(file.Filename, src)
	})
}

func (h *FileHandlerImpl) save(c echo.Context, name string, fn func() (*models.FileInfo, error)) error {
	info, err := fn()
	if errors.Is(err, storage.ErrUnsupportedKind) {
		return NewBadRequestError("only .cfg, .dat and .inf files are accepted", err)
	}
	if err != nil {
		return NewInternalError("failed to save file", err)
	}
	metrics.FilesUploaded.WithLabelValues(string(info.Kind)).Inc()
	h.log.Debug("upload accepted", zap.String("name", name), zap.String("id", info.ID))
	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns recently uploaded files, optionally filtered by ?kind=cfg|dat|inf
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := maxRecentFiles
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v < maxRecentFiles {
		limit = v
	}

	files, err := h.store.List(0)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	kind := models.FileKind(c.QueryParam("kind"))
	out := make([]*models.FileInfo, 0, limit)
	for _, f := range files {
		if kind != "" && f.Kind != kind {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}

	return c.JSON(http.StatusOK, out)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes a stored file
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("file", id)
	case err != nil:
		return NewBadRequestError("cannot rename file", err)
	}

	return c.JSON(http.StatusOK, info)
}

// Request types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}
