// Package attachment provides file-attachment storage for script documents.
// It defines the Store interface, an in-memory implementation used in
// local-only mode and tests, and Echo HTTP handlers for multipart upload,
// download, metadata retrieval, and deletion. Upload transport beyond
// multipart and durable blob backends are external collaborators.
package attachment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound        = errors.New("attachment not found")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrMissingFileName = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed attachment size in bytes (25 MB).
const MaxFileSize = 25 * 1024 * 1024

// Metadata describes a stored attachment.
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	ScriptID    string    `json:"script_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the contract for attachment storage backends.
type Store interface {
	Upload(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *Metadata, error)
	GetMetadata(ctx context.Context, id string) (*Metadata, error)
	Delete(ctx context.Context, id string) error
	ListByScript(ctx context.Context, scriptID string) ([]*Metadata, error)
}

type storedFile struct {
	metadata Metadata
	content  []byte
}

// MemoryStore is a thread-safe, in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]*storedFile
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]*storedFile)}
}

// Upload validates inputs, reads the content, computes a SHA-256 hash, and
// stores the attachment in memory.
func (s *MemoryStore) Upload(_ context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	if meta.Name == "" {
		return nil, ErrMissingFileName
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.files[meta.ID] = &storedFile{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Download returns an io.ReadCloser over the attachment content and its
// metadata.
func (s *MemoryStore) Download(_ context.Context, id string) (io.ReadCloser, *Metadata, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := f.metadata
	return io.NopCloser(bytes.NewReader(f.content)), &meta, nil
}

// GetMetadata returns attachment metadata without content.
func (s *MemoryStore) GetMetadata(_ context.Context, id string) (*Metadata, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	meta := f.metadata
	return &meta, nil
}

// Delete removes an attachment by ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}

// ListByScript returns all attachments linked to the given script.
func (s *MemoryStore) ListByScript(_ context.Context, scriptID string) ([]*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Metadata
	for _, f := range s.files {
		if f.metadata.ScriptID != scriptID {
			continue
		}
		m := f.metadata
		matched = append(matched, &m)
	}
	return matched, nil
}

// Handler provides Echo HTTP handlers for attachment operations.
type Handler struct {
	store Store
}

// NewHandler creates a new attachment handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts attachment routes on the supplied Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/attachments", h.handleUpload)
	g.GET("/attachments/:id", h.handleDownload)
	g.GET("/attachments/:id/metadata", h.handleGetMetadata)
	g.DELETE("/attachments/:id", h.handleDelete)
	g.GET("/scripts/:scriptId/attachments", h.handleListByScript)
}

func (h *Handler) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	meta := Metadata{
		Name:        file.Filename,
		ContentType: contentType,
		ScriptID:    c.FormValue("script_id"),
		CreatedBy:   c.FormValue("created_by"),
	}

	result, err := h.store.Upload(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingFileName):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) handleDownload(c echo.Context) error {
	rc, meta, err := h.store.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.Name))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) handleGetMetadata(c echo.Context) error {
	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) handleDelete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handleListByScript(c echo.Context) error {
	items, err := h.store.ListByScript(c.Request().Context(), c.Param("scriptId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*Metadata{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items, "total": len(items)})
}
