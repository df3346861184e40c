// Package api exposes the catalog and the ingestion flows over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/auth"
	"github.com/justyntemme/librarian/internal/catalog"
	"github.com/justyntemme/librarian/internal/classify"
	"github.com/justyntemme/librarian/internal/ingest"
	"github.com/justyntemme/librarian/internal/media"
	"github.com/justyntemme/librarian/internal/models"
	"github.com/justyntemme/librarian/internal/storage"
)

// BookService is the ingestion and catalog surface the handlers drive.
type BookService interface {
	CreateFromIdentifier(ctx context.Context, ownerID string, req ingest.IdentifierRequest) (*models.Book, error)
	CreateDirect(ctx context.Context, ownerID string, f catalog.Fields, upload *ingest.Upload) (*models.Book, error)
	Update(ctx context.Context, bookID int64, ownerID string, f catalog.Fields, upload *ingest.Upload) (*models.Book, error)
	Delete(ctx context.Context, bookID int64, ownerID string) (bool, error)
	Get(ctx context.Context, bookID int64) (*models.Book, error)
	List(ctx context.Context, ownerID string) ([]models.Book, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
	Lookup(ctx context.Context, identifier string) (*ingest.Preview, error)
	Photo(ctx context.Context, bookID int64, width, height int) (*media.ImageAsset, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for book operations
type Handler struct {
	books  BookService
	health Pinger
	logger *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(books BookService, health Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{books: books, health: health, logger: logger}
}

// HealthCheck returns server health status
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(c.Request.Context()); err != nil {
			h.logger.WarnContext(c.Request.Context(), "Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "time": time.Now()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
}

// ListBooks returns the caller's books
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.books.List(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetBook returns a single book
func (h *Handler) GetBook(c *gin.Context) {
	id, err := bookID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	book, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook stores a book from form fields and an optional photo
func (h *Handler) CreateBook(c *gin.Context) {
	upload, err := readUpload(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	book, err := h.books.CreateDirect(c.Request.Context(), auth.GetUserID(c), formFields(c), upload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

// UpdateBook edits a book owned by the caller
func (h *Handler) UpdateBook(c *gin.Context) {
	id, err := bookID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	upload, err := readUpload(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	book, err := h.books.Update(c.Request.Context(), id, auth.GetUserID(c), formFields(c), upload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book owned by the caller
func (h *Handler) DeleteBook(c *gin.Context) {
	id, err := bookID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	deleted, err := h.books.Delete(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !deleted {
		respondError(c, h.logger, apperr.Newf(apperr.NotFound, "book %d not found", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

// CreateFromIdentifier builds a book from upstream metadata for an ISBN
func (h *Handler) CreateFromIdentifier(c *gin.Context) {
	var req ingest.IdentifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.InvalidInput, err, "identifier is required"))
		return
	}

	book, err := h.books.CreateFromIdentifier(c.Request.Context(), auth.GetUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

// GetPhoto serves the stored image, optionally shrunk to width/height
func (h *Handler) GetPhoto(c *gin.Context) {
	id, err := bookID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	width, err := dimension(c, "width")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	height, err := dimension(c, "height")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	asset, err := h.books.Photo(c.Request.Context(), id, width, height)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	etag := storage.PhotoETag(asset.Data)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, max-age=3600")
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, asset.ContentType, asset.Data)
}

// Lookup previews upstream metadata for an ISBN without storing it
func (h *Handler) Lookup(c *gin.Context) {
	preview, err := h.books.Lookup(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Stats returns catalog-wide counts
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.books.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func bookID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.InvalidInput, "invalid book id %q", c.Param("id"))
	}
	return id, nil
}

// dimension parses an optional non-negative integer query parameter.
func dimension(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.InvalidInput, "%s must be a non-negative integer", name)
	}
	return n, nil
}

// formFields reads the editable book attributes. Genre and publisher accept
// either a canonical name or free text; anything unrecognized becomes Other.
func formFields(c *gin.Context) catalog.Fields {
	genre, _ := models.ParseGenre(c.PostForm("genre"))

	rawPublisher := c.PostForm("publisher")
	publisher, ok := models.ParsePublisher(rawPublisher)
	if !ok {
		publisher = classify.MapPublisher(rawPublisher)
	}

	return catalog.Fields{
		Title:     strings.TrimSpace(c.PostForm("title")),
		ISBN:      c.PostForm("isbn"),
		Genre:     genre,
		Author:    strings.TrimSpace(c.PostForm("author")),
		Publisher: publisher,
		Synopsis:  c.PostForm("synopsis"),
		Summary:   c.PostForm("summary"),
		CoverURL:  strings.TrimSpace(c.PostForm("cover_url")),
	}
}

// readUpload returns the optional "photo" part of a multipart request.
func readUpload(c *gin.Context) (*ingest.Upload, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Newf(apperr.InvalidInput, "upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperr.Wrap(apperr.InvalidInput, err, "could not read photo upload")
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "could not read photo upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "could not read photo upload")
	}

	return &ingest.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
