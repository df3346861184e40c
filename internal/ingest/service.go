// Package ingest turns identifiers and uploads into catalog records.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/catalog"
	"github.com/justyntemme/librarian/internal/classify"
	"github.com/justyntemme/librarian/internal/media"
	"github.com/justyntemme/librarian/internal/metadata"
	"github.com/justyntemme/librarian/internal/models"
)

const unknownAuthor = "Unknown"

type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*metadata.ResolvedMetadata, error)
}

type CoverSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Normalizer interface {
	Normalize(data []byte, sourceName string) (*media.ImageAsset, error)
	Resize(data []byte, sourceName string, maxWidth, maxHeight int) (*media.ImageAsset, error)
}

type Writer interface {
	Create(ctx context.Context, ownerID string, f catalog.Fields, photo *media.ImageAsset) (*models.Book, error)
	Update(ctx context.Context, bookID int64, ownerID string, f catalog.Fields, photo *media.ImageAsset) (*models.Book, error)
	Delete(ctx context.Context, bookID int64, ownerID string) (bool, error)
	Get(ctx context.Context, bookID int64) (*models.Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Book, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
}

// IdentifierRequest asks for a book to be created from upstream metadata.
type IdentifierRequest struct {
	Identifier    string `json:"identifier" binding:"required"`
	DownloadCover bool   `json:"downloadCover"`
}

// Upload is an image supplied by the caller.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Preview is resolved metadata with its inferred classification.
type Preview struct {
	*metadata.ResolvedMetadata
	Genre          models.Genre     `json:"genre"`
	PublisherGroup models.Publisher `json:"publisher_group"`
}

// Service runs the ingestion flows
type Service struct {
	resolver   Resolver
	covers     CoverSource
	normalizer Normalizer
	writer     Writer
	logger     *slog.Logger
}

// NewService creates the ingestion service. A nil logger uses slog.Default.
func NewService(resolver Resolver, covers CoverSource, normalizer Normalizer, writer Writer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver:   resolver,
		covers:     covers,
		normalizer: normalizer,
		writer:     writer,
		logger:     logger,
	}
}

// CreateFromIdentifier resolves req.Identifier upstream and stores the
// result for ownerID. The cover download is best-effort: any failure there
// leaves the book without a photo.
func (s *Service) CreateFromIdentifier(ctx context.Context, ownerID string, req IdentifierRequest) (_ *models.Book, err error) {
	run := s.track(ctx, "identifier")
	defer func() { run.finish(err) }()

	run.enter(StageResolve)
	meta, err := s.resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	run.enter(StageInfer)
	fields := fieldsFrom(meta)

	var photo *media.ImageAsset
	if req.DownloadCover && meta.CoverURL != "" {
		run.enter(StageAcquireImage)
		photo = s.fetchCover(ctx, meta.CoverURL)
	}

	run.enter(StageValidate)
	run.enter(StagePersist)
	return s.writer.Create(ctx, ownerID, fields, photo)
}

// CreateDirect stores caller-supplied fields. A supplied upload that fails
// validation or decoding aborts the create.
func (s *Service) CreateDirect(ctx context.Context, ownerID string, f catalog.Fields, upload *Upload) (_ *models.Book, err error) {
	run := s.track(ctx, "direct")
	defer func() { run.finish(err) }()

	var photo *media.ImageAsset
	if upload != nil {
		run.enter(StageAcquireImage)
		run.enter(StageValidate)
		if photo, err = s.normalizeUpload(upload); err != nil {
			return nil, err
		}
	}

	run.enter(StagePersist)
	return s.writer.Create(ctx, ownerID, f, photo)
}

// Update edits a book with the same photo policy as CreateDirect.
func (s *Service) Update(ctx context.Context, bookID int64, ownerID string, f catalog.Fields, upload *Upload) (_ *models.Book, err error) {
	run := s.track(ctx, "update")
	defer func() { run.finish(err) }()

	var photo *media.ImageAsset
	if upload != nil {
		run.enter(StageValidate)
		// Refuse foreign books before spending work on the image.
		var existing *models.Book
		if existing, err = s.writer.Get(ctx, bookID); err != nil {
			return nil, err
		}
		if existing.OwnerID != ownerID {
			return nil, apperr.Newf(apperr.AccessDenied, "book %d belongs to another user", bookID)
		}
		if photo, err = s.normalizeUpload(upload); err != nil {
			return nil, err
		}
	}

	run.enter(StagePersist)
	return s.writer.Update(ctx, bookID, ownerID, f, photo)
}

func (s *Service) Delete(ctx context.Context, bookID int64, ownerID string) (bool, error) {
	return s.writer.Delete(ctx, bookID, ownerID)
}

func (s *Service) Get(ctx context.Context, bookID int64) (*models.Book, error) {
	return s.writer.Get(ctx, bookID)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]models.Book, error) {
	return s.writer.ListByOwner(ctx, ownerID)
}

func (s *Service) Stats(ctx context.Context) (*catalog.Stats, error) {
	return s.writer.Stats(ctx)
}

// Lookup resolves and classifies an identifier without storing anything.
func (s *Service) Lookup(ctx context.Context, identifier string) (*Preview, error) {
	meta, err := s.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &Preview{
		ResolvedMetadata: meta,
		Genre:            classify.InferGenre(meta.Subjects),
		PublisherGroup:   classify.MapPublisher(meta.Publisher),
	}, nil
}

// Photo returns the stored image of a book. When width or height is
// positive the image is shrunk to fit; if that fails the original bytes are
// returned unchanged.
func (s *Service) Photo(ctx context.Context, bookID int64, width, height int) (*media.ImageAsset, error) {
	book, err := s.writer.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.HasPhoto() {
		return nil, apperr.Newf(apperr.NotFound, "book %d has no photo", bookID)
	}

	contentType := book.PhotoContentType
	if contentType == "" {
		contentType = media.DetectContentType(book.Photo)
	}
	original := &media.ImageAsset{Data: book.Photo, ContentType: contentType}

	if width <= 0 && height <= 0 {
		return original, nil
	}

	name := media.SourceNameFor(fmt.Sprintf("book-%d", bookID), contentType)
	resized, err := s.normalizer.Resize(book.Photo, name, max(width, 0), max(height, 0))
	if err != nil {
		s.logger.WarnContext(ctx, "Photo resize failed, serving original", "book_id", bookID, "error", err)
		return original, nil
	}
	return resized, nil
}

func (s *Service) resolve(ctx context.Context, identifier string) (*metadata.ResolvedMetadata, error) {
	meta, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, apperr.Newf(apperr.NotFoundUpstream, "no metadata found for %q", identifier)
	}
	return meta, nil
}

// fetchCover downloads and normalizes a cover. Failures are logged and
// reported as a nil asset.
func (s *Service) fetchCover(ctx context.Context, url string) *media.ImageAsset {
	data, err := s.covers.Fetch(ctx, url)
	if err != nil {
		s.logger.WarnContext(ctx, "Cover download failed", "url", url, "error", err)
		return nil
	}
	if len(data) == 0 {
		s.logger.WarnContext(ctx, "Cover not available", "url", url)
		return nil
	}

	asset, err := s.normalizer.Normalize(data, coverSourceName(url, data))
	if err != nil {
		s.logger.WarnContext(ctx, "Cover could not be normalized", "url", url, "error", err)
		return nil
	}
	return asset
}

func (s *Service) normalizeUpload(u *Upload) (*media.ImageAsset, error) {
	if err := media.ValidateUpload(u.ContentType, u.Filename); err != nil {
		return nil, err
	}
	return s.normalizer.Normalize(u.Data, u.Filename)
}

// coverSourceName keeps the URL's file name when it has an image extension
// and otherwise names the cover after its sniffed content type.
func coverSourceName(url string, data []byte) string {
	p := url
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(p)
	switch strings.ToLower(path.Ext(base)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return base
	}
	return media.SourceNameFor("cover", media.DetectContentType(data))
}

func fieldsFrom(meta *metadata.ResolvedMetadata) catalog.Fields {
	f := catalog.Fields{
		Title:     strings.TrimSpace(meta.Title),
		ISBN:      meta.ISBN,
		Genre:     classify.InferGenre(meta.Subjects),
		Author:    strings.TrimSpace(meta.Author),
		Publisher: classify.MapPublisher(meta.Publisher),
		Synopsis:  meta.Synopsis,
		Summary:   factLine(meta),
		CoverURL:  meta.CoverURL,
	}
	if f.Title == "" {
		f.Title = meta.ISBN
	}
	if f.Author == "" {
		f.Author = unknownAuthor
	}
	return f
}

// factLine builds the externally sourced summary, e.g.
// "Published 2018. 412 pages."
func factLine(meta *metadata.ResolvedMetadata) string {
	var parts []string
	if d := strings.TrimSpace(meta.PublishDate); d != "" {
		parts = append(parts, fmt.Sprintf("Published %s.", d))
	}
	if meta.PageCount != nil && *meta.PageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pages.", *meta.PageCount))
	}
	return strings.Join(parts, " ")
}
