package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/isbn"
	"github.com/justyntemme/librarian/internal/media"
	"github.com/justyntemme/librarian/internal/models"
)

// Writer is the only path through which books are created or changed.
type Writer struct {
	repo Repository
	now  func() time.Time
}

// NewWriter creates a Writer backed by repo
func NewWriter(repo Repository) *Writer {
	return &Writer{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates f, checks the identifier is free and inserts a new book
// owned by ownerID. A nil photo stores the book without an image.
func (w *Writer) Create(ctx context.Context, ownerID string, f Fields, photo *media.ImageAsset) (*models.Book, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.AccessDenied, "an owner is required to create a book")
	}

	id, err := validate(&f)
	if err != nil {
		return nil, err
	}

	existing, err := w.repo.FindByIdentifier(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.DuplicateIdentifier, "a book with ISBN %s already exists", id)
	}

	book := &models.Book{OwnerID: ownerID, CreatedAt: w.now()}
	apply(book, f)
	if photo != nil {
		book.SetPhoto(photo.Data, photo.ContentType)
	}

	if err := w.repo.Insert(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Update edits a book owned by ownerID. The stored photo is replaced only
// when photo is non-nil, an empty CoverURL keeps the current one, and the
// owner never changes.
func (w *Writer) Update(ctx context.Context, bookID int64, ownerID string, f Fields, photo *media.ImageAsset) (*models.Book, error) {
	book, err := w.repo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != ownerID {
		return nil, apperr.Newf(apperr.AccessDenied, "book %d belongs to another user", bookID)
	}

	id, err := validate(&f)
	if err != nil {
		return nil, err
	}

	existing, err := w.repo.FindByIdentifier(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != bookID {
		return nil, apperr.Newf(apperr.DuplicateIdentifier, "a book with ISBN %s already exists", id)
	}

	if f.CoverURL == "" {
		f.CoverURL = book.CoverURL
	}
	apply(book, f)
	now := w.now()
	book.UpdatedAt = &now
	if photo != nil {
		book.SetPhoto(photo.Data, photo.ContentType)
	}

	if err := w.repo.Update(ctx, book, photo != nil); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book owned by ownerID. A missing book yields (false, nil).
func (w *Writer) Delete(ctx context.Context, bookID int64, ownerID string) (bool, error) {
	book, err := w.repo.FindByID(ctx, bookID)
	if apperr.Is(err, apperr.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if book.OwnerID != ownerID {
		return false, apperr.Newf(apperr.AccessDenied, "book %d belongs to another user", bookID)
	}
	return w.repo.Delete(ctx, bookID)
}

// Get returns a single book by ID
func (w *Writer) Get(ctx context.Context, bookID int64) (*models.Book, error) {
	return w.repo.FindByID(ctx, bookID)
}

// ListByOwner returns the books owned by ownerID
func (w *Writer) ListByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	return w.repo.FindByOwner(ctx, ownerID)
}

// Stats returns totals for the whole catalog
func (w *Writer) Stats(ctx context.Context) (*Stats, error) {
	total, err := w.repo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	genres, err := w.repo.CountByGenre(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Books: total, Genres: genres}, nil
}

// validate trims f in place and returns its normalized identifier.
func validate(f *Fields) (string, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	if f.Title == "" {
		return "", apperr.New(apperr.InvalidInput, "title is required")
	}

	id, err := isbn.Normalize(f.ISBN)
	if err != nil {
		return "", err
	}
	f.ISBN = id
	return id, nil
}

func apply(b *models.Book, f Fields) {
	b.Title = f.Title
	b.ISBN = f.ISBN
	b.Genre = f.Genre
	b.Author = f.Author
	b.Publisher = f.Publisher
	b.Synopsis = f.Synopsis
	b.Summary = f.Summary
	b.CoverURL = f.CoverURL
}
