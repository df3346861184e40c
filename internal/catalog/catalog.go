// Package catalog enforces identifier uniqueness and ownership when books
// are created, edited or removed.
package catalog

import (
	"context"

	"github.com/justyntemme/librarian/internal/models"
)

// Repository is the persistence boundary for books. FindByIdentifier returns
// (nil, nil) when no book carries the identifier; FindByID returns a
// NotFound error instead.
type Repository interface {
	FindByIdentifier(ctx context.Context, isbn string) (*models.Book, error)
	FindByID(ctx context.Context, id int64) (*models.Book, error)
	FindByOwner(ctx context.Context, ownerID string) ([]models.Book, error)
	Insert(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book, replacePhoto bool) error
	Delete(ctx context.Context, id int64) (bool, error)
	CountActive(ctx context.Context) (int, error)
	CountByGenre(ctx context.Context) (map[models.Genre]int, error)
}

// Fields are the caller-editable attributes of a book.
type Fields struct {
	Title     string
	ISBN      string
	Genre     models.Genre
	Author    string
	Publisher models.Publisher
	Synopsis  string
	Summary   string
	CoverURL  string
}

// Stats summarizes the catalog.
type Stats struct {
	Books  int                  `json:"books"`
	Genres map[models.Genre]int `json:"genres"`
}
