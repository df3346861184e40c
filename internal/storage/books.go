// Package storage persists catalog records and user accounts in SQLite or
// PostgreSQL.
package storage

import (
	"database/sql"

	"github.com/justyntemme/librarian/internal/models"
)

const bookColumns = `id, title, isbn, genre, author, publisher, synopsis, summary,
	photo, photo_content_type, cover_url, owner_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	var (
		book        models.Book
		genre       string
		publisher   string
		contentType sql.NullString
		updatedAt   sql.NullTime
		photo       []byte
	)
	err := row.Scan(&book.ID, &book.Title, &book.ISBN, &genre, &book.Author, &publisher,
		&book.Synopsis, &book.Summary, &photo, &contentType, &book.CoverURL, &book.OwnerID,
		&book.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	book.Genre, _ = models.ParseGenre(genre)
	book.Publisher, _ = models.ParsePublisher(publisher)
	book.SetPhoto(photo, contentType.String)
	if updatedAt.Valid {
		t := updatedAt.Time
		book.UpdatedAt = &t
	}
	return &book, nil
}

// photoArgs returns the nullable photo column values for b.
func photoArgs(b *models.Book) (any, any) {
	if !b.HasPhoto() || b.PhotoContentType == "" {
		return nil, nil
	}
	return b.Photo, b.PhotoContentType
}

func updatedAtArg(b *models.Book) any {
	if b.UpdatedAt == nil {
		return nil
	}
	return *b.UpdatedAt
}

func scanGenreCounts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) (map[models.Genre]int, error) {
	counts := make(map[models.Genre]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		g, _ := models.ParseGenre(name)
		counts[g] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
