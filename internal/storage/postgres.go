package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/models"
)

const pgUniqueViolation = "23505"

// Postgres handles all PostgreSQL operations
type Postgres struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres connects to dsn and migrates the schema. A zero timeout
// leaves queries bounded only by the caller's context.
func NewPostgres(ctx context.Context, dsn string, timeout time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	p := &Postgres{db: pool, timeout: timeout}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Postgres) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		isbn TEXT NOT NULL UNIQUE,
		genre TEXT NOT NULL DEFAULT 'other',
		author TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT 'other',
		synopsis TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		photo BYTEA,
		photo_content_type TEXT,
		cover_url TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ,
		CHECK ((photo IS NULL) = (photo_content_type IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id);
	`
	_, err := p.db.Exec(ctx, schema)
	return err
}

func (p *Postgres) FindByIdentifier(ctx context.Context, isbn string) (*models.Book, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	book, err := scanBook(p.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = $1`, isbn))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not look up book")
	}
	return book, nil
}

func (p *Postgres) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	book, err := scanBook(p.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "book %d not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not load book")
	}
	return book, nil
}

func (p *Postgres) FindByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not list books")
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not list books")
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not list books")
	}
	return books, nil
}

// Insert relies on the unique index to reject a concurrent insert of the same
// identifier that passed the pre-check.
func (p *Postgres) Insert(ctx context.Context, book *models.Book) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not save book")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := pgCheckIdentifierFree(ctx, tx, book.ISBN, 0); err != nil {
		return err
	}

	photo, contentType := photoArgs(book)
	err = tx.QueryRow(ctx, `
		INSERT INTO books (title, isbn, genre, author, publisher, synopsis, summary,
			photo, photo_content_type, cover_url, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		book.Title, book.ISBN, book.Genre.String(), book.Author, book.Publisher.String(),
		book.Synopsis, book.Summary, photo, contentType, book.CoverURL, book.OwnerID,
		book.CreatedAt, updatedAtArg(book),
	).Scan(&book.ID)
	if err != nil {
		return mapPgWriteError(err, book.ISBN)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgWriteError(err, book.ISBN)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, book *models.Book, replacePhoto bool) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not update book")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := pgCheckIdentifierFree(ctx, tx, book.ISBN, book.ID); err != nil {
		return err
	}

	cols := []string{"title", "isbn", "genre", "author", "publisher", "synopsis", "summary", "cover_url", "updated_at"}
	args := []any{book.Title, book.ISBN, book.Genre.String(), book.Author, book.Publisher.String(),
		book.Synopsis, book.Summary, book.CoverURL, updatedAtArg(book)}
	if replacePhoto {
		photo, contentType := photoArgs(book)
		cols = append(cols, "photo", "photo_content_type")
		args = append(args, photo, contentType)
	}

	set := make([]string, len(cols))
	for i, col := range cols {
		set[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, book.ID)
	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return mapPgWriteError(err, book.ISBN)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.NotFound, "book %d not found", book.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgWriteError(err, book.ISBN)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tag, err := p.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.PersistenceFailed, err, "could not delete book")
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var count int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.PersistenceFailed, err, "could not count books")
	}
	return count, nil
}

func (p *Postgres) CountByGenre(ctx context.Context) (map[models.Genre]int, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, `SELECT genre, COUNT(*) FROM books GROUP BY genre`)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not count books")
	}
	defer rows.Close()

	counts, err := scanGenreCounts(rows)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not count books")
	}
	return counts, nil
}

func pgCheckIdentifierFree(ctx context.Context, tx pgx.Tx, isbn string, exceptID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM books WHERE isbn = $1 AND id <> $2`, isbn, exceptID).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not check identifier")
	}
	return duplicateError(isbn)
}

func mapPgWriteError(err error, isbn string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicateError(isbn)
	}
	return apperr.Wrap(apperr.PersistenceFailed, err, "could not save book")
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, err := p.db.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return userTakenError()
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not save user")
	}
	return nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (p *Postgres) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	user := &models.User{}
	err := p.db.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (p *Postgres) UserExists(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	return exists, err
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
