package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/models"
)

// Database handles all SQLite operations
type Database struct {
	db *sql.DB
}

// NewDatabase opens and migrates the SQLite database at dbPath. Transactions
// begin IMMEDIATE so the identifier check and insert hold the write lock.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		isbn TEXT NOT NULL UNIQUE,
		genre TEXT NOT NULL DEFAULT 'other',
		author TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT 'other',
		synopsis TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		photo BLOB,
		photo_content_type TEXT,
		cover_url TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME,
		CHECK ((photo IS NULL) = (photo_content_type IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// FindByIdentifier returns the book with the given ISBN, or nil when none exists
func (d *Database) FindByIdentifier(ctx context.Context, isbn string) (*models.Book, error) {
	book, err := scanBook(d.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not look up book")
	}
	return book, nil
}

// FindByID retrieves a book by ID
func (d *Database) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	book, err := scanBook(d.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.NotFound, "book %d not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailed, err, "could not load book")
	}
	return book, nil
}

// FindByOwner returns every book owned by ownerID, oldest first
func (d *Database) FindByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE owner_id = ? ORDER BY id`, ownerID)
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

// Insert stores a new book and assigns its ID. The identifier check and the
// insert run in one transaction.
func (d *Database) Insert(ctx context.Context, book *models.Book) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not save book")
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkIdentifierFree(ctx, tx, book.ISBN, 0); err != nil {
		return err
	}

	photo, contentType := photoArgs(book)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, isbn, genre, author, publisher, synopsis, summary,
			photo, photo_content_type, cover_url, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.Title, book.ISBN, book.Genre.String(), book.Author, book.Publisher.String(),
		book.Synopsis, book.Summary, photo, contentType, book.CoverURL, book.OwnerID,
		book.CreatedAt, updatedAtArg(book),
	)
	if err != nil {
		return mapSQLiteWriteError(err, book.ISBN)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not save book")
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteWriteError(err, book.ISBN)
	}

	book.ID = id
	return nil
}

// Update rewrites the editable columns of book. The owner column is never
// touched, and the photo columns only when replacePhoto is set.
func (d *Database) Update(ctx context.Context, book *models.Book, replacePhoto bool) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not update book")
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkIdentifierFree(ctx, tx, book.ISBN, book.ID); err != nil {
		return err
	}

	set := []string{"title = ?", "isbn = ?", "genre = ?", "author = ?", "publisher = ?",
		"synopsis = ?", "summary = ?", "cover_url = ?", "updated_at = ?"}
	args := []any{book.Title, book.ISBN, book.Genre.String(), book.Author, book.Publisher.String(),
		book.Synopsis, book.Summary, book.CoverURL, updatedAtArg(book)}
	if replacePhoto {
		photo, contentType := photoArgs(book)
		set = append(set, "photo = ?", "photo_content_type = ?")
		args = append(args, photo, contentType)
	}
	args = append(args, book.ID)

	res, err := tx.ExecContext(ctx,
		"UPDATE books SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return mapSQLiteWriteError(err, book.ISBN)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Newf(apperr.NotFound, "book %d not found", book.ID)
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteWriteError(err, book.ISBN)
	}
	return nil
}

// Delete removes a book. It reports false when no row matched.
func (d *Database) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.PersistenceFailed, err, "could not delete book")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.PersistenceFailed, err, "could not delete book")
	}
	return n > 0, nil
}

// CountActive returns the number of stored books
func (d *Database) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.PersistenceFailed, err, "could not count books")
	}
	return count, nil
}

// CountByGenre returns the number of stored books per genre
func (d *Database) CountByGenre(ctx context.Context) (map[models.Genre]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT genre, COUNT(*) FROM books GROUP BY genre`)
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

func checkIdentifierFree(ctx context.Context, tx *sql.Tx, isbn string, exceptID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM books WHERE isbn = ? AND id != ?`, isbn, exceptID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not check identifier")
	}
	return duplicateError(isbn)
}

func mapSQLiteWriteError(err error, isbn string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return duplicateError(isbn)
	}
	return apperr.Wrap(apperr.PersistenceFailed, err, "could not save book")
}

func userTakenError() error {
	return apperr.New(apperr.DuplicateIdentifier, "Username or email already taken")
}

func duplicateError(isbn string) error {
	return apperr.Newf(apperr.DuplicateIdentifier, "a book with ISBN %s already exists", isbn)
}

// CreateUser inserts a new user
func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return userTakenError()
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailed, err, "could not save user")
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (d *Database) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return d.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username)
}

func (d *Database) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	err := d.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserExists checks if a username or email is already taken
func (d *Database) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`,
		username, email,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ping checks that the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
