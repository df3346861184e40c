package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/models"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	tmpFile, err := os.CreateTemp("", "librarian-test-*.db")
	require.NoError(t, err)
	tmpFile.Close()

	db, err := NewDatabase(tmpFile.Name())
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(tmpFile.Name())
		os.Remove(tmpFile.Name() + "-wal")
		os.Remove(tmpFile.Name() + "-shm")
	}

	return db, cleanup
}

func newBook(isbn, owner string) *models.Book {
	return &models.Book{
		Title:     "Book " + isbn,
		ISBN:      isbn,
		Genre:     models.GenreHistory,
		Author:    "Author",
		Publisher: models.PublisherWiley,
		Synopsis:  "A synopsis.",
		Summary:   "Published 2001. 300 pages.",
		CoverURL:  "https://covers.example/" + isbn + ".jpg",
		OwnerID:   owner,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestInsertAndFindBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("9780134685991", "owner-1")
	book.SetPhoto([]byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg")
	require.NoError(t, db.Insert(ctx, book))
	assert.NotZero(t, book.ID)

	got, err := db.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, book.ISBN, got.ISBN)
	assert.Equal(t, models.GenreHistory, got.Genre)
	assert.Equal(t, models.PublisherWiley, got.Publisher)
	assert.Equal(t, book.Summary, got.Summary)
	assert.Equal(t, book.CoverURL, got.CoverURL)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, book.Photo, got.Photo)
	assert.Equal(t, "image/jpeg", got.PhotoContentType)
	assert.True(t, book.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.UpdatedAt)

	byISBN, err := db.FindByIdentifier(ctx, "9780134685991")
	require.NoError(t, err)
	require.NotNil(t, byISBN)
	assert.Equal(t, book.ID, byISBN.ID)

	missing, err := db.FindByIdentifier(ctx, "0000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindByIDNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.FindByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestInsertWithoutPhoto(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("111", "owner-1")
	require.NoError(t, db.Insert(ctx, book))

	got, err := db.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPhoto())
	assert.Empty(t, got.PhotoContentType)
}

func TestInsertDuplicateIdentifier(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.Insert(ctx, newBook("222", "owner-1")))
	err := db.Insert(ctx, newBook("222", "owner-2"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.DuplicateIdentifier))

	count, err := db.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentInsertSameIdentifier(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = db.Insert(ctx, newBook("9780441013593", "owner"))
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.Is(err, apperr.DuplicateIdentifier):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, duplicates)

	count, err := db.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("333", "owner-1")
	book.SetPhoto([]byte{1, 2, 3}, "image/png")
	require.NoError(t, db.Insert(ctx, book))

	now := time.Now().UTC().Truncate(time.Second)
	book.Title = "Renamed"
	book.Genre = models.GenrePoetry
	book.OwnerID = "someone-else"
	book.ClearPhoto()
	book.UpdatedAt = &now
	require.NoError(t, db.Update(ctx, book, false))

	got, err := db.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, models.GenrePoetry, got.Genre)
	assert.Equal(t, "owner-1", got.OwnerID, "owner must not change")
	assert.Equal(t, []byte{1, 2, 3}, got.Photo, "photo kept when not replaced")
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, now.Equal(*got.UpdatedAt))

	got.SetPhoto([]byte{9}, "image/jpeg")
	require.NoError(t, db.Update(ctx, got, true))
	again, err := db.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, again.Photo)
	assert.Equal(t, "image/jpeg", again.PhotoContentType)
}

func TestUpdateIdentifierConflict(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := newBook("444", "owner-1")
	second := newBook("555", "owner-1")
	require.NoError(t, db.Insert(ctx, first))
	require.NoError(t, db.Insert(ctx, second))

	second.ISBN = "444"
	err := db.Update(ctx, second, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.DuplicateIdentifier))

	// Keeping its own identifier is not a conflict.
	first.Title = "Still mine"
	require.NoError(t, db.Update(ctx, first, false))
}

func TestUpdateMissingBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	book := newBook("666", "owner-1")
	book.ID = 999
	err := db.Update(context.Background(), book, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDeleteBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("777", "owner-1")
	require.NoError(t, db.Insert(ctx, book))

	deleted, err := db.Delete(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = db.Delete(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The identifier is free again after a hard delete.
	require.NoError(t, db.Insert(ctx, newBook("777", "owner-2")))
}

func TestFindByOwnerAndCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := newBook("1", "alice")
	b := newBook("2", "alice")
	b.Genre = models.GenreTravel
	c := newBook("3", "bob")
	for _, book := range []*models.Book{a, b, c} {
		require.NoError(t, db.Insert(ctx, book))
	}

	books, err := db.FindByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "1", books[0].ISBN)
	assert.Equal(t, "2", books[1].ISBN)

	none, err := db.FindByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	count, err := db.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byGenre, err := db.CountByGenre(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, byGenre[models.GenreHistory])
	assert.Equal(t, 1, byGenre[models.GenreTravel])
}

func TestCreateAndGetUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	user := &models.User{
		ID:           "test-user-id",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashedpassword",
		CreatedAt:    time.Now(),
	}

	err := db.CreateUser(ctx, user)
	require.NoError(t, err)

	retrieved, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, retrieved.Username)
	assert.Equal(t, user.Email, retrieved.Email)

	retrieved, err = db.GetUserByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)

	_, err = db.GetUserByUsername(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	exists, err := db.UserExists(ctx, "testuser", "other@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.UserExists(ctx, "newuser", "new@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, db.CreateUser(ctx, user), "duplicate user id")
}

func TestCreateUserTakenNameIsDuplicate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := &models.User{ID: "u1", Username: "reader", Email: "reader@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	require.NoError(t, db.CreateUser(ctx, first))

	sameName := &models.User{ID: "u2", Username: "reader", Email: "other@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	err := db.CreateUser(ctx, sameName)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.DuplicateIdentifier))

	sameEmail := &models.User{ID: "u3", Username: "writer", Email: "reader@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	err = db.CreateUser(ctx, sameEmail)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.DuplicateIdentifier))
}

func TestPhotoETag(t *testing.T) {
	tag := PhotoETag([]byte("abc"))
	assert.Len(t, tag, 34)
	assert.Equal(t, tag, PhotoETag([]byte("abc")))
	assert.NotEqual(t, tag, PhotoETag([]byte("abd")))
}
