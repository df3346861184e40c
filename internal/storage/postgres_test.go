package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/librarian/internal/apperr"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("LIBRARIAN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIBRARIAN_TEST_POSTGRES_DSN not set")
	}

	db, err := NewPostgres(context.Background(), dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresBookLifecycle(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	isbn := fmt.Sprintf("979%010d", time.Now().UnixNano()%1e10)

	book := newBook(isbn, "pg-owner")
	book.SetPhoto([]byte{1, 2}, "image/png")
	require.NoError(t, db.Insert(ctx, book))
	t.Cleanup(func() { _, _ = db.Delete(ctx, book.ID) })

	err := db.Insert(ctx, newBook(isbn, "other"))
	assert.True(t, apperr.Is(err, apperr.DuplicateIdentifier))

	got, err := db.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, isbn, got.ISBN)
	assert.Equal(t, []byte{1, 2}, got.Photo)

	got.Title = "Updated"
	got.OwnerID = "intruder"
	require.NoError(t, db.Update(ctx, got, false))

	again, err := db.FindByIdentifier(ctx, isbn)
	require.NoError(t, err)
	assert.Equal(t, "Updated", again.Title)
	assert.Equal(t, "pg-owner", again.OwnerID)

	deleted, err := db.Delete(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = db.FindByID(ctx, book.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
