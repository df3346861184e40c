package models

import (
	"encoding/json"
	"time"
)

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Book represents a catalog record
type Book struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	ISBN             string     `json:"isbn"`
	Genre            Genre      `json:"genre"`
	Author           string     `json:"author"`
	Publisher        Publisher  `json:"publisher"`
	Synopsis         string     `json:"synopsis"`
	Summary          string     `json:"summary,omitempty"`
	Photo            []byte     `json:"-"`
	PhotoContentType string     `json:"photo_content_type,omitempty"`
	CoverURL         string     `json:"cover_url,omitempty"`
	OwnerID          string     `json:"owner_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// HasPhoto reports whether the book carries stored image bytes.
func (b *Book) HasPhoto() bool {
	return len(b.Photo) > 0
}

// SetPhoto stores image bytes together with their content type.
func (b *Book) SetPhoto(data []byte, contentType string) {
	if len(data) == 0 || contentType == "" {
		b.ClearPhoto()
		return
	}
	b.Photo = data
	b.PhotoContentType = contentType
}

// ClearPhoto drops both the image bytes and the content type.
func (b *Book) ClearPhoto() {
	b.Photo = nil
	b.PhotoContentType = ""
}

// MarshalJSON adds the derived has_photo flag.
func (b Book) MarshalJSON() ([]byte, error) {
	type book Book
	return json.Marshal(struct {
		book
		HasPhoto bool `json:"has_photo"`
	}{book: book(b), HasPhoto: b.HasPhoto()})
}
