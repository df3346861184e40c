package media

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/librarian/internal/apperr"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		wantErr     bool
	}{
		{"jpeg", "image/jpeg", "cover.jpg", false},
		{"uppercase extension", "image/png", "COVER.PNG", false},
		{"webp", "image/webp", "cover.webp", false},
		{"gif", "image/gif", "anim.gif", false},
		{"bmp", "image/bmp", "scan.bmp", false},
		{"content type params", "Image/JPEG; charset=binary", "a.jpeg", false},
		{"pdf content type", "application/pdf", "cover.jpg", true},
		{"empty content type", "", "cover.jpg", true},
		{"tiff extension", "image/tiff", "scan.tiff", true},
		{"svg extension", "image/svg+xml", "logo.svg", true},
		{"no extension", "image/jpeg", "cover", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.contentType, tt.filename)
			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.InvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, ContentTypePNG, DetectContentType(testPNG(t, 2, 2)))
	assert.Equal(t, ContentTypeJPEG, DetectContentType(testJPEG(t, 2, 2)))
	assert.Equal(t, "", DetectContentType(nil))
	assert.NotContains(t, DetectContentType([]byte("plain text")), "image/")
}

func TestSourceNameFor(t *testing.T) {
	assert.Equal(t, "cover.png", SourceNameFor("cover", ContentTypePNG))
	assert.Equal(t, "cover.webp", SourceNameFor("cover", ContentTypeWebP))
	assert.Equal(t, "cover.jpg", SourceNameFor("cover", ContentTypeJPEG))
	assert.Equal(t, "cover.jpg", SourceNameFor("cover", "image/gif"))
}
