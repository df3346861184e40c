package media

import (
	"path/filepath"
	"strings"

	"github.com/justyntemme/librarian/internal/apperr"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
}

// ValidateUpload checks the declared content type and file extension of an
// uploaded image before any decoding happens.
func ValidateUpload(contentType, filename string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "image/") {
		return apperr.Newf(apperr.InvalidInput, "unsupported content type %q: only images are accepted", contentType)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return apperr.Newf(apperr.InvalidInput, "unsupported file extension %q", ext)
	}
	return nil
}
