package media

import (
	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType sniffs the MIME type of data from its leading bytes,
// dropping any parameters.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		switch m.String() {
		case ContentTypeJPEG, ContentTypePNG, ContentTypeWebP, "image/gif", "image/bmp", "image/tiff":
			return m.String()
		}
	}
	return mt.String()
}

// SourceNameFor returns a file name whose extension makes Normalize keep the
// given content type.
func SourceNameFor(base, contentType string) string {
	switch contentType {
	case ContentTypePNG:
		return base + ".png"
	case ContentTypeWebP:
		return base + ".webp"
	default:
		return base + ".jpg"
	}
}
