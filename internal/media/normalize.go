// Package media validates, decodes, bounds and re-encodes cover images.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	xwebp "golang.org/x/image/webp"

	"github.com/justyntemme/librarian/internal/apperr"
)

const (
	DefaultQuality = 85

	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeWebP = "image/webp"
)

// Constraints bound the output image. A zero MaxWidth or MaxHeight leaves
// that axis unbounded. AutoOrient applies the EXIF orientation tag before
// bounding, which can swap the output width and height.
type Constraints struct {
	MaxWidth   int
	MaxHeight  int
	Quality    int
	AutoOrient bool
}

func (c Constraints) quality() int {
	switch {
	case c.Quality == 0:
		return DefaultQuality
	case c.Quality < 1:
		return 1
	case c.Quality > 100:
		return 100
	}
	return c.Quality
}

// ImageAsset is an encoded image ready to store or serve.
type ImageAsset struct {
	Data        []byte
	ContentType string
	SourceName  string
	Width       int
	Height      int
}

// Normalize decodes data, shrinks it to fit c and re-encodes it in the format
// named by sourceName's extension: .png stays PNG, .webp stays WebP and
// everything else becomes JPEG.
func Normalize(data []byte, sourceName string, c Constraints) (*ImageAsset, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.DecodeFailed, "image is empty")
	}

	img, err := decode(data, c.AutoOrient)
	if err != nil {
		return nil, apperr.Wrap(apperr.DecodeFailed, err, "image could not be decoded")
	}

	b := img.Bounds()
	if w, h, ok := fit(b.Dx(), b.Dy(), c.MaxWidth, c.MaxHeight); ok {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	contentType, err := encode(&buf, img, sourceName, c.quality())
	if err != nil {
		return nil, apperr.Wrap(apperr.DecodeFailed, err, "image could not be encoded")
	}

	b = img.Bounds()
	return &ImageAsset{
		Data:        buf.Bytes(),
		ContentType: contentType,
		SourceName:  sourceName,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

func decode(data []byte, autoOrient bool) (image.Image, error) {
	if DetectContentType(data) == ContentTypeWebP {
		return xwebp.Decode(bytes.NewReader(data))
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(autoOrient))
}

// fit returns the target size for a w x h image inside maxW x maxH, and
// false when no resize is needed. Each side is floor(side * ratio) with the
// smaller of the two axis ratios, computed in integers. Images are never
// enlarged.
func fit(w, h, maxW, maxH int) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}
	overW := maxW > 0 && w > maxW
	overH := maxH > 0 && h > maxH
	if !overW && !overH {
		return w, h, false
	}

	var nw, nh int
	if maxW > 0 && (maxH <= 0 || maxW*h <= maxH*w) {
		nw, nh = maxW, h*maxW/w
	} else {
		nw, nh = w*maxH/h, maxH
	}
	return max(nw, 1), max(nh, 1), true
}

func encode(buf *bytes.Buffer, img image.Image, sourceName string, quality int) (string, error) {
	switch strings.ToLower(filepath.Ext(sourceName)) {
	case ".png":
		if err := imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
		return ContentTypePNG, nil
	case ".webp":
		if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
		return ContentTypeWebP, nil
	default:
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return "", fmt.Errorf("encode jpeg: %w", err)
		}
		return ContentTypeJPEG, nil
	}
}

// Normalizer applies a fixed set of default constraints.
type Normalizer struct {
	defaults Constraints
}

// NewNormalizer creates a Normalizer with the given defaults
func NewNormalizer(defaults Constraints) *Normalizer {
	return &Normalizer{defaults: defaults}
}

// Normalize applies the default constraints.
func (n *Normalizer) Normalize(data []byte, sourceName string) (*ImageAsset, error) {
	return Normalize(data, sourceName, n.defaults)
}

// Resize applies explicit bounds with the default quality.
func (n *Normalizer) Resize(data []byte, sourceName string, maxWidth, maxHeight int) (*ImageAsset, error) {
	c := n.defaults
	c.MaxWidth = maxWidth
	c.MaxHeight = maxHeight
	return Normalize(data, sourceName, c)
}
