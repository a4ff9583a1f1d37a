// Package imageproc bounds transform outputs in pixel size and byte size.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxSide    = 1024
	DefaultByteBudget = 900 * 1024
)

// DefaultQualities is the JPEG quality ladder, highest first.
var DefaultQualities = []int{80, 70, 60, 50}

// ErrUndecodable is returned for payloads that are not a supported raster image.
var ErrUndecodable = errors.New("imageproc: undecodable image")

// Normalizer downsizes and recompresses images. The byte budget is a soft
// cap: when even the lowest quality exceeds it, that encoding is kept.
type Normalizer struct {
	MaxSide    int
	ByteBudget int
	Qualities  []int
}

// Result is a normalized image.
type Result struct {
	Data      []byte
	MimeType  string
	Width     int
	Height    int
	Quality   int  // JPEG quality used; zero when the input passed through
	Reencoded bool // false when Data is the input unchanged
}

// NewNormalizer fills zero values with the defaults.
func NewNormalizer(maxSide, byteBudget int, qualities []int) *Normalizer {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if byteBudget <= 0 {
		byteBudget = DefaultByteBudget
	}
	if len(qualities) == 0 {
		qualities = DefaultQualities
	}
	return &Normalizer{MaxSide: maxSide, ByteBudget: byteBudget, Qualities: qualities}
}

// Normalize returns data unchanged when it already fits both bounds.
// Otherwise the image is shrunk to fit MaxSide (never enlarged) and encoded as
// JPEG, walking down the quality ladder until the budget is met.
func (n *Normalizer) Normalize(data []byte) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	if n.fits(cfg.Width, cfg.Height) && len(data) <= n.ByteBudget {
		return &Result{
			Data:     data,
			MimeType: MimeType(format),
			Width:    cfg.Width,
			Height:   cfg.Height,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	b := img.Bounds()
	if !n.fits(b.Dx(), b.Dy()) {
		img = imaging.Fit(img, n.MaxSide, n.MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	var quality int
	for _, q := range n.Qualities {
		buf.Reset()
		quality = q
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return nil, fmt.Errorf("imageproc: encode jpeg q%d: %w", q, err)
		}
		if buf.Len() <= n.ByteBudget {
			break
		}
	}

	out := img.Bounds()
	return &Result{
		Data:      append([]byte(nil), buf.Bytes()...),
		MimeType:  "image/jpeg",
		Width:     out.Dx(),
		Height:    out.Dy(),
		Quality:   quality,
		Reencoded: true,
	}, nil
}

func (n *Normalizer) fits(w, h int) bool {
	return w <= n.MaxSide && h <= n.MaxSide
}

// MimeType maps an image.DecodeConfig format name to its MIME type.
func MimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension (without dot) used for a MIME type.
func Extension(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// Sniff returns the MIME type of an encoded image, or "" when undecodable.
func Sniff(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return MimeType(format)
}
