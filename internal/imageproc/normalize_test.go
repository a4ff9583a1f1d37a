package imageproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalize_PassThrough(t *testing.T) {
	src := encodePNG(t, solid(500, 500, color.RGBA{R: 200, G: 40, B: 90, A: 255}))
	n := NewNormalizer(0, 0, nil)

	res, err := n.Normalize(src)
	require.NoError(t, err)
	assert.False(t, res.Reencoded)
	assert.Equal(t, src, res.Data)
	assert.Equal(t, "image/png", res.MimeType)
	assert.Equal(t, 500, res.Width)
}

func TestNormalize_DownscalesPreservingAspect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3000, 1500))
	for y := 0; y < 1500; y++ {
		for x := 0; x < 3000; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	n := NewNormalizer(1024, 900*1024, nil)

	res, err := n.Normalize(encodePNG(t, img))
	require.NoError(t, err)
	assert.True(t, res.Reencoded)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, 1024, res.Width)
	assert.Equal(t, 512, res.Height)
	assert.LessOrEqual(t, len(res.Data), 900*1024)
}

func TestNormalize_NeverUpscales(t *testing.T) {
	// over budget but small: recompressed, not resized
	n := NewNormalizer(1024, 100, nil)
	res, err := n.Normalize(encodePNG(t, solid(64, 32, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 32, res.Height)
}

func TestNormalize_ByteBudgetIsSoft(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, 1200, 1200))
	rng.Read(img.Pix)
	n := NewNormalizer(1024, 900*1024, []int{80, 70, 60, 50})

	res, err := n.Normalize(encodePNG(t, img))
	require.NoError(t, err)
	if len(res.Data) > n.ByteBudget {
		assert.Equal(t, 50, res.Quality, "over budget output must use the lowest quality")
	}

	tiny := NewNormalizer(1024, 10, []int{80, 50})
	res, err = tiny.Normalize(encodePNG(t, img))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Quality)
	assert.Greater(t, len(res.Data), 10)
}

func TestNormalize_Undecodable(t *testing.T) {
	_, err := NewNormalizer(0, 0, nil).Normalize([]byte("not an image"))
	assert.True(t, errors.Is(err, ErrUndecodable))
}

func TestSniffAndExtension(t *testing.T) {
	assert.Equal(t, "image/png", Sniff(encodePNG(t, solid(2, 2, color.Black))))
	assert.Equal(t, "", Sniff([]byte("nope")))
	assert.Equal(t, "jpg", Extension("image/jpeg"))
	assert.Equal(t, "png", Extension("image/png"))
}
