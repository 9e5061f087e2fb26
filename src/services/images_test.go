package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

type memImageStore struct {
	files map[string][]byte
	err   error
}

func (m *memImageStore) Put(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.files[key] = data
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageFixture() (*ImageService, *memImageStore) {
	store := &memImageStore{files: map[string][]byte{}}
	svc := NewImageService(store)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, store
}

func decodedSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}

func TestTourImages(t *testing.T) {
	svc, store := newImageFixture()
	ctx := context.Background()

	cover, err := svc.TourCover(ctx, 3, pngBytes(t, 300, 100))
	require.NoError(t, err)
	assert.Equal(t, "tour-3-1700000000000-cover.jpeg", cover)
	assert.Equal(t, image.Pt(2000, 1333), decodedSize(t, store.files["img/tours/"+cover]))

	names, err := svc.TourImages(ctx, 3, [][]byte{pngBytes(t, 40, 40), pngBytes(t, 50, 20)})
	require.NoError(t, err)
	assert.Equal(t, []string{"tour-3-1700000000000-1.jpeg", "tour-3-1700000000000-2.jpeg"}, names)
	assert.Len(t, store.files, 3)
}

func TestUserPhoto(t *testing.T) {
	svc, store := newImageFixture()

	name, err := svc.UserPhoto(context.Background(), 7, pngBytes(t, 64, 32))
	require.NoError(t, err)
	assert.Equal(t, "user-7-1700000000000.jpeg", name)
	assert.Equal(t, image.Pt(500, 500), decodedSize(t, store.files["img/users/"+name]))
}

// 1x1 lossless WebP.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestUserPhotoAcceptsWebPAndBMP(t *testing.T) {
	svc, store := newImageFixture()
	ctx := context.Background()

	webp, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)
	name, err := svc.UserPhoto(ctx, 7, webp)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(500, 500), decodedSize(t, store.files["img/users/"+name]))

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	name, err = svc.UserPhoto(ctx, 9, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(500, 500), decodedSize(t, store.files["img/users/"+name]))
}

func TestImageErrors(t *testing.T) {
	svc, store := newImageFixture()
	ctx := context.Background()

	_, err := svc.UserPhoto(ctx, 7, []byte("%PDF-1.4 definitely not a picture"))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Empty(t, store.files)

	// sniffed as image/x-icon, which has no decoder
	ico := []byte{0, 0, 1, 0, 1, 0, 16, 16, 0, 0, 1, 0, 32, 0}
	_, err = svc.UserPhoto(ctx, 7, ico)
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Empty(t, store.files)

	store.err = errors.New("disk full")
	_, err = svc.TourImages(ctx, 3, [][]byte{pngBytes(t, 10, 10)})
	assert.EqualError(t, err, "disk full")
}
