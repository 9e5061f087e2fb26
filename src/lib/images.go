package lib

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrNotAnImage = errors.New("not an image")

// IsImage sniffs the first bytes of data.
func IsImage(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// ResizeJPEG decodes an image, scales and center-crops it to exactly
// width x height, and encodes the result as JPEG.
func ResizeJPEG(data []byte, width, height, quality int) ([]byte, error) {
	if !IsImage(data) {
		return nil, ErrNotAnImage
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrNotAnImage
	}
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, coverCrop(src.Bounds(), width, height), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coverCrop returns the centered region of b with the aspect ratio of
// width x height.
func coverCrop(b image.Rectangle, width, height int) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w*height > h*width {
		cw := h * width / height
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := w * height / width
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

// LocalImageStore writes images below a directory served as static files.
type LocalImageStore struct {
	root string
}

func NewLocalImageStore(root string) *LocalImageStore {
	return &LocalImageStore{root: root}
}

func (s *LocalImageStore) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[images] Could not write %s: %s\n", path, err.Error())
		return err
	}
	return nil
}
