package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"natours/src/lib"
	"natours/src/types"
)

const (
	tourImageWidth  = 2000
	tourImageHeight = 1333
	userPhotoSize   = 500
	jpegQuality     = 90
)

var ErrNotAnImage = types.NewAppError("The uploaded file is not an image!", http.StatusBadRequest)

type ImageStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ImageService resizes uploads and stores them under img/tours and
// img/users. It returns the file names saved on the documents.
type ImageService struct {
	store ImageStore
	now   func() time.Time
}

func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store, now: time.Now}
}

func (s *ImageService) TourCover(ctx context.Context, tourID uint, data []byte) (string, error) {
	name := fmt.Sprintf("tour-%d-%d-cover.jpeg", tourID, s.now().UnixMilli())
	return name, s.put(ctx, "img/tours/"+name, data, tourImageWidth, tourImageHeight)
}

func (s *ImageService) TourImages(ctx context.Context, tourID uint, files [][]byte) ([]string, error) {
	ts := s.now().UnixMilli()
	names := make([]string, 0, len(files))
	for i, data := range files {
		name := fmt.Sprintf("tour-%d-%d-%d.jpeg", tourID, ts, i+1)
		if err := s.put(ctx, "img/tours/"+name, data, tourImageWidth, tourImageHeight); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *ImageService) UserPhoto(ctx context.Context, userID uint, data []byte) (string, error) {
	name := fmt.Sprintf("user-%d-%d.jpeg", userID, s.now().UnixMilli())
	return name, s.put(ctx, "img/users/"+name, data, userPhotoSize, userPhotoSize)
}

func (s *ImageService) put(ctx context.Context, key string, data []byte, width, height int) error {
	out, err := lib.ResizeJPEG(data, width, height, jpegQuality)
	if errors.Is(err, lib.ErrNotAnImage) {
		return ErrNotAnImage
	}
	if err != nil {
		return fmt.Errorf("resize %s: %w", key, err)
	}
	return s.store.Put(ctx, key, out)
}
