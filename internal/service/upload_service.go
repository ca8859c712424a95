package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"firmsite/internal/cmsapi"
	"firmsite/internal/content"
	"firmsite/pkg/logger"
	"firmsite/pkg/utils"
	"firmsite/pkg/validator"
)

var (
	ErrUploadMissing     = errors.New("no file was uploaded")
	ErrUploadTooLarge    = errors.New("file size exceeds maximum allowed size")
	ErrUnsupportedUpload = errors.New("file type not allowed")
)

// UploadService checks images before they leave the server and pushes them
// to the media host.
type UploadService struct {
	backend MediaBackend
	folder  string
	maxSize int64
}

func NewUploadService(backend MediaBackend, folder string, maxSize int64) *UploadService {
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	return &UploadService{
		backend: backend,
		folder:  folder,
		maxSize: maxSize,
	}
}

func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Validate rejects missing, oversized and non-image files.
func (s *UploadService) Validate(file *multipart.FileHeader) error {
	if file == nil {
		return ErrUploadMissing
	}
	if !validator.ValidateFileSize(file.Size, s.maxSize) {
		if file.Size <= 0 {
			return ErrUploadMissing
		}
		return ErrUploadTooLarge
	}
	if !validator.ValidateImageExtension(file.Filename) {
		return ErrUnsupportedUpload
	}

	contentType := strings.TrimSpace(file.Header.Get("Content-Type"))
	if contentType != "" && contentType != "application/octet-stream" && !validator.ValidateImageContentType(contentType) {
		return ErrUnsupportedUpload
	}
	return nil
}

// UploadImage validates file and stores it on the media host.
func (s *UploadService) UploadImage(ctx context.Context, token string, file *multipart.FileHeader) (cmsapi.MediaAsset, error) {
	if err := s.Validate(file); err != nil {
		return cmsapi.MediaAsset{}, err
	}

	src, err := file.Open()
	if err != nil {
		return cmsapi.MediaAsset{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	asset, err := s.backend.UploadMedia(ctx, token, cmsapi.MediaFile{
		Filename:    s.generateFilename(file.Filename),
		ContentType: file.Header.Get("Content-Type"),
		Reader:      src,
	}, s.folder)
	if err != nil {
		return cmsapi.MediaAsset{}, err
	}

	logger.Info("Media uploaded", map[string]interface{}{"url": asset.URL, "public_id": asset.PublicID})
	return asset, nil
}

// Attachment validates file and opens it as the binary part of a section
// save. The caller closes the returned file.
func (s *UploadService) Attachment(file *multipart.FileHeader) (*content.Attachment, multipart.File, error) {
	if err := s.Validate(file); err != nil {
		return nil, nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}

	return &content.Attachment{
		Filename:    s.generateFilename(file.Filename),
		ContentType: file.Header.Get("Content-Type"),
		Reader:      src,
	}, src, nil
}

func (s *UploadService) generateFilename(originalName string) string {
	if name := utils.SlugFilename(originalName); name != "" {
		return name
	}
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
}
