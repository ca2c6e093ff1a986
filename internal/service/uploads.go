package service

import (
	"context"
	"errors"
	"io"

	apperrors "barangay-portal/internal/common/errors"
	"barangay-portal/internal/common/validation"
	"barangay-portal/internal/storage"
)

// Upload is one file part of a multipart request.
type Upload struct {
	Field    string
	Filename string
	Size     int64
	Body     io.Reader
}

// save validates u against kind and stores it under category.
func (s *Service) save(ctx context.Context, category string, kind validation.AttachmentKind, u Upload) (*storage.StoredFile, error) {
	if s.storage == nil {
		return nil, apperrors.NewStorageFailedError(errors.New("upload storage not configured"))
	}
	if err := validation.ValidateAttachment(u.Field, kind, u.Filename, u.Size, s.storage.MaxBytes()); err != nil {
		return nil, err
	}
	f, err := s.storage.Save(ctx, category, u.Filename, u.Body)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, apperrors.NewPayloadTooLargeError(s.storage.MaxBytes())
	}
	if err != nil {
		return nil, apperrors.NewStorageFailedError(err)
	}
	return f, nil
}

// discard removes stored files, logging failures.
func (s *Service) discard(refs ...string) {
	if s.storage == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.storage.Delete(ref); err != nil {
			s.logger.Warn("stored file not removed", map[string]interface{}{"file": ref, "error": err.Error()})
		}
	}
}
