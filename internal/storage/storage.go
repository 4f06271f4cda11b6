// Package storage validates uploaded files and hands them to a backend.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Allow-lists checked against the sniffed content type, not the client's header.
var (
	ImageTypes = []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	}
	DocumentTypes = append([]string{
		"application/pdf",
		"text/plain",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}, ImageTypes...)
)

// Backend stores an object under key and returns its public URL.
type Backend interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

type Uploader struct {
	backend  Backend
	maxBytes int64
}

func NewUploader(backend Backend, maxBytes int64) *Uploader {
	return &Uploader{backend: backend, maxBytes: maxBytes}
}

func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

// Upload checks size and sniffed type of the file and stores it under
// folder. Rejections are validation errors.
func (u *Uploader) Upload(ctx context.Context, fh *multipart.FileHeader, folder string, allowed []string) (*models.Attachment, error) {
	if fh.Size > u.maxBytes {
		return nil, u.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return nil, u.tooLarge()
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("File is empty",
			apperrors.FieldError{Field: "file", Error: "file is empty"})
	}

	mtype := mimetype.Detect(data)
	if !isAllowed(mtype, allowed) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("File type %s is not allowed", mtype.String()),
			apperrors.FieldError{Field: "file", Error: "unsupported file type"},
		)
	}

	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	key := path.Join(folder, uuid.NewString()+mtype.Extension())
	url, err := u.backend.Save(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return &models.Attachment{
		FileURL:      url,
		FileName:     path.Base(fh.Filename),
		FileMimeType: contentType,
	}, nil
}

func (u *Uploader) tooLarge() error {
	return apperrors.NewValidationError(
		fmt.Sprintf("File exceeds the %dMB limit", u.maxBytes>>20),
		apperrors.FieldError{Field: "file", Error: "file too large"},
	)
}

func isAllowed(mtype *mimetype.MIME, allowed []string) bool {
	for _, a := range allowed {
		if mtype.Is(a) {
			return true
		}
	}
	return false
}
