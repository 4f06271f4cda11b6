package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func newLocalUploader(t *testing.T, maxBytes int64) (*Uploader, string) {
	dir := t.TempDir()
	backend, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	return NewUploader(backend, maxBytes), dir
}

func TestUploadImage(t *testing.T) {
	uploader, dir := newLocalUploader(t, 10<<20)

	att, err := uploader.Upload(context.Background(), fileHeader(t, "avatar.png", pngBytes), "avatars", ImageTypes)
	require.NoError(t, err)

	assert.Equal(t, "image/png", att.FileMimeType)
	assert.Equal(t, "avatar.png", att.FileName)
	assert.True(t, strings.HasPrefix(att.FileURL, "/uploads/avatars/"))
	assert.True(t, strings.HasSuffix(att.FileURL, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(att.FileURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestUploadSniffsContentNotExtension(t *testing.T) {
	uploader, _ := newLocalUploader(t, 10<<20)

	_, err := uploader.Upload(context.Background(), fileHeader(t, "fake.png", []byte("#!/bin/sh\necho hi\n")), "avatars", ImageTypes)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "not allowed")
}

func TestUploadAcceptsTextNotes(t *testing.T) {
	uploader, _ := newLocalUploader(t, 10<<20)

	att, err := uploader.Upload(context.Background(), fileHeader(t, "notes.txt", []byte("chapter one summary")), "notes", DocumentTypes)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", att.FileMimeType)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	uploader, _ := newLocalUploader(t, 16)

	_, err := uploader.Upload(context.Background(), fileHeader(t, "big.txt", bytes.Repeat([]byte("a"), 17)), "notes", DocumentTypes)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "file", validationErr.Fields[0].Field)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	uploader, _ := newLocalUploader(t, 16)

	_, err := uploader.Upload(context.Background(), fileHeader(t, "empty.txt", nil), "notes", DocumentTypes)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
