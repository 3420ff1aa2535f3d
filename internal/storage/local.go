// Package storage keeps uploaded enrollment evidence on the local disk and
// hands back the public path it is served under.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
)

// PublicPrefix is the URL prefix the upload directory is served from.
const PublicPrefix = "/uploads"

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes = 5 << 20

var allowedImages = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// LocalStore writes files under Dir.
type LocalStore struct {
	Dir      string
	MaxBytes int64
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, MaxBytes: DefaultMaxBytes}, nil
}

// Save stores the uploaded image as <field>-<uuid><ext> and returns
// /uploads/<name>.  The type is sniffed from the content, not taken from the
// client's headers; anything but a raster image is a validation error.
func (s *LocalStore) Save(field string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", apperror.Validation(field + " file is required")
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", apperror.Validation(fmt.Sprintf("%s exceeds %d bytes", field, s.MaxBytes))
	}
	src, err := fh.Open()
	if err != nil {
		return "", apperror.Internal("open upload", err)
	}
	defer src.Close()

	head := make([]byte, 3072)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", apperror.Internal("read upload", err)
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !allowedImages[mt.String()] {
		return "", apperror.Validation(field + " must be a PNG, JPEG, GIF or WebP image")
	}

	name := fmt.Sprintf("%s-%s%s", field, uuid.NewString(), mt.Extension())
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", apperror.Internal("create upload file", err)
	}
	if _, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), src)); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", apperror.Internal("write upload", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", apperror.Internal("close upload", err)
	}
	return path.Join(PublicPrefix, name), nil
}

// Remove deletes a file previously returned by Save.  Paths outside the
// upload prefix are ignored.
func (s *LocalStore) Remove(public string) error {
	name, ok := strings.CutPrefix(public, PublicPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
