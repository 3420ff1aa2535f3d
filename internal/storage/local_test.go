package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/testutil"
)

// fileHeader builds a real multipart.FileHeader by parsing a form.
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="picture"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["picture"][0]
}

func TestLocalStore_SaveImage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	p, err := s.Save("picture", fileHeader(t, "evidence.png", "image/png", testutil.PNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/uploads/picture-"), p)
	assert.True(t, strings.HasSuffix(p, ".png"), p)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.Base(p)))
	require.NoError(t, err)
	assert.Equal(t, testutil.PNG, stored)

	require.NoError(t, s.Remove(p))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(p)))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsNonImages(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	// The client claims PNG but the bytes are HTML.
	_, err = s.Save("picture", fileHeader(t, "x.png", "image/png", []byte("<html><script>alert(1)</script></html>")))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = s.Save("picture", nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLocalStore_RejectsOversized(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	s.MaxBytes = 10

	_, err = s.Save("picture", fileHeader(t, "x.png", "image/png", testutil.PNG))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLocalStore_RemoveIgnoresForeignPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	keep := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	assert.NoError(t, s.Remove("/etc/passwd"))
	assert.NoError(t, s.Remove("/uploads/../keep.txt"))
	assert.NoError(t, s.Remove("/uploads/missing.png"))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}
