package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

// ErrUploadTooLarge is returned by PutUpload when the body exceeds MaxUploadBytes.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// SafeExtension returns the lowercased extension of filename when it is whitelisted,
// otherwise ".png".
func SafeExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := allowedExtensions[ext]; ok {
		return ext
	}
	return ".png"
}

// ContentType maps a whitelisted extension to its MIME type.
func ContentType(ext string) string {
	if ct, ok := allowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// NewLogicalKey builds a fresh tenant relative key "<dir>/<uuid><ext>".
func NewLogicalKey(dir, filename string) string {
	return strings.Trim(dir, "/") + "/" + uuid.NewString() + SafeExtension(filename)
}

// PutUpload stores up under a new key in dir inside the tenant space and returns the full key.
// Nothing is left behind when the body is over the size limit.
func PutUpload(ctx context.Context, store Store, space tenant.Space, dir string, up Upload) (string, error) {
	if up.Body == nil {
		return "", fmt.Errorf("upload body is required")
	}
	key, err := ObjectKey(space, NewLogicalKey(dir, up.Filename))
	if err != nil {
		return "", err
	}

	body := &limitedReader{r: up.Body, remaining: MaxUploadBytes}
	if err := store.Put(ctx, key, body, ContentType(path.Ext(key))); err != nil {
		if body.exceeded {
			_ = store.Delete(ctx, key)
			return "", ErrUploadTooLarge
		}
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	if body.exceeded {
		_ = store.Delete(ctx, key)
		return "", ErrUploadTooLarge
	}
	return key, nil
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrUploadTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrUploadTooLarge
	}
	return n, err
}
