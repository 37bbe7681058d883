// Package storage keeps uploaded assets (prize images, backgrounds) under tenant scoped keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// ErrObjectNotFound is returned by Open when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Store is the asset backend used by the services.
type Store interface {
	// Put writes the object, replacing any previous content at key.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Open streams the object. Callers close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Check verifies that prefix is reachable and writable by this process.
	Check(ctx context.Context, prefix string) error
}

// PublicPathPrefix is where the API serves stored objects.
const PublicPathPrefix = "/uploads/"

// ObjectKey combines the tenant base prefix and a tenant relative key.
//   - tenant.Space.BasePrefix already includes envKey and trailing slash (e.g. "dev/shop-000001/").
//   - logicalKey is a tenant-relative key such as "images/<uuid>.png".
func ObjectKey(space tenant.Space, logicalKey string) (string, error) {
	key := strings.TrimSpace(logicalKey)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("logical key is required")
	}

	prefix := space.BasePrefix
	if prefix == "" {
		return "", fmt.Errorf("tenant base prefix is missing")
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	full := prefix + key
	if err := ValidateKey(full); err != nil {
		return "", err
	}
	return full, nil
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid object key %q", key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}

// PublicURL returns the path under which key is served, or "" for an empty key.
func PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return PublicPathPrefix + key
}
