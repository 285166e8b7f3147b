// Package storage keeps uploaded images in a bucket addressed by
// slash-separated keys.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
)

var (
	ErrNotFound    = xerrors.Message("object not found")
	ErrInvalidPath = xerrors.Message("invalid object path")
)

type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

type Bucket interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// List returns up to limit objects under prefix, newest first.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
	Delete(ctx context.Context, key string) error
	// URL is the public address of key.
	URL(key string) string
}

// CleanKey normalises key and rejects anything that escapes the bucket root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) {
		return "", xerrors.New(ErrInvalidPath)
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", xerrors.New(ErrInvalidPath)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", xerrors.New(ErrInvalidPath)
		}
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
