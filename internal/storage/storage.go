// Package storage keeps the raw bytes of uploaded reference documents.
package storage

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat object store addressed by slash-separated keys.
type Store interface {
	// Put writes data under key and returns a URI describing where it landed.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a unique key for a document uploaded to a subject.
func ObjectKey(subjectID uuid.UUID, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document"
	}
	return path.Join("subjects", subjectID.String(), uuid.NewString()+"-"+name)
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

var errInvalidKey = errors.New("invalid object key")

// Open returns the backend named by backend: "gcs" for a Cloud Storage bucket,
// anything else for files under dir. Callers should close the result if it
// implements io.Closer.
func Open(ctx context.Context, backend, dir, bucket string) (Store, error) {
	if backend == "gcs" {
		g, err := NewGCS(ctx, bucket)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	l, err := NewLocal(dir)
	if err != nil {
		return nil, err
	}
	return l, nil
}
