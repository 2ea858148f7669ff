package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNoObjectStore is returned by stores that only record file names.
var ErrNoObjectStore = errors.New("attachment store keeps file names only")

// AttachmentStore keeps the file attached to a courrier. Put returns the key to
// record on the document; URL returns a time-limited download link for it.
type AttachmentStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// NameOnlyStore is the default store: the upload body is discarded and the
// sanitized file name becomes the key.
type NameOnlyStore struct{}

func (NameOnlyStore) Put(_ context.Context, name string, _ io.Reader, _ int64, _ string) (string, error) {
	return CleanName(name), nil
}

func (NameOnlyStore) URL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNoObjectStore
}

// CleanName strips any client-supplied directory components.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return "untitled"
	}
	return base
}
