package blobstore

import (
	"context"
	"errors"
	"net/url"
	"path"
	"time"
)

// ErrObjectExists is returned when an upload would overwrite an object.
var ErrObjectExists = errors.New("object already exists")

// Store persists audio blobs and hands back their public URL.
type Store interface {
	// Upload writes data under name and returns the public URL
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Delete removes the object behind a URL returned by Upload
	Delete(ctx context.Context, fileURL string) error
}

// Lister is implemented by stores that can enumerate their objects.
type Lister interface {
	List(ctx context.Context) ([]Object, error)
}

// Object describes one stored blob.
type Object struct {
	Name    string
	URL     string
	Size    int64
	ModTime time.Time
}

// ObjectNameFromURL returns the last path segment of a public URL, unescaped.
func ObjectNameFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return path.Base(fileURL)
	}
	return path.Base(u.Path)
}
