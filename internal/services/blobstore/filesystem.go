package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStore keeps blobs in a local directory that the API serves
// under PublicBaseURL.
type FilesystemStore struct {
	basePath      string
	publicBaseURL string
}

// NewFilesystemStore creates the directory if needed
func NewFilesystemStore(basePath, publicBaseURL string) (*FilesystemStore, error) {
	if basePath == "" {
		return nil, errors.New("storage directory is not configured")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FilesystemStore{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// BasePath is the directory holding the blobs
func (fs *FilesystemStore) BasePath() string {
	return fs.basePath
}

func (fs *FilesystemStore) path(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(fs.basePath, clean), nil
}

func (fs *FilesystemStore) url(name string) string {
	return fs.publicBaseURL + "/" + url.PathEscape(name)
}

// Upload writes a new object. Existing objects are never overwritten.
func (fs *FilesystemStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath, err := fs.path(name)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrObjectExists, name)
		}
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	log.Printf("[DEBUG] Stored %d bytes of %s as %s", len(data), contentType, name)
	return fs.url(name), nil
}

// Delete removes an object. Missing objects are not an error.
func (fs *FilesystemStore) Delete(ctx context.Context, fileURL string) error {
	fullPath, err := fs.path(ObjectNameFromURL(fileURL))
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns all stored objects, oldest first
func (fs *FilesystemStore) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	objects := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{
			Name:    entry.Name(),
			URL:     fs.url(entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ModTime.Before(objects[j].ModTime)
	})
	return objects, nil
}
