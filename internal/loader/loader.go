// Package loader reads resource content for jobs submitted without an
// inline payload.
package loader

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Loader supplies resource bytes by URI.
type Loader interface {
	// ReadText returns the raw text of the resource at uri.
	ReadText(uri string) (string, error)

	// ReadBase64 returns the resource's bytes base64-encoded.
	ReadBase64(uri string) (string, error)
}

// FileLoader reads resources from the local filesystem. It accepts both
// file:// URIs and plain paths, which is what editors hand us in practice.
type FileLoader struct{}

// NewFileLoader creates a FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// ReadText returns the raw text of the file identified by uri.
func (l *FileLoader) ReadText(uri string) (string, error) {
	data, err := l.read(uri)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBase64 returns the file's bytes base64-encoded.
func (l *FileLoader) ReadBase64(uri string) (string, error) {
	data, err := l.read(uri)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (l *FileLoader) read(uri string) ([]byte, error) {
	path, err := toPath(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return data, nil
}

// toPath resolves a file:// URI to a filesystem path. Plain paths pass
// through unchanged.
func toPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid resource uri %s: %w", uri, err)
	}
	return u.Path, nil
}
