package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Uploader writes objects to durable storage and hands back a public URL.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, objectPaths []string) error
	// ObjectPathFromURL maps a URL returned by Upload back to its object path.
	ObjectPathFromURL(url string) (string, bool)
}

// ObjectPath builds <prefix>/<userID>/<unixMillis>[-<index>].<ext>. A negative
// index is the single-image form without a suffix.
func ObjectPath(prefix, userID string, at time.Time, index int, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	name := fmt.Sprintf("%d", at.UnixMilli())
	if index >= 0 {
		name = fmt.Sprintf("%s-%d", name, index)
	}
	return path.Join(strings.Trim(prefix, "/"), userID, name+"."+ext)
}

// LocalPath strips a file:// scheme from a local image reference.
func LocalPath(uri string) string {
	return strings.TrimPrefix(strings.TrimSpace(uri), "file://")
}

// ReadLocalFile reads a local image reference (plain path or file:// URI).
func ReadLocalFile(uri string) ([]byte, error) {
	p := LocalPath(uri)
	if p == "" {
		return nil, errors.New("storage: empty image reference")
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// RemoveLocalFile deletes a local image reference. Missing files are not an
// error.
func RemoveLocalFile(uri string) error {
	err := os.Remove(LocalPath(uri))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DetectContent returns the content type and extension for an image. The
// extension of the reference wins; the bytes are sniffed otherwise.
func DetectContent(uri string, data []byte) (contentType, ext string) {
	mtype := mimetype.Detect(data)
	contentType = mtype.String()
	ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(LocalPath(uri))), ".")
	if ext == "" {
		ext = strings.TrimPrefix(mtype.Extension(), ".")
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType, ext
}
