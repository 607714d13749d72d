// Package objectstore uploads and removes user files (blog covers) in S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
)

// ErrDisabled is returned by Disabled for every upload.
var ErrDisabled = errors.New("object storage is not configured")

// File is an uploaded file as received from a form.
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Object identifies a stored file.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store is the capability the application needs from object storage.
type Store interface {
	Upload(ctx context.Context, ownerID string, f File) (Object, error)
	Delete(ctx context.Context, keys []string) error
	KeyFromPublicURL(publicURL string) string
}

// Disabled rejects uploads and ignores deletes.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, File) (Object, error) { return Object{}, ErrDisabled }
func (Disabled) Delete(context.Context, []string) error              { return nil }
func (Disabled) KeyFromPublicURL(string) string                      { return "" }

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

func encodeObjectKey(key string) string {
	parts := strings.Split(normalizeObjectKey(key), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func joinURLPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(strings.TrimSpace(p), "/") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}

// extension picks a safe file extension from the name or content type.
func extension(f File) string {
	ext := strings.ToLower(path.Ext(f.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	}
	switch strings.ToLower(f.ContentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}
