package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores user-provided images (avatars, tournament banners).
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string

	// KeyFromURL maps a public URL back to its key, false for foreign URLs.
	KeyFromURL(location string) (string, bool)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an accepted image content
// type, or false when the type is not accepted.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	return ext, ok
}

// ObjectKey builds a unique key such as "avatars/ada-lovelace-<uuid>.png".
// The slug keeps keys readable in the bucket listing.
func ObjectKey(prefix, name, ext string) string {
	base := slug.Make(name)
	if base == "" {
		base = "file"
	}
	return path.Join(prefix, base+"-"+uuid.NewString()+ext)
}
