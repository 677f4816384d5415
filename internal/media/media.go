// Package media stores uploaded images and resolves their public URLs.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/gera1311/foodgram/internal/apperr"
)

const (
	RecipeImages = "recipes/images"
	Avatars      = "users"
)

// Store persists image bytes under a key; keys are what the database keeps.
type Store interface {
	Save(ctx context.Context, dir, ext string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var allowedTypes = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"jpg":  "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// DecodeDataURI parses "data:image/<type>;base64,<payload>" and returns
// the payload with the file extension for its type.
func DecodeDataURI(field, raw string) (data []byte, ext string, err error) {
	invalid := apperr.Validation(field, "image_invalid", "expected a base64 encoded data:image URI")

	raw = strings.TrimSpace(raw)
	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, "", invalid
	}
	kind := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	ext, ok = allowedTypes[strings.ToLower(kind)]
	if !ok {
		return nil, "", apperr.Validation(field, "image_type_unsupported", "unsupported image type "+kind)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, "", invalid
	}
	return data, ext, nil
}

func newKey(dir, ext string) string {
	return path.Join(dir, fmt.Sprintf("%s.%s", uuid.NewString(), ext))
}

func contentTypeForExt(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
