// Package storage persists uploaded claim documents.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/bongitrade/policy-service/internal/domain"
)

// ErrInvalidKey is returned for keys that could escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

const maxFileNameLen = 128

// Upload is a single client-supplied file.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store saves documents and returns their reference. Storage keys are
// generated by the store and never derived from client paths.
type Store interface {
	Save(ctx context.Context, prefix string, upload Upload) (domain.Document, error)
	Delete(ctx context.Context, key string) error
}

// SanitizeFileName reduces a client filename to a safe base name for metadata.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxFileNameLen {
		clean = clean[len(clean)-maxFileNameLen:]
	}
	if clean == "" {
		return "document"
	}
	return clean
}

// NewKey builds prefix/<ulid><ext> where ext comes from the sanitized name.
func NewKey(prefix, fileName string) string {
	ext := strings.ToLower(path.Ext(SanitizeFileName(fileName)))
	if len(ext) > 10 {
		ext = ""
	}
	id := strings.ToLower(ulid.Make().String())
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return id + ext
	}
	return prefix + "/" + id + ext
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

func contentTypeOrDefault(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "application/octet-stream"
	}
	return ct
}
