package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes are inspected for MIME detection.
const SniffLen = 3072

// ErrInvalidKey is returned for storage keys or namespaces that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// CleanKey normalizes a slash-separated key and rejects traversal and absolute paths.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" || strings.HasPrefix(k, "/") || strings.Contains(k, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(k)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// DetectMIME returns the MIME type of a sniffed prefix.
func DetectMIME(sniff []byte) string {
	return mimetype.Detect(sniff).String()
}
