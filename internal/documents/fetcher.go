// Package documents loads statement files from Cloud Storage or the local
// filesystem.
package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const gcsScheme = "gs://"

// ErrInvalidGCSURI is returned for gs:// URIs without a bucket or object path.
var ErrInvalidGCSURI = errors.New("invalid GCS URI")

// Document is a statement file ready to be sent to the parser.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".csv":  "text/csv",
	".txt":  "text/plain",
}

// Fetcher resolves document URIs.
type Fetcher struct {
	objects ObjectStore
}

// NewFetcher returns a Fetcher. objects may be nil, in which case gs:// URIs
// are rejected.
func NewFetcher(objects ObjectStore) *Fetcher {
	return &Fetcher{objects: objects}
}

// Fetch loads a gs://bucket/object URI or a local path.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (Document, error) {
	if strings.HasPrefix(uri, gcsScheme) {
		bucket, object, err := ParseGCSURI(uri)
		if err != nil {
			return Document{}, err
		}
		if f.objects == nil {
			return Document{}, fmt.Errorf("Fetch: %s: cloud storage is not configured", uri)
		}

		data, err := f.objects.ReadObject(ctx, bucket, object)
		if err != nil {
			return Document{}, fmt.Errorf("Fetch: %w", err)
		}
		return NewDocument(path.Base(object), data), nil
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		return Document{}, fmt.Errorf("Fetch: read file %q: %w", uri, err)
	}
	return NewDocument(filepath.Base(uri), data), nil
}

// NewDocument wraps raw bytes, detecting the MIME type from name and content.
func NewDocument(name string, data []byte) Document {
	return Document{
		Name:     name,
		MIMEType: DetectMIMEType(name, data),
		Data:     data,
	}
}

// DetectMIMEType prefers the file extension and falls back to content sniffing.
func DetectMIMEType(name string, data []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	t := http.DetectContentType(data)
	// Strip parameters such as "; charset=utf-8".
	if idx := strings.Index(t, ";"); idx != -1 {
		t = strings.TrimSpace(t[:idx])
	}
	return t
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidGCSURI, uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, gcsScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w (no object path): %s", ErrInvalidGCSURI, uri)
	}

	return parts[0], parts[1], nil
}
