// Package extract provides text extraction from PDF, DOCX and plain text documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned for extensions the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SupportedExtensions lists the file extensions Extract understands.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".rst"}

// Extractor extracts plain text from document files and http(s) URLs.
type Extractor struct {
	client *http.Client
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the client used to download remote documents.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{client: &http.Client{Timeout: 60 * time.Second}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Extract returns the text content of source. Local paths are read from disk; http(s)
// URLs are downloaded first. Extraction is chosen by extension.
func (e *Extractor) Extract(ctx context.Context, source string) (string, error) {
	if IsRemote(source) {
		content, ext, err := e.download(ctx, source)
		if err != nil {
			return "", err
		}
		return e.ExtractBytes(content, ext)
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(source)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
