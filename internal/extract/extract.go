// Package extract turns uploaded reference documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for document kinds that have no text extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrInvalidDocument is returned when a document cannot be decoded as its kind.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document kinds
const (
	KindPDF  = "pdf"
	KindDOCX = "docx"
	KindPPTX = "pptx"
	KindText = "txt"
)

// Document is the result of extracting a document.
type Document struct {
	Text  string
	Pages *int // nil when the format has no page concept
}

// Extractor decodes one document kind.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Document, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (Document, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (Document, error) {
	return f(ctx, data)
}

// Registry maps document kinds to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns a registry with the built-in pdf, docx and txt extractors.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(KindPDF, NewPDF())
	r.Register(KindDOCX, DOCX{})
	r.Register(KindText, ExtractorFunc(extractText))
	return r
}

// Register sets the extractor for kind, replacing any existing one.
func (r *Registry) Register(kind string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[normalizeKind(kind)] = e
}

// Supports reports whether kind has an extractor.
func (r *Registry) Supports(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[normalizeKind(kind)]
	return ok
}

// Extract decodes data as kind.
func (r *Registry) Extract(ctx context.Context, kind string, data []byte) (Document, error) {
	r.mu.RLock()
	e, ok := r.extractors[normalizeKind(kind)]
	r.mu.RUnlock()
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	return e.Extract(ctx, data)
}

// ExtractText decodes data as kind and returns only its text.
func (r *Registry) ExtractText(ctx context.Context, kind string, data []byte) (string, error) {
	doc, err := r.Extract(ctx, kind, data)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// KindFromFilename returns the lowercase extension of name without the dot.
func KindFromFilename(name string) string {
	return normalizeKind(filepath.Ext(name))
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(kind), "."))
}

func extractText(_ context.Context, data []byte) (Document, error) {
	return Document{Text: string(data)}, nil
}
