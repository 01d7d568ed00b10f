// Package extract turns files on disk into page-level text.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"esgalign/internal/domain"
)

// Router dispatches to an extractor by file extension.
type Router struct {
	byExt    map[string]domain.Extractor
	fallback domain.Extractor
}

// NewRouter returns a router that reads .txt and .md files itself and hands
// everything else to fallback. A nil fallback rejects other types with
// domain.ErrUnsupportedDocument.
func NewRouter(fallback domain.Extractor) *Router {
	plain := NewPlainText()
	return &Router{
		byExt: map[string]domain.Extractor{
			".txt":  plain,
			".text": plain,
			".md":   plain,
		},
		fallback: fallback,
	}
}

// Register routes ext (with leading dot) to e.
func (r *Router) Register(ext string, e domain.Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

func (r *Router) Extract(ctx context.Context, path string) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if e, ok := r.byExt[ext]; ok {
		return e.Extract(ctx, path)
	}
	if r.fallback == nil {
		return domain.Document{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedDocument, ext)
	}
	return r.fallback.Extract(ctx, path)
}
