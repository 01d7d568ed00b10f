package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"esgalign/internal/domain"
)

// PlainText reads UTF-8 text files. Form feeds separate pages.
type PlainText struct{}

func NewPlainText() *PlainText { return &PlainText{} }

func (PlainText) Extract(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: read %q: %w", path, err)
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%w: %q is not UTF-8 text", domain.ErrUnsupportedDocument, path)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return domain.Document{
		ID:    filepath.Base(path),
		Path:  path,
		Pages: strings.Split(text, "\f"),
	}, nil
}
