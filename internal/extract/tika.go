package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"esgalign/internal/domain"
)

// Tika extracts text through an Apache Tika server. Tika's HTML output
// wraps each PDF page in <div class="page">, which gives page boundaries.
type Tika struct {
	serverURL string
	client    *http.Client
}

// NewTika returns a client for the server at serverURL.
func NewTika(serverURL string, timeout time.Duration) *Tika {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Tika{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (t *Tika) Extract(ctx context.Context, path string) (domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: open %q: %w", path, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.serverURL+"/tika", f)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: build tika request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Content-Type", detectMimeType(path))

	resp, err := t.client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: call tika: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnsupportedMediaType || resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.Document{}, fmt.Errorf("%w: tika rejected %q (%d)", domain.ErrUnsupportedDocument, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Document{}, fmt.Errorf("extract: tika returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	pages, err := parsePages(resp.Body)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: parse tika output: %w", err)
	}
	return domain.Document{ID: filepath.Base(path), Path: path, Pages: pages}, nil
}

// parsePages returns the text of every <div class="page">, or the whole
// body as a single page when there are none.
func parsePages(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var pages []string
	var body *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "body" {
				body = n
			}
			if n.Data == "div" && hasClass(n, "page") {
				pages = append(pages, textOf(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if len(pages) == 0 && body != nil {
		pages = []string{textOf(body)}
	}
	return pages, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// textOf concatenates the text below n, breaking lines after block elements.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				b.WriteByte('\n')
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func detectMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
