// Package pdfutil downloads papers and extracts their plain text.
package pdfutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const DefaultMaxPages = 40

type Downloader struct {
	dir    string
	client *http.Client
}

func NewDownloader(dir string, timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if dir == "" {
		dir = "pdfs"
	}
	return &Downloader{dir: dir, client: &http.Client{Timeout: timeout}}
}

// LooksLikePDF reports whether a link probably points at a PDF.
func LooksLikePDF(link string) bool {
	return strings.Contains(strings.ToLower(link), "pdf")
}

// FileName derives the cache file name from the last path segment of link.
func FileName(link string) string {
	name := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	} else {
		if i := strings.IndexByte(name, '?'); i >= 0 {
			name = name[:i]
		}
		name = path.Base(name)
	}
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	return name
}

// Download stores link under the downloader's directory and returns the
// local path. A file that is already present is not fetched again.
func (d *Downloader) Download(ctx context.Context, link string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(d.dir, FileName(link))
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download pdf: unexpected status %s", resp.Status)
	}
	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", err
	}
	return out, nil
}

// ExtractText returns the text of the first maxPages pages joined by blank
// lines. maxPages <= 0 reads every page. Pages that fail to decode are
// skipped.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n := pageLimit(reader.NumPage(), maxPages)
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func pageLimit(total, max int) int {
	if max <= 0 || max > total {
		return total
	}
	return max
}
