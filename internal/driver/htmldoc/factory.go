// internal/driver/htmldoc/factory.go
package htmldoc

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/driver"
)

// DirLoader serves flows saved on disk. The URL path selects either a
// directory under root whose *.html files, in name order, form the flow, or
// a single <path>.html document. The root URL maps to "index".
func DirLoader(root string) Loader {
	return func(rawURL string) ([]Page, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
		}
		rel := strings.Trim(u.Path, "/")
		if rel == "" {
			rel = "index"
		}
		target := filepath.Join(root, filepath.FromSlash(rel))

		if info, err := os.Stat(target); err == nil && info.IsDir() {
			files, err := filepath.Glob(filepath.Join(target, "*.html"))
			if err != nil {
				return nil, err
			}
			sort.Strings(files)
			if len(files) == 0 {
				return nil, fmt.Errorf("no documents in %s", target)
			}
			pages := make([]Page, 0, len(files))
			for _, f := range files {
				p, err := readPage(f)
				if err != nil {
					return nil, err
				}
				pages = append(pages, p)
			}
			return pages, nil
		}

		p, err := readPage(target + ".html")
		if err != nil {
			return nil, err
		}
		return []Page{p}, nil
	}
}

func readPage(path string) (Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Page{}, fmt.Errorf("could not read document: %w", err)
	}
	return Page{Name: filepath.Base(path), HTML: string(data)}, nil
}

// Factory opens htmldoc sessions sharing one loader and remembers them so
// callers can inspect them afterwards.
type Factory struct {
	loader Loader
	logger *zap.Logger

	mu       sync.Mutex
	sessions []*Driver
}

var _ driver.Factory = (*Factory)(nil)

func NewFactory(loader Loader, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{loader: loader, logger: logger}
}

func (f *Factory) Open(ctx context.Context) (driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := New(f.loader, f.logger)
	f.mu.Lock()
	f.sessions = append(f.sessions, d)
	f.mu.Unlock()
	return d, nil
}

func (f *Factory) Name() string { return "htmldoc" }

// Sessions returns every session opened so far.
func (f *Factory) Sessions() []*Driver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Driver(nil), f.sessions...)
}
