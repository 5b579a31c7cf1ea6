// Package filesystem provides a content source backed by a local
// directory tree. Document IDs are slash-separated paths relative to
// the root, so the same corpus produces the same IDs on every platform.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Source implements the interfaces.
var (
	_ driven.ContentSource   = (*Source)(nil)
	_ driven.WatchableSource = (*Source)(nil)
)

// DefaultExtensions are the file extensions listed when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".markdown"}

// Source enumerates text documents under a root directory.
type Source struct {
	root       string
	extensions map[string]bool
}

// New creates a filesystem source rooted at root. The root must exist
// and be a directory.
func New(root string, extensions []string) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, root)
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = true
	}

	return &Source{root: root, extensions: extSet}, nil
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "filesystem"
}

// ListDocuments walks the root and returns every matching file with its
// content. A file that disappears or cannot be read mid-walk is
// reported on its ReadErr field rather than aborting the listing.
func (s *Source) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// The root itself failing is a source failure; a subtree
			// failing is skipped like an unreadable document.
			if path == s.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			// Hidden directories are never part of the corpus.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		id := filepath.ToSlash(rel)

		doc := domain.DocumentInfo{
			ID:         id,
			Title:      d.Name(),
			FolderPath: folderOf(id),
			Metadata: map[string]any{
				"extension": filepath.Ext(path),
			},
		}

		if info, ierr := d.Info(); ierr == nil {
			doc.SourceVersion = info.ModTime().UTC().Format("2006-01-02T15:04:05.000000000Z")
			doc.Metadata["size"] = info.Size()
		}

		content, rerr := os.ReadFile(path)
		if rerr != nil {
			doc.ReadErr = fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, rerr)
		} else {
			doc.Content = string(content)
		}

		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: walking %s: %v", domain.ErrSourceUnavailable, s.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Watch emits a notification whenever anything under the root changes.
// Events are collapsed; the consumer re-lists the corpus rather than
// interpreting individual events.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: creating watcher: %v", domain.ErrSourceUnavailable, err)
	}

	// Watch the whole tree; fsnotify does not recurse on its own.
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", domain.ErrSourceUnavailable, s.root, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// New directories need to join the watch set.
				if event.Op.Has(fsnotify.Create) {
					if info, serr := os.Stat(event.Name); serr == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// folderOf returns the directory part of a slash-separated document ID,
// or "" for files directly under the root.
func folderOf(id string) string {
	idx := strings.LastIndex(id, "/")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}
