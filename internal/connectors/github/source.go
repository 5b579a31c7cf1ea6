// Package github provides a content source backed by a GitHub
// repository's documentation files. The repository tree is listed once
// per cycle and markdown and plain-text blobs are fetched individually.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ContentSource = (*Source)(nil)

// DefaultTimeout is the HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// MaxBlobSize is the largest blob fetched (1MB). Documentation files
// above this are skipped.
const MaxBlobSize = 1024 * 1024

// textExtensions are the file extensions treated as documentation.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
	".txt":      true,
	".rst":      true,
	".adoc":     true,
}

// Config holds GitHub source configuration.
type Config struct {
	Owner string
	Repo  string

	// Ref is the branch or tag to read; empty means the default branch.
	Ref string

	// Token is a PAT for private repositories; empty works for public ones.
	Token string
}

// Source enumerates documentation files in one GitHub repository.
type Source struct {
	gh      *gh.Client
	cfg     Config
	limiter *throttle
}

// New creates a GitHub source.
func New(cfg Config) *Source {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = DefaultTimeout
	}

	return &Source{
		gh:      gh.NewClient(httpClient),
		cfg:     cfg,
		limiter: newThrottle(),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "github"
}

// ListDocuments lists the repository tree at the configured ref and
// fetches every documentation blob. A blob fetch failing sets that
// document's ReadErr; the tree listing failing aborts the cycle.
func (s *Source) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	ref := s.cfg.Ref
	if ref == "" {
		var err error
		ref, err = s.defaultBranch(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: github repo %s/%s: %v",
				domain.ErrSourceUnavailable, s.cfg.Owner, s.cfg.Repo, err)
		}
	}

	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}
	tree, resp, err := s.gh.Git.GetTree(ctx, s.cfg.Owner, s.cfg.Repo, ref, true)
	if resp != nil {
		s.limiter.observe(resp.Response)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: github tree %s/%s@%s: %v",
			domain.ErrSourceUnavailable, s.cfg.Owner, s.cfg.Repo, ref, err)
	}

	var docs []domain.DocumentInfo
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		filePath := entry.GetPath()
		if !textExtensions[strings.ToLower(path.Ext(filePath))] {
			continue
		}
		if entry.GetSize() > MaxBlobSize {
			continue
		}

		doc := domain.DocumentInfo{
			ID:            filePath,
			Title:         path.Base(filePath),
			FolderPath:    folderOf(filePath),
			SourceVersion: entry.GetSHA(),
			Metadata: map[string]any{
				"sha":  entry.GetSHA(),
				"size": entry.GetSize(),
				"html_url": fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s",
					s.cfg.Owner, s.cfg.Repo, ref, filePath),
			},
		}

		content, err := s.fetchBlob(ctx, entry.GetSHA())
		if err != nil {
			doc.ReadErr = fmt.Errorf("%w: blob %s: %v", domain.ErrDocumentUnreadable, entry.GetSHA(), err)
		} else {
			doc.Content = content
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// defaultBranch resolves the repository's default branch.
func (s *Source) defaultBranch(ctx context.Context) (string, error) {
	if err := s.limiter.wait(ctx); err != nil {
		return "", err
	}
	repo, resp, err := s.gh.Repositories.Get(ctx, s.cfg.Owner, s.cfg.Repo)
	if resp != nil {
		s.limiter.observe(resp.Response)
	}
	if err != nil {
		return "", err
	}
	return repo.GetDefaultBranch(), nil
}

// fetchBlob retrieves and decodes one blob's content.
func (s *Source) fetchBlob(ctx context.Context, sha string) (string, error) {
	if err := s.limiter.wait(ctx); err != nil {
		return "", err
	}
	blob, resp, err := s.gh.Git.GetBlob(ctx, s.cfg.Owner, s.cfg.Repo, sha)
	if resp != nil {
		s.limiter.observe(resp.Response)
	}
	if err != nil {
		return "", err
	}

	if blob.GetEncoding() == "base64" {
		raw := strings.ReplaceAll(blob.GetContent(), "\n", "")
		decoded, derr := base64.StdEncoding.DecodeString(raw)
		if derr != nil {
			return "", fmt.Errorf("decode blob: %w", derr)
		}
		return string(decoded), nil
	}
	return blob.GetContent(), nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// folderOf returns the directory part of a repository path, or "" for
// files at the repository root.
func folderOf(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." {
		return ""
	}
	return dir
}
