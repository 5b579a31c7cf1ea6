// Package drive provides a content source backed by a Google Drive
// folder. The folder is enumerated recursively; Google Workspace files
// are exported to text and regular text files are downloaded as-is.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gdrive "google.golang.org/api/drive/v3"

	"github.com/custodia-labs/vecsync/internal/connectors/google"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ContentSource = (*Source)(nil)

// Google Workspace MIME types that can be exported.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxFetchSize is the maximum size for downloaded or exported content (5MB).
const MaxFetchSize = 5 * 1024 * 1024

// listPageSize is the page size for files.list requests.
const listPageSize = 100

// Config holds Google Drive source configuration.
type Config struct {
	// FolderID is the Drive folder to enumerate recursively.
	FolderID string
	// CredentialsPath points at the OAuth client credentials JSON.
	CredentialsPath string
	// TokenPath is where the refreshed OAuth token is persisted.
	TokenPath string
}

// Source enumerates documents in a Google Drive folder tree.
type Source struct {
	svc      *gdrive.Service
	folderID string
	limiter  *google.RateLimiter
}

// New creates a Drive source. Authentication failures surface as
// domain.ErrSourceUnavailable so a cycle aborts cleanly.
func New(ctx context.Context, cfg Config) (*Source, error) {
	ts, err := google.TokenSourceFromFiles(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: googledrive auth: %v", domain.ErrSourceUnavailable, err)
	}

	svc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: googledrive client: %v", domain.ErrSourceUnavailable, err)
	}

	return &Source{
		svc:      svc,
		folderID: cfg.FolderID,
		limiter:  google.NewRateLimiter(),
	}, nil
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "googledrive"
}

// folder is one directory in the breadth-first traversal.
type folder struct {
	id   string
	path string
}

// ListDocuments walks the folder tree breadth-first and returns every
// text document with its content. Fetching one file's content failing
// sets that document's ReadErr; listing a folder failing aborts the
// cycle because the corpus would otherwise look truncated.
func (s *Source) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo

	queue := []folder{{id: s.folderID, path: ""}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		files, err := s.listFolder(ctx, current.id)
		if err != nil {
			return nil, fmt.Errorf("%w: listing folder %s: %v",
				domain.ErrSourceUnavailable, current.id, google.WrapError(err))
		}

		for _, file := range files {
			if file.MimeType == MimeTypeFolder {
				queue = append(queue, folder{
					id:   file.Id,
					path: joinPath(current.path, file.Name),
				})
				continue
			}
			if !isFetchable(file) {
				continue
			}
			docs = append(docs, s.buildDocument(ctx, file, current.path))
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// listFolder returns all direct children of a folder.
func (s *Source) listFolder(ctx context.Context, folderID string) ([]*gdrive.File, error) {
	var files []*gdrive.File

	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			PageSize(listPageSize).
			Fields("nextPageToken, files(id, name, mimeType, size, modifiedTime, webViewLink)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if google.IsRateLimited(err) {
				s.limiter.RecordRateLimitError(0)
			}
			return nil, err
		}

		files = append(files, resp.Files...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

// buildDocument fetches a file's content and assembles its DocumentInfo.
func (s *Source) buildDocument(ctx context.Context, file *gdrive.File, folderPath string) domain.DocumentInfo {
	doc := domain.DocumentInfo{
		ID:            file.Id,
		Title:         file.Name,
		FolderPath:    folderPath,
		SourceVersion: file.ModifiedTime,
		Metadata: map[string]any{
			"mime_type": file.MimeType,
			"web_link":  file.WebViewLink,
			"size":      file.Size,
		},
	}

	content, err := s.fetchContent(ctx, file)
	if err != nil {
		if errors.Is(err, domain.ErrContentTooLarge) {
			doc.ReadErr = err
		} else {
			doc.ReadErr = fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, google.WrapError(err))
		}
		return doc
	}
	doc.Content = content
	return doc
}

// fetchContent retrieves the text content of a file, exporting Google
// Workspace formats and downloading the rest.
func (s *Source) fetchContent(ctx context.Context, file *gdrive.File) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	switch file.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return s.export(ctx, file.Id, ExportMimeText)
	case MimeTypeGoogleSheet:
		return s.export(ctx, file.Id, ExportMimeCSV)
	}

	resp, err := s.svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		if google.IsRateLimited(err) {
			s.limiter.RecordRateLimitError(0)
		}
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	return readBounded(resp.Body, "file "+file.Id)
}

// export converts a Google Workspace file to the given format.
func (s *Source) export(ctx context.Context, fileID, exportMime string) (string, error) {
	resp, err := s.svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		if google.IsRateLimited(err) {
			s.limiter.RecordRateLimitError(0)
		}
		return "", fmt.Errorf("export file: %w", err)
	}
	defer resp.Body.Close()

	return readBounded(resp.Body, "export of "+fileID)
}

// readBounded reads at most MaxFetchSize bytes. Anything past the
// limit means the content would be indexed truncated, so the read
// fails instead. Exports have no size field to pre-check.
func readBounded(r io.Reader, what string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFetchSize+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if len(data) > MaxFetchSize {
		return "", fmt.Errorf("%w: %s larger than %d bytes",
			domain.ErrContentTooLarge, what, MaxFetchSize)
	}
	return string(data), nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// isFetchable reports whether a file's content can be represented as text.
func isFetchable(file *gdrive.File) bool {
	switch file.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSheet, MimeTypeGoogleSlides:
		return true
	}
	if file.Size > MaxFetchSize {
		return false
	}
	return isTextMime(file.MimeType)
}

// isTextMime checks if a MIME type is likely text content.
func isTextMime(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}

	textTypes := []string{
		"application/json",
		"application/xml",
		"application/javascript",
		"application/x-yaml",
		"application/x-sh",
		"application/sql",
	}
	for _, t := range textTypes {
		if mimeType == t {
			return true
		}
	}
	return false
}

// joinPath appends a folder name to a slash-separated path.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
