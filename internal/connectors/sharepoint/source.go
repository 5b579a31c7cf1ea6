// Package sharepoint provides a content source backed by a SharePoint
// document library, accessed through the Microsoft Graph API with
// client-credential (app-only) authentication.
package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ContentSource = (*Source)(nil)

// DefaultBaseURL is the Microsoft Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// DefaultTimeout is the HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// MaxFetchSize is the maximum size for downloaded content (5MB).
const MaxFetchSize = 5 * 1024 * 1024

// textExtensions are the file extensions treated as documents.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".csv":      true,
	".html":     true,
}

// Config holds SharePoint source configuration.
type Config struct {
	// SiteID identifies the SharePoint site.
	SiteID string
	// FolderPath is the library folder to enumerate; empty means the root.
	FolderPath string
	// TenantID, ClientID and ClientSecret are the Azure AD app
	// registration used for app-only authentication.
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Source enumerates documents in one SharePoint document library.
type Source struct {
	client  *http.Client
	baseURL string
	siteID  string
	folder  string
}

// New creates a SharePoint source. The token endpoint is not contacted
// until the first request.
func New(ctx context.Context, cfg Config) *Source {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	client := creds.Client(ctx)
	client.Timeout = DefaultTimeout

	return &Source{
		client:  client,
		baseURL: DefaultBaseURL,
		siteID:  cfg.SiteID,
		folder:  strings.Trim(cfg.FolderPath, "/"),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "sharepoint"
}

// driveItem is the subset of the Graph driveItem resource we read.
type driveItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Size                 int64  `json:"size"`
	WebURL               string `json:"webUrl"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

// childrenResponse is a page of a children listing.
type childrenResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ListDocuments walks the library folder tree and returns every text
// document with its content. Downloading one file failing sets that
// document's ReadErr; a folder listing failing aborts the cycle.
func (s *Source) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo

	type folder struct{ itemPath, relPath string }
	queue := []folder{{itemPath: s.folder, relPath: ""}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		items, err := s.listChildren(ctx, current.itemPath)
		if err != nil {
			return nil, fmt.Errorf("%w: sharepoint folder %q: %v",
				domain.ErrSourceUnavailable, current.itemPath, err)
		}

		for _, item := range items {
			if item.Folder != nil {
				queue = append(queue, folder{
					itemPath: joinPath(current.itemPath, item.Name),
					relPath:  joinPath(current.relPath, item.Name),
				})
				continue
			}
			if !isDocument(item) {
				continue
			}
			docs = append(docs, s.buildDocument(ctx, item, current.relPath))
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// listChildren returns all direct children of a library folder,
// following @odata.nextLink pagination.
func (s *Source) listChildren(ctx context.Context, folderPath string) ([]driveItem, error) {
	next := s.childrenURL(folderPath)

	var items []driveItem
	for next != "" {
		var page childrenResponse
		if err := s.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

// childrenURL builds the children listing URL for a folder path.
func (s *Source) childrenURL(folderPath string) string {
	if folderPath == "" {
		return fmt.Sprintf("%s/sites/%s/drive/root/children", s.baseURL, s.siteID)
	}
	escaped := url.PathEscape(folderPath)
	return fmt.Sprintf("%s/sites/%s/drive/root:/%s:/children", s.baseURL, s.siteID, escaped)
}

// buildDocument downloads a file and assembles its DocumentInfo.
func (s *Source) buildDocument(ctx context.Context, item driveItem, folderPath string) domain.DocumentInfo {
	doc := domain.DocumentInfo{
		ID:            item.ID,
		Title:         item.Name,
		FolderPath:    folderPath,
		SourceVersion: item.LastModifiedDateTime,
		Metadata: map[string]any{
			"web_url": item.WebURL,
			"size":    item.Size,
		},
	}
	if item.File != nil {
		doc.Metadata["mime_type"] = item.File.MimeType
	}

	content, err := s.download(ctx, item.ID)
	if err != nil {
		if errors.Is(err, domain.ErrContentTooLarge) {
			doc.ReadErr = err
		} else {
			doc.ReadErr = fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
		}
		return doc
	}
	doc.Content = content
	return doc
}

// download fetches a drive item's content.
func (s *Source) download(ctx context.Context, itemID string) (string, error) {
	u := fmt.Sprintf("%s/sites/%s/drive/items/%s/content", s.baseURL, s.siteID, itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: graph status %d", resp.StatusCode)
	}

	// Read one byte past the limit so oversize bodies are detected
	// instead of silently truncated. The listed size can understate
	// the actual body.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchSize+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if len(data) > MaxFetchSize {
		return "", fmt.Errorf("%w: item %s larger than %d bytes",
			domain.ErrContentTooLarge, itemID, MaxFetchSize)
	}
	return string(data), nil
}

// getJSON performs a GET and decodes the JSON response.
func (s *Source) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// isDocument reports whether a drive item should be part of the corpus.
func isDocument(item driveItem) bool {
	if item.File == nil || item.Size > MaxFetchSize {
		return false
	}
	if textExtensions[strings.ToLower(path.Ext(item.Name))] {
		return true
	}
	return item.File.MimeType != "" && strings.HasPrefix(item.File.MimeType, "text/")
}

// joinPath appends a name to a slash-separated path.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
