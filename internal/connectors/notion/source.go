// Package notion provides a content source backed by a Notion database.
// Each page in the database is one document; page content is assembled
// from the page's top-level blocks.
package notion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ContentSource = (*Source)(nil)

// queryPageSize is the page size for database queries and block listings.
const queryPageSize = 100

// Config holds Notion source configuration.
type Config struct {
	// Token is the integration token.
	Token string
	// DatabaseID is the database whose pages form the corpus.
	DatabaseID string
}

// Source enumerates pages of one Notion database.
type Source struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

// New creates a Notion source.
func New(cfg Config) *Source {
	return &Source{
		client:     notionapi.NewClient(notionapi.Token(cfg.Token)),
		databaseID: notionapi.DatabaseID(cfg.DatabaseID),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "notion"
}

// ListDocuments queries the database and fetches every page's block
// content. Fetching one page's blocks failing sets that document's
// ReadErr; the database query failing aborts the cycle.
func (s *Source) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo

	req := &notionapi.DatabaseQueryRequest{PageSize: queryPageSize}
	for {
		resp, err := s.client.Database.Query(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("%w: notion database %s: %v",
				domain.ErrSourceUnavailable, s.databaseID, err)
		}

		for i := range resp.Results {
			docs = append(docs, s.buildDocument(ctx, &resp.Results[i]))
		}

		if !resp.HasMore {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// buildDocument assembles one page's DocumentInfo.
func (s *Source) buildDocument(ctx context.Context, page *notionapi.Page) domain.DocumentInfo {
	doc := domain.DocumentInfo{
		ID:            page.ID.String(),
		Title:         pageTitle(page),
		SourceVersion: page.LastEditedTime.UTC().Format("2006-01-02T15:04:05.000Z"),
		Metadata: map[string]any{
			"url": page.URL,
		},
	}

	content, err := s.fetchContent(ctx, page.ID.String())
	if err != nil {
		doc.ReadErr = fmt.Errorf("%w: page %s: %v", domain.ErrDocumentUnreadable, page.ID, err)
		return doc
	}
	doc.Content = content
	return doc
}

// fetchContent concatenates the text of a page's top-level blocks.
func (s *Source) fetchContent(ctx context.Context, pageID string) (string, error) {
	var parts []string

	pagination := &notionapi.Pagination{PageSize: queryPageSize}
	for {
		resp, err := s.client.Block.GetChildren(ctx, notionapi.BlockID(pageID), pagination)
		if err != nil {
			return "", err
		}

		for _, block := range resp.Results {
			if text := blockText(block); text != "" {
				parts = append(parts, text)
			}
		}

		if !resp.HasMore {
			return strings.Join(parts, "\n\n"), nil
		}
		pagination.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
}

// pageTitle extracts the title property of a page.
func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return richText(title.Title)
		}
	}
	return ""
}

// blockText extracts plain text from the block types that carry prose.
func blockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return richText(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		return richText(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		return richText(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		return richText(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		return richText(b.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		return richText(b.ToDo.RichText)
	case *notionapi.QuoteBlock:
		return richText(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		return richText(b.Callout.RichText)
	case *notionapi.CodeBlock:
		return richText(b.Code.RichText)
	default:
		return ""
	}
}

// richText joins the plain text of a rich text run.
func richText(runs []notionapi.RichText) string {
	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.PlainText)
	}
	return sb.String()
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}
