package connectors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vecsync/internal/connectors/filesystem"
	"github.com/custodia-labs/vecsync/internal/connectors/github"
	"github.com/custodia-labs/vecsync/internal/connectors/google/drive"
	"github.com/custodia-labs/vecsync/internal/connectors/notion"
	"github.com/custodia-labs/vecsync/internal/connectors/sharepoint"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Build constructs the content source selected by cfg. Unknown source
// types are rejected at config load, so reaching the default branch
// here means the config and factory disagree.
func Build(ctx context.Context, cfg *file.Config) (driven.ContentSource, error) {
	switch cfg.Source.Type {
	case file.SourceFilesystem:
		return filesystem.New(cfg.Source.Filesystem.Root, cfg.Source.Filesystem.Extensions)

	case file.SourceGoogleDrive:
		return drive.New(ctx, drive.Config{
			FolderID:        cfg.Source.GoogleDrive.FolderID,
			CredentialsPath: cfg.Source.GoogleDrive.CredentialsPath,
			TokenPath:       cfg.Source.GoogleDrive.TokenPath,
		})

	case file.SourceSharePoint:
		return sharepoint.New(ctx, sharepoint.Config{
			SiteID:       cfg.Source.SharePoint.SiteID,
			FolderPath:   cfg.Source.SharePoint.FolderPath,
			TenantID:     cfg.Source.SharePoint.TenantID,
			ClientID:     cfg.Source.SharePoint.ClientID,
			ClientSecret: cfg.Source.SharePoint.ClientSecret,
		}), nil

	case file.SourceNotion:
		return notion.New(notion.Config{
			Token:      cfg.Source.Notion.Token,
			DatabaseID: cfg.Source.Notion.DatabaseID,
		}), nil

	case file.SourceGitHub:
		return github.New(github.Config{
			Owner: cfg.Source.GitHub.Owner,
			Repo:  cfg.Source.GitHub.Repo,
			Ref:   cfg.Source.GitHub.Ref,
			Token: cfg.Source.GitHub.Token,
		}), nil

	default:
		return nil, fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, cfg.Source.Type)
	}
}
