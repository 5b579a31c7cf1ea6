package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService creates a Google Drive API service using the provided
// TokenSource.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// TokenSourceFromFiles builds an oauth2.TokenSource from an OAuth client
// credentials JSON file and a previously persisted token file. Refreshed
// tokens are written back to tokenPath so the next run does not repeat
// the consent flow.
func TokenSourceFromFiles(ctx context.Context, credentialsPath, tokenPath string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := goauth.ConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	return &persistingTokenSource{
		source: cfg.TokenSource(ctx, token),
		path:   tokenPath,
		last:   token,
	}, nil
}

// LoadToken reads a persisted OAuth token from path.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &token, nil
}

// SaveToken persists an OAuth token to path with restricted permissions.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("serialise token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// persistingTokenSource writes refreshed tokens back to disk.
type persistingTokenSource struct {
	source oauth2.TokenSource
	path   string
	last   *oauth2.Token
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, err
	}
	if p.last == nil || token.AccessToken != p.last.AccessToken {
		p.last = token
		// Persisting is best effort; a failure only costs a refresh
		// on the next run.
		_ = SaveToken(p.path, token)
	}
	return token, nil
}
