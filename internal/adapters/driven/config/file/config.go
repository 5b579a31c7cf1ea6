package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Default configuration values.
const (
	DefaultWorkers          = 4
	DefaultMaxDocumentBytes = 10 * 1024 * 1024 // 10MB
	DefaultCycleTimeout     = 10 * time.Minute
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultSearchTopK       = 5
)

// Source type identifiers accepted in [source] type.
const (
	SourceFilesystem  = "filesystem"
	SourceGoogleDrive = "googledrive"
	SourceSharePoint  = "sharepoint"
	SourceNotion      = "notion"
	SourceGitHub      = "github"
)

// Embedding provider identifiers accepted in [embedding] provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Duration is a time.Duration that unmarshals from TOML strings
// like "10m" or "1h30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the immutable application configuration, constructed once
// at process start and passed by reference into the synchronizer and
// its collaborators.
type Config struct {
	Sync      SyncConfig      `toml:"sync"`
	Source    SourceConfig    `toml:"source"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Chunking  ChunkingConfig  `toml:"chunking"`
}

// SyncConfig controls the sync cycle.
type SyncConfig struct {
	// StatePath is the sync state file location. The cycle lock lives
	// at StatePath + ".lock".
	StatePath string `toml:"state_path"`

	// Workers bounds the apply worker pool.
	Workers int `toml:"workers"`

	// MaxDocumentBytes bounds individual document size; larger
	// documents are rejected, never truncated.
	MaxDocumentBytes int `toml:"max_document_bytes"`

	// CycleTimeout bounds one sync cycle. Zero disables the bound.
	CycleTimeout Duration `toml:"cycle_timeout"`

	// LockStaleAfter is how old an abandoned lock file must be
	// before a new cycle takes it over. Zero selects the default.
	LockStaleAfter Duration `toml:"lock_stale_after"`
}

// SourceConfig selects and configures the content source.
type SourceConfig struct {
	Type        string            `toml:"type"`
	Filesystem  FilesystemSource  `toml:"filesystem"`
	GoogleDrive GoogleDriveSource `toml:"googledrive"`
	SharePoint  SharePointSource  `toml:"sharepoint"`
	Notion      NotionSource      `toml:"notion"`
	GitHub      GitHubSource      `toml:"github"`
}

// FilesystemSource configures the local directory source.
type FilesystemSource struct {
	// Root is the directory to enumerate.
	Root string `toml:"root"`

	// Extensions limits the files listed; empty means the defaults
	// (.txt, .md, .markdown).
	Extensions []string `toml:"extensions"`
}

// GoogleDriveSource configures the Google Drive source.
type GoogleDriveSource struct {
	// FolderID is the Drive folder to enumerate recursively.
	FolderID string `toml:"folder_id"`

	// CredentialsPath points at the OAuth client credentials JSON.
	CredentialsPath string `toml:"credentials_path"`

	// TokenPath is where the refreshed OAuth token is persisted.
	TokenPath string `toml:"token_path"`
}

// SharePointSource configures the SharePoint (Microsoft Graph) source.
type SharePointSource struct {
	SiteID       string `toml:"site_id"`
	FolderPath   string `toml:"folder_path"`
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// NotionSource configures the Notion document-library source.
type NotionSource struct {
	// Token is the integration token. Falls back to NOTION_TOKEN.
	Token string `toml:"token"`

	// DatabaseID is the database whose pages form the corpus.
	DatabaseID string `toml:"database_id"`
}

// GitHubSource configures the GitHub repository source.
type GitHubSource struct {
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`

	// Ref is the branch or tag to read; empty means the default branch.
	Ref string `toml:"ref"`

	// Token is a PAT for private repos. Falls back to GITHUB_TOKEN.
	Token string `toml:"token"`
}

// IndexConfig configures the index backend.
type IndexConfig struct {
	// Path is the SQLite database location.
	Path string `toml:"path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai", "ollama" or "none".
	Provider string `toml:"provider"`

	// APIKey authenticates against the provider. For OpenAI it falls
	// back to the OPENAI_API_KEY environment variable.
	APIKey string `toml:"api_key"`

	// Model overrides the provider's default embedding model.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint (Azure, local gateways).
	BaseURL string `toml:"base_url"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// DefaultConfigPath returns ~/.vecsync/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vecsync", "config.toml"), nil
}

// Load reads, defaults and validates the configuration at path.
// A missing file yields the defaults, so a filesystem source can run
// with nothing but flags.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if uerr := toml.Unmarshal(data, cfg); uerr != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, path, uerr)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset values.
func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".vecsync")

	if c.Sync.StatePath == "" {
		c.Sync.StatePath = filepath.Join(dataDir, "sync-state.json")
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = DefaultWorkers
	}
	if c.Sync.MaxDocumentBytes == 0 {
		c.Sync.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if c.Sync.CycleTimeout == 0 {
		c.Sync.CycleTimeout = Duration(DefaultCycleTimeout)
	}
	if c.Source.Type == "" {
		c.Source.Type = SourceFilesystem
	}
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(dataDir, "index.db")
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderNone
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Source.Notion.Token == "" {
		c.Source.Notion.Token = os.Getenv("NOTION_TOKEN")
	}
	if c.Source.GitHub.Token == "" {
		c.Source.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = DefaultChunkSize
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = DefaultChunkOverlap
	}
}

// Validate rejects invalid configuration at construction.
func (c *Config) Validate() error {
	if c.Sync.Workers < 1 {
		return fmt.Errorf("%w: sync.workers must be positive, got %d", domain.ErrInvalidConfig, c.Sync.Workers)
	}
	if c.Sync.MaxDocumentBytes < 1 {
		return fmt.Errorf("%w: sync.max_document_bytes must be positive, got %d", domain.ErrInvalidConfig, c.Sync.MaxDocumentBytes)
	}
	if c.Sync.CycleTimeout < 0 {
		return fmt.Errorf("%w: sync.cycle_timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.Chunking.Size < 1 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", domain.ErrInvalidConfig, c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunking.overlap must not be negative", domain.ErrInvalidConfig)
	}

	switch c.Source.Type {
	case SourceFilesystem:
		if c.Source.Filesystem.Root == "" {
			return fmt.Errorf("%w: source.filesystem.root is required", domain.ErrInvalidConfig)
		}
	case SourceGoogleDrive:
		if c.Source.GoogleDrive.FolderID == "" {
			return fmt.Errorf("%w: source.googledrive.folder_id is required", domain.ErrInvalidConfig)
		}
		if c.Source.GoogleDrive.CredentialsPath == "" {
			return fmt.Errorf("%w: source.googledrive.credentials_path is required", domain.ErrInvalidConfig)
		}
	case SourceSharePoint:
		sp := c.Source.SharePoint
		if sp.SiteID == "" || sp.TenantID == "" || sp.ClientID == "" || sp.ClientSecret == "" {
			return fmt.Errorf("%w: source.sharepoint requires site_id, tenant_id, client_id and client_secret", domain.ErrInvalidConfig)
		}
	case SourceNotion:
		if c.Source.Notion.Token == "" || c.Source.Notion.DatabaseID == "" {
			return fmt.Errorf("%w: source.notion requires token and database_id", domain.ErrInvalidConfig)
		}
	case SourceGitHub:
		if c.Source.GitHub.Owner == "" || c.Source.GitHub.Repo == "" {
			return fmt.Errorf("%w: source.github requires owner and repo", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, c.Source.Type)
	}

	switch c.Embedding.Provider {
	case ProviderNone, ProviderOllama:
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("%w: embedding.api_key (or OPENAI_API_KEY) is required for openai", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, c.Embedding.Provider)
	}

	return nil
}

// SetAPIKey persists the embedding API key into the config file at
// path, creating it if needed. Other keys are preserved.
func SetAPIKey(path, key string) error {
	raw := map[string]any{}
	data, err := os.ReadFile(path)
	if err == nil {
		if uerr := toml.Unmarshal(data, &raw); uerr != nil {
			return fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, path, uerr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	section, _ := raw["embedding"].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	section["api_key"] = key
	raw["embedding"] = section

	out, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// Restricted permissions: the file holds credentials.
	return os.WriteFile(path, out, 0o600)
}
