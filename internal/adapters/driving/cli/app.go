package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cfgfile "github.com/custodia-labs/vecsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/index/sqlite"
	statefile "github.com/custodia-labs/vecsync/internal/adapters/driven/statestore/file"
	"github.com/custodia-labs/vecsync/internal/connectors"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/services"
	"github.com/custodia-labs/vecsync/internal/postprocessors/chunker"
)

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg      *cfgfile.Config
	source   driven.ContentSource
	index    driven.IndexBackend
	embedder driven.EmbeddingService
	sync     *services.Synchronizer
}

// newApp wires a full synchronizer from config. withSource controls
// whether the content source is built; status and search do not need one.
func newApp(ctx context.Context, cfg *cfgfile.Config, withSource bool) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Sync.StatePath), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	index, err := sqlite.New(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	a := &app{cfg: cfg, index: index}

	a.embedder, err = buildEmbedder(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if !withSource {
		return a, nil
	}

	a.source, err = connectors.Build(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := statefile.NewStore(cfg.Sync.StatePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	lock := statefile.NewLock(statefile.LockPath(cfg.Sync.StatePath), cfg.Sync.LockStaleAfter.Std())

	split := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)
	hasher := services.NewContentHasher(cfg.Sync.MaxDocumentBytes)

	a.sync = services.NewSynchronizer(
		a.source, a.index, store, lock, split, a.embedder, hasher, cfg.Sync.Workers,
	)
	return a, nil
}

// buildEmbedder constructs the configured embedding service.
// Provider "none" yields nil; chunks are then indexed without vectors.
func buildEmbedder(cfg *cfgfile.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case cfgfile.ProviderNone:
		return nil, nil
	case cfgfile.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
	case cfgfile.ProviderOllama:
		return ollama.New(ollama.Config{
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		}), nil
	default:
		// Unreachable: config validation rejects unknown providers.
		return nil, fmt.Errorf("embedding provider %q", cfg.Embedding.Provider)
	}
}

// Close releases every wired resource.
func (a *app) Close() {
	if a.source != nil {
		_ = a.source.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.index != nil {
		_ = a.index.Close()
	}
}
