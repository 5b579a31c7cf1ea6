package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SyncStateStore = (*Store)(nil)

// stateVersion is the on-disk format version.
const stateVersion = 1

// maxMetadataDepth bounds nesting of metadata values. Anything deeper
// is rejected at the save boundary instead of risking silent loss.
const maxMetadataDepth = 8

// Store persists SyncState as a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// stateFile is the on-disk representation.
type stateFile struct {
	Version  int                          `json:"version"`
	SavedAt  time.Time                    `json:"saved_at"`
	Checksum string                       `json:"checksum"`
	Records  map[string]domain.SyncRecord `json:"records"`
}

// NewStore creates a store writing to the given path. The parent
// directory is created if missing.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty state path", domain.ErrInvalidConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. A missing file yields an empty state;
// an unparseable file or checksum mismatch yields ErrStateCorrupted.
func (s *Store) Load(_ context.Context) (domain.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load reads and verifies the state file. Caller holds s.mu.
func (s *Store) load() (domain.SyncState, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.NewSyncState(), nil
	}
	if err != nil {
		return domain.SyncState{}, fmt.Errorf("reading state file: %w", err)
	}

	var f stateFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.SyncState{}, fmt.Errorf("%w: %s: %v", domain.ErrStateCorrupted, s.path, err)
	}
	if f.Version != stateVersion {
		return domain.SyncState{}, fmt.Errorf("%w: unsupported state version %d", domain.ErrStateCorrupted, f.Version)
	}
	sum, err := recordChecksum(f.Records)
	if err != nil {
		return domain.SyncState{}, fmt.Errorf("%w: %v", domain.ErrStateCorrupted, err)
	}
	if f.Checksum != "" && f.Checksum != sum {
		return domain.SyncState{}, fmt.Errorf("%w: checksum mismatch in %s", domain.ErrStateCorrupted, s.path)
	}

	state := domain.NewSyncState()
	for id, rec := range f.Records {
		state.Records[id] = rec
	}
	return state, nil
}

// Save atomically replaces the persisted state.
func (s *Store) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(state)
}

// Remove deletes one record and persists the result. Removing an
// unknown id is a no-op.
func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := state.Get(id); !ok {
		return nil
	}
	state.Remove(id)
	return s.write(state)
}

// write serialises and atomically installs the state file.
// Caller holds s.mu.
func (s *Store) write(state domain.SyncState) error {
	for id, rec := range state.Records {
		if err := validateMetadata(rec.Metadata); err != nil {
			return fmt.Errorf("record %q: %w", id, err)
		}
	}

	records := state.Records
	if records == nil {
		records = map[string]domain.SyncRecord{}
	}
	sum, err := recordChecksum(records)
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}
	f := stateFile{
		Version:  stateVersion,
		SavedAt:  time.Now().UTC(),
		Checksum: sum,
		Records:  records,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sync-state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("setting state file mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("installing state file: %w", err)
	}
	return nil
}

// recordChecksum hashes the canonical JSON encoding of the record map.
// encoding/json sorts map keys, so the encoding is stable across runs.
func recordChecksum(records map[string]domain.SyncRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// validateMetadata rejects metadata values that cannot round-trip
// through JSON, rather than letting them vanish or mangle silently.
func validateMetadata(meta map[string]any) error {
	return validateValue(meta, 0)
}

func validateValue(v any, depth int) error {
	if depth > maxMetadataDepth {
		return fmt.Errorf("%w: nesting exceeds depth %d", domain.ErrMetadataNotSerializable, maxMetadataDepth)
	}
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number, time.Time:
		return nil
	case []string:
		return nil
	case []any:
		for _, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", domain.ErrMetadataNotSerializable, v)
	}
}
