package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/redis/go-redis/v9"
)

// Store persists the pipeline's artifacts. Raw snapshots and enrichment
// side-files are run-scoped and created fresh each run; the canonical
// snapshot is the only long-lived artifact and its replacement must be
// atomic so the dashboard never reads a partial snapshot.
type Store interface {
	// SaveRaw writes the raw fetch result for one run.
	SaveRaw(ctx context.Context, runID string, snap *Snapshot) error

	// SaveEnrichment writes the hometown resolution side-file for one run.
	SaveEnrichment(ctx context.Context, runID string, v interface{}) error

	// PublishCanonical atomically replaces the canonical snapshot.
	PublishCanonical(ctx context.Context, snap *Snapshot) error

	// LoadCanonical returns the current canonical snapshot, or nil if none
	// has been published yet.
	LoadCanonical(ctx context.Context) (*Snapshot, error)
}

const canonicalName = "players_latest.json"

// FileStore implements Store on a local data directory.
type FileStore struct {
	dir         string
	keepHistory bool
}

func NewFileStore(dir string, keepHistory bool) *FileStore {
	return &FileStore{dir: dir, keepHistory: keepHistory}
}

func (s *FileStore) SaveRaw(ctx context.Context, runID string, snap *Snapshot) error {
	return s.writeJSON(fmt.Sprintf("raw_%s.json", runID), snap)
}

func (s *FileStore) SaveEnrichment(ctx context.Context, runID string, v interface{}) error {
	return s.writeJSON(fmt.Sprintf("hometowns_%s.json", runID), v)
}

// PublishCanonical writes to a temp file in the same directory and renames
// it over the canonical path, so readers observe either the previous or the
// new complete snapshot, never a partial one.
func (s *FileStore) PublishCanonical(ctx context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, canonicalName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, canonicalName)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	if s.keepHistory {
		// History copies are best-effort; the canonical rename already
		// committed the run.
		_ = s.writeJSON(fmt.Sprintf("players_%s.json", snap.SourceRunID), snap)
	}
	return nil
}

func (s *FileStore) LoadCanonical(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, canonicalName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read canonical snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode canonical snapshot: %w", err)
	}
	return &snap, nil
}

func (s *FileStore) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
}

// RedisStore implements Store against Redis for deployments where the
// pipeline and the dashboard do not share a filesystem. SET replaces the
// canonical value in a single command, which satisfies the atomic publish
// contract.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) SaveRaw(ctx context.Context, runID string, snap *Snapshot) error {
	return s.set(ctx, s.prefix+":raw:"+runID, snap)
}

func (s *RedisStore) SaveEnrichment(ctx context.Context, runID string, v interface{}) error {
	return s.set(ctx, s.prefix+":hometowns:"+runID, v)
}

func (s *RedisStore) PublishCanonical(ctx context.Context, snap *Snapshot) error {
	return s.set(ctx, s.prefix+":canonical", snap)
}

func (s *RedisStore) LoadCanonical(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+":canonical").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read canonical snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode canonical snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, 0).Err()
}
