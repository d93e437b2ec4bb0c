package mapdata

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactStore manages the "latest" map artifact slot. Publish follows a
// two-phase swap-and-archive protocol: any existing latest artifact is first
// moved to an archive name derived from its timestamp, then the new artifact
// takes the latest slot. Old artifacts are renamed out of the slot, never
// deleted, so exactly one current artifact is addressable by a stable name
// at any time. Callers must not overlap Publish calls (the builder's
// single-flight guard enforces this).
type ArtifactStore interface {
	Publish(data []byte, generatedAt time.Time) error
	Latest() ([]byte, bool, error)
}

const latestName = "latest.json"

// FSArtifactStore implements ArtifactStore on the local filesystem.
// Object-storage backends can replace it behind the same interface.
type FSArtifactStore struct {
	dir string
}

// NewFSArtifactStore creates the artifact directory (and its archive
// subdirectory) if missing.
func NewFSArtifactStore(dir string) (*FSArtifactStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "archive"), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSArtifactStore{dir: dir}, nil
}

// Publish implements ArtifactStore. The new artifact is written to a temp
// file and renamed into the latest slot, so readers never observe a partial
// write.
func (s *FSArtifactStore) Publish(data []byte, generatedAt time.Time) error {
	latest := filepath.Join(s.dir, latestName)

	// Phase 1: archive the current latest under its timestamp-derived name.
	if info, err := os.Stat(latest); err == nil {
		archiveName := fmt.Sprintf("map-%s.json", info.ModTime().UTC().Format("20060102T150405Z"))
		if err := os.Rename(latest, filepath.Join(s.dir, "archive", archiveName)); err != nil {
			return fmt.Errorf("archive latest artifact: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat latest artifact: %w", err)
	}

	// Phase 2: publish the new artifact into the latest slot.
	tmp := filepath.Join(s.dir, latestName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Chtimes(tmp, generatedAt, generatedAt); err != nil {
		return fmt.Errorf("stamp artifact: %w", err)
	}
	if err := os.Rename(tmp, latest); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Latest implements ArtifactStore. Returns ok=false before the first publish.
func (s *FSArtifactStore) Latest() ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, latestName))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read latest artifact: %w", err)
	}
	return data, true, nil
}
