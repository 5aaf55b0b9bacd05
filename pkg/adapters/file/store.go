package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/turnstile/pkg/domain"
)

const ext = ".json"

// Store implements ports.StateStore using the local filesystem.
// It stores one JSON file per identity in a configured directory.
// Version checks are serialized in-process; the store is meant for a single
// process (CLI, local bots), not for replicas sharing a directory.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".turnstile/conversations".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".turnstile", "conversations")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id domain.Identity) string {
	return filepath.Join(s.BasePath, url.PathEscape(id.Key())+ext)
}

// Save persists the stack to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	if err := id.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	existing, err := s.read(id)
	switch {
	case err == nil:
		current = existing.Version
	case errors.Is(err, domain.ErrStackNotFound):
	default:
		return err
	}
	if current != stack.Version {
		return domain.ErrConflict
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure conversation directory: %w", err)
	}

	stored := *stack
	stored.Version = current + 1
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}

	// Same directory keeps the rename on one filesystem
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(id)
	if _, err := os.Stat(destPath); err == nil {
		// os.Rename fails on Windows when the destination exists
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing stack file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	stack.Version = stored.Version
	return nil
}

// Load retrieves the stack from its JSON file.
func (s *Store) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *Store) read(id domain.Identity) (*domain.DialogStack, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrStackNotFound
		}
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}

	var stack domain.DialogStack
	if err := json.Unmarshal(data, &stack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stack: %w", err)
	}
	if stack.Frames == nil {
		stack.Frames = []domain.Frame{}
	}
	return &stack, nil
}

// Delete removes the stack file.
func (s *Store) Delete(ctx context.Context, id domain.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stack file: %w", err)
	}
	return nil
}

// List returns identities with a stack file.
func (s *Store) List(ctx context.Context) ([]domain.Identity, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Identity{}, nil
		}
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var ids []domain.Identity
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		id, err := domain.ParseKey(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
