// Package statefile persists the bot state document as a single JSON file
// with crash-safe atomic replacement.
package statefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// CurrentVersion is stamped on every saved document.
const CurrentVersion = 1

// Store implements ports.StateStore on top of one JSON file. Writes go to
// a temp file in the same directory, fsync, then rename over the target,
// so a crash at any point leaves either the old or the new document.
type Store struct {
	path   string
	logger ports.Logger
}

// NewStore creates a state store for the given file path, creating the
// parent directory if needed.
func NewStore(path string, logger ports.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the persisted document. A missing file yields a fresh zero
// state; an unreadable or corrupt file is an error so a damaged document
// is never silently replaced.
func (s *Store) Load(ctx context.Context) (*domain.BotState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info(ctx, "No state file found, starting fresh", map[string]interface{}{"path": s.path})
		return &domain.BotState{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	var state domain.BotState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	if state.Position != nil && !state.Position.Kind.Valid() {
		return nil, fmt.Errorf("state file %s: unknown position type %q", s.path, state.Position.Kind)
	}
	s.logger.Info(ctx, "State loaded", map[string]interface{}{
		"path":         s.path,
		"has_position": state.Position != nil,
		"halted":       state.Halted,
	})
	return &state, nil
}

// Save atomically replaces the document on disk.
func (s *Store) Save(ctx context.Context, state *domain.BotState) error {
	if state == nil {
		return fmt.Errorf("state is required")
	}
	state.Version = CurrentVersion
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

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
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}

	s.logger.Debug(ctx, "State saved", map[string]interface{}{"path": s.path, "bytes": len(data)})
	return nil
}
