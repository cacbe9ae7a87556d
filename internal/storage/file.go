// Package storage provides file-based JSON persistence for user state.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
)

const (
	snapshotKey = "snapshot"
	settingsKey = "settings"
)

// FileStore persists snapshots and settings as JSON files under a base
// directory, writing atomically (temp file + rename).
type FileStore struct {
	basePath string
	logger   *common.Logger
}

// NewFileStore creates a FileStore and ensures the base directory exists.
func NewFileStore(logger *common.Logger, basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}

	logger.Debug().Str("path", basePath).Msg("FileStore opened")
	return &FileStore{basePath: basePath, logger: logger}, nil
}

// sanitizeKey makes a key safe for use as a filename.
func (fs *FileStore) sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) filePath(key string) string {
	return filepath.Join(fs.basePath, fs.sanitizeKey(key)+".json")
}

// readJSON reads and unmarshals a JSON file. A missing file is reported
// via os.IsNotExist so callers can substitute defaults.
func (fs *FileStore) readJSON(key string, dest interface{}) error {
	path := fs.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically:
// temp file in the same directory, then rename over the target.
func (fs *FileStore) writeJSON(key string, data interface{}) error {
	target := fs.filePath(key)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(fs.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// LoadSnapshot returns the persisted snapshot, or a first-run snapshot
// when none has been saved yet.
func (fs *FileStore) LoadSnapshot(_ context.Context) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := fs.readJSON(snapshotKey, &snap); err != nil {
		if os.IsNotExist(err) {
			return models.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap.Funds == nil {
		snap.Funds = []models.Position{}
	}
	if snap.Indices == nil {
		snap.Indices = append([]string(nil), models.DefaultIndices...)
	}
	return &snap, nil
}

// SaveSnapshot persists the snapshot.
func (fs *FileStore) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	if err := fs.writeJSON(snapshotKey, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSettings returns the persisted settings, or defaults.
func (fs *FileStore) LoadSettings(_ context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := fs.readJSON(settingsKey, &settings); err != nil {
		if os.IsNotExist(err) {
			return models.NewDefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings persists the settings.
func (fs *FileStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	if err := fs.writeJSON(settingsKey, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store
var _ interfaces.Store = (*FileStore)(nil)
