package flagstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const DefaultFileName = "flags.json"

// File stores flags as a JSON object on disk.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file store at path. If path is empty, uses
// ~/.config/promo/flags.json.
func NewFile(path string) (*File, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "promo", DefaultFileName)
	}
	return &File{path: path}, nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags, err := f.load()
	if err != nil {
		return false, err
	}
	return flags[key], nil
}

func (f *File) Set(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags, err := f.load()
	if err != nil {
		return err
	}
	flags[key] = true

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create flag directory: %w", err)
	}
	data, err := json.MarshalIndent(flags, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write flag file: %w", err)
	}
	return nil
}

func (f *File) load() (map[string]bool, error) {
	flags := make(map[string]bool)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return flags, nil
		}
		return nil, fmt.Errorf("failed to read flag file: %w", err)
	}
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("failed to parse flag file: %w", err)
	}
	return flags, nil
}
