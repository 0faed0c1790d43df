// Package prefs persists view preferences between runs.
// Preferences are stored in ~/.config/wardrobe/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/mmcdole/wardrobe/internal/domain"
)

// Prefs holds the list view state restored at startup.
type Prefs struct {
	Filter   string `toml:"filter"` // encoded domain.ItemFilter
	PageSize int    `toml:"page_size,omitempty"`
	Page     int    `toml:"page,omitempty"`
}

const defaultPrefsPath = "~/.config/wardrobe/prefs.toml"

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// ItemFilter decodes the saved filter. A corrupt value yields the empty filter.
func (p Prefs) ItemFilter() domain.ItemFilter {
	f, err := domain.ParseFilter(p.Filter)
	if err != nil {
		return domain.ItemFilter{}
	}
	return f
}

// Remember records the current view.
func (p *Prefs) Remember(filter domain.ItemFilter, page, pageSize int) {
	p.Filter = filter.Encode()
	p.Page = page
	p.PageSize = pageSize
}

// Load reads preferences from path, falling back to defaults if the file is
// missing or unreadable.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Page: 1}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Prefs{Page: 1}, nil // Graceful degradation
	}
	if prefs.Page < 1 {
		prefs.Page = 1
	}
	return prefs, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
