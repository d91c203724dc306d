package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const ThemeDark = "dark"

// Prefs is the client state kept between runs.
type Prefs struct {
	Theme string `json:"theme"`
}

func loadPrefs(path string) (Prefs, error) {
	var p Prefs
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	return p, nil
}

func savePrefs(path string, p Prefs) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (s *Session) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Theme == ThemeDark
}

// ToggleDarkMode flips the theme and persists it. The new mode is returned.
func (s *Session) ToggleDarkMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	if next.Theme == ThemeDark {
		next.Theme = ""
	} else {
		next.Theme = ThemeDark
	}
	if err := savePrefs(s.opts.PrefsPath, next); err != nil {
		return s.prefs.Theme == ThemeDark, err
	}
	s.prefs = next
	return next.Theme == ThemeDark, nil
}
