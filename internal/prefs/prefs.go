// Package prefs persists the single user preference that survives
// restarts: the display locale. Nothing device-related is ever written
// here.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Locale is one of the supported display languages.
type Locale string

const (
	LocaleZhTW Locale = "zh-TW"
	LocaleEn   Locale = "en"
	LocaleZhCN Locale = "zh-CN"

	// DefaultLocale applies when no preference file exists yet.
	DefaultLocale = LocaleZhTW
)

// Valid reports whether l names a supported locale.
func (l Locale) Valid() bool {
	switch l {
	case LocaleZhTW, LocaleEn, LocaleZhCN:
		return true
	}
	return false
}

type fileContent struct {
	Locale Locale `json:"locale"`
}

// Store reads and writes the preference file. Writes go through a temp
// file and rename so a crash mid-write never leaves a torn file.
type Store struct {
	path string

	mu     sync.Mutex
	cached *Locale
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Locale returns the persisted locale, falling back to the default when the
// file is missing or unreadable.
func (s *Store) Locale() Locale {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}

	loc := DefaultLocale
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
	default:
		var content fileContent
		if jerr := json.Unmarshal(data, &content); jerr == nil && content.Locale.Valid() {
			loc = content.Locale
		}
	}
	s.cached = &loc
	return loc
}

// SetLocale validates and persists a new locale.
func (s *Store) SetLocale(loc Locale) error {
	if !loc.Valid() {
		return fmt.Errorf("unsupported locale %q", loc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(fileContent{Locale: loc})
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preference: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit preference: %w", err)
	}
	s.cached = &loc
	return nil
}
