//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// xdgDir returns $<env>/redpersona, falling back to <home>/<fallback>/redpersona.
func xdgDir(env, fallback string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "redpersona-data"
		}
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(dir, "redpersona")
}

// sections is the on-disk shape of config.json and secrets.json: one object per
// section holding that section's fields.
type sections map[string]map[string]any

func readSections(path string) (sections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sections{}, err
	}
	s := sections{}
	if err := json.Unmarshal(data, &s); err != nil {
		return sections{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// writeSections replaces path atomically with the indented JSON form of s.
func writeSections(path string, s sections) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".redpersona-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s sections) get(key string) (any, bool) {
	sec, field := splitKey(key)
	v, ok := s[sec][field]
	return v, ok
}

func (s sections) set(key string, v any) {
	sec, field := splitKey(key)
	if s[sec] == nil {
		s[sec] = make(map[string]any)
	}
	s[sec][field] = v
}

func (s sections) del(key string) {
	sec, field := splitKey(key)
	delete(s[sec], field)
	if len(s[sec]) == 0 {
		delete(s, sec)
	}
}
