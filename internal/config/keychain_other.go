//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// Without a system keychain, secrets live in secrets.json next to the data
// directory, readable by the owner only. Services are the top-level sections.
func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "secrets.json")
}

func keychainExec(service, account string) ([]byte, error) {
	s, err := readSections(secretsFilePath())
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	v, ok := s.get(service + "." + account)
	if !ok {
		return nil, fmt.Errorf("no secret %s/%s", service, account)
	}
	str, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("secret %s/%s is not a string", service, account)
	}
	return []byte(str), nil
}

func keychainSet(service, account, value string) error {
	p := secretsFilePath()
	s, err := readSections(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	s.set(service+"."+account, value)
	return writeSections(p, s)
}
