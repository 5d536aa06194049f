//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.redpersona.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "redpersona-data"
	}
	return filepath.Join(home, "Library", "Application Support", "redpersona")
}

// defaultsBackend stores settings in the user defaults domain, so they can also be
// edited with `defaults write com.redpersona.app api.base_url ...`.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return defaultsBackend{domain: defaultsDomain}
}

// run invokes `defaults <verb> <domain> <args...>`. missing is true when the key
// does not exist, which defaults signals with exit status 1.
func (b defaultsBackend) run(verb string, args ...string) (out string, missing bool, err error) {
	cmd := exec.Command("defaults", append([]string{verb, b.domain}, args...)...)
	raw, err := cmd.CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && verb != "write" {
		return "", true, nil
	}
	return "", false, fmt.Errorf("defaults %s %v: %w (%s)", verb, args, err, out)
}

func (b defaultsBackend) GetString(key string) (string, bool, error) {
	s, missing, err := b.run("read", key)
	return s, !missing && err == nil, err
}

func (b defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return i, true, nil
}

func (b defaultsBackend) SetString(key, val string) error {
	_, _, err := b.run("write", key, "-string", val)
	return err
}

func (b defaultsBackend) SetInt(key string, val int) error {
	_, _, err := b.run("write", key, "-int", strconv.Itoa(val))
	return err
}

// Delete removes key; deleting a key that is not set is not an error.
func (b defaultsBackend) Delete(key string) error {
	_, _, err := b.run("delete", key)
	return err
}
