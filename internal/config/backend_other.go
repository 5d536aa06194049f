//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.json")
}

// fileBackend keeps settings in $XDG_CONFIG_HOME/redpersona/config.json, grouped
// by section:
//
//	{"api": {"base_url": "http://localhost:8001/api"}, "stub": {"port": 8001}}
type fileBackend struct {
	path string
	data sections
}

func newPlatformBackend() Backend {
	return openFileBackend(configFilePath())
}

// openFileBackend loads path. An unreadable or malformed file is reported and
// treated as empty so defaults still apply.
func openFileBackend(path string) *fileBackend {
	data, err := readSections(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring config file", "path", path, "error", err)
	}
	return &fileBackend{path: path, data: data}
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data.get(key)
	if !ok {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true, nil
	default:
		return fmt.Sprint(val), true, nil
	}
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data.get(key)
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || val < math.MinInt32 || val > math.MaxInt32 {
			return 0, true, fmt.Errorf("%s: %v is not a valid integer", key, val)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T value", key, val)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	b.data.set(key, val)
	return writeSections(b.path, b.data)
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.data.set(key, val)
	return writeSections(b.path, b.data)
}

func (b *fileBackend) Delete(key string) error {
	b.data.del(key)
	return writeSections(b.path, b.data)
}
