package config

import "strings"

// Backend is where persisted settings live: a JSON file on Linux, the `defaults`
// domain on macOS. Keys are the dotted names from the specs table.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// splitKey turns "api.base_url" into ("api", "base_url"). Keys without a dot
// have an empty section.
func splitKey(key string) (section, field string) {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
