package config

import (
	"errors"
	"slices"
	"testing"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

// memBackend is an in-memory Backend.
type memBackend struct {
	strs map[string]string
	ints map[string]int
	err  error
}

func newMemBackend() *memBackend {
	return &memBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strs[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

type mockSecretWriter struct {
	service, account, value string
	err                     error
}

func (m *mockSecretWriter) Set(service, account, value string) error {
	m.service, m.account, m.value = service, account, value
	return m.err
}

// clearEnv blanks every REDPERSONA_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8001/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, want empty", cfg.API.Token)
	}
	if cfg.Export.Dir != "." {
		t.Errorf("Export.Dir = %q, want %q", cfg.Export.Dir, ".")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Stub.Port != 8001 {
		t.Errorf("Stub.Port = %d, want 8001", cfg.Stub.Port)
	}
	if cfg.UI.DateLayout != "Jan 2, 2006" {
		t.Errorf("UI.DateLayout = %q", cfg.UI.DateLayout)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.strs["api.base_url"] = "https://personas.example.com/api/"
	b.strs["export.dir"] = "/tmp/reports"
	b.strs["storage.data_dir"] = "/tmp/redpersona-test"
	b.ints["stub.port"] = 9000

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://personas.example.com/api" {
		t.Errorf("API.BaseURL = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.Export.Dir != "/tmp/reports" {
		t.Errorf("Export.Dir = %q", cfg.Export.Dir)
	}
	if cfg.Storage.DataDir != "/tmp/redpersona-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Stub.Port != 9000 {
		t.Errorf("Stub.Port = %d", cfg.Stub.Port)
	}
}

func TestBackendError(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.err = errors.New("defaults exploded")

	if _, err := loadWith(b, mockKeychain{}); err == nil {
		t.Fatal("expected error from backend")
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.strs["api.base_url"] = "http://file/api"
	b.strs["log.level"] = "info"

	t.Setenv("REDPERSONA_API_BASE_URL", "http://env/api")
	t.Setenv("REDPERSONA_LOG_LEVEL", "debug")
	t.Setenv("REDPERSONA_STUB_PORT", "8123")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "http://env/api" {
		t.Errorf("API.BaseURL = %q, want env value", cfg.API.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Stub.Port != 8123 {
		t.Errorf("Stub.Port = %d, want 8123", cfg.Stub.Port)
	}
}

func TestEnvInvalidIntKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDPERSONA_STUB_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Stub.Port != 8001 {
		t.Errorf("Stub.Port = %d, want default 8001", cfg.Stub.Port)
	}
}

func TestTokenFromKeychain(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend(), mockKeychain{value: "kc-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "kc-token" {
		t.Errorf("API.Token = %q, want keychain value", cfg.API.Token)
	}
}

func TestTokenEnvBeatsKeychain(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDPERSONA_API_TOKEN", "env-token")

	cfg, err := loadWith(newMemBackend(), mockKeychain{value: "kc-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("API.Token = %q, want env value", cfg.API.Token)
	}
}

func TestTokenNotReadFromBackend(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.strs["api.token"] = "plaintext"

	cfg, err := loadWith(b, mockKeychain{err: errors.New("none")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, secrets must not come from the plain backend", cfg.API.Token)
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.API.Token = "super-secret"

	var found bool
	for _, ki := range ShowAll(cfg) {
		if ki.Value == "super-secret" {
			t.Errorf("secret value exposed under %s", ki.Key)
		}
		if ki.Key == "api.token" {
			found = true
			if ki.Value != "(set)" {
				t.Errorf("api.token shown as %q, want (set)", ki.Value)
			}
		}
	}
	if !found {
		t.Error("api.token missing from ShowAll")
	}

	cfg.API.Token = ""
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "api.token" && ki.Value != "(unset)" {
			t.Errorf("api.token shown as %q, want (unset)", ki.Value)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()
	sw := &mockSecretWriter{}

	if err := setKeyWith(b, sw, "api.base_url", "http://x/api"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if b.strs["api.base_url"] != "http://x/api" {
		t.Errorf("backend string = %q", b.strs["api.base_url"])
	}

	if err := setKeyWith(b, sw, "stub.port", "9001"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if b.ints["stub.port"] != 9001 {
		t.Errorf("backend int = %d", b.ints["stub.port"])
	}

	if err := setKeyWith(b, sw, "stub.port", "ninety"); err == nil {
		t.Error("expected error for invalid integer")
	}
	if err := setKeyWith(b, sw, "no.such.key", "v"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"api.base_url", "localhost:8001"},
		{"api.base_url", "ftp://host/api"},
		{"stub.port", "0"},
		{"stub.port", "70000"},
		{"log.level", "verbose"},
	}
	for _, tt := range tests {
		b := newMemBackend()
		if err := setKeyWith(b, &mockSecretWriter{}, tt.key, tt.value); err == nil {
			t.Errorf("SetKey(%s, %q): expected error", tt.key, tt.value)
		}
		if len(b.strs)+len(b.ints) != 0 {
			t.Errorf("SetKey(%s, %q) wrote to the backend", tt.key, tt.value)
		}
	}

	b := newMemBackend()
	if err := setKeyWith(b, &mockSecretWriter{}, "log.level", "debug"); err != nil {
		t.Errorf("log.level debug: %v", err)
	}
}

func TestSetKeySecretGoesToKeychain(t *testing.T) {
	b := newMemBackend()
	sw := &mockSecretWriter{}

	if err := setKeyWith(b, sw, "api.token", "tok"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if sw.service != "redpersona" || sw.account != "api_token" || sw.value != "tok" {
		t.Errorf("secret writer got %+v", sw)
	}
	if _, ok := b.strs["api.token"]; ok {
		t.Error("secret written to the plain backend")
	}

	sw.err = errors.New("locked")
	if err := setKeyWith(b, sw, "api.token", "tok"); err == nil {
		t.Error("expected error when the secret store fails")
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	for _, want := range []string{"api.base_url", "api.token", "export.dir", "storage.data_dir", "log.level", "stub.port", "ui.date_layout"} {
		if !slices.Contains(keys, want) {
			t.Errorf("ValidKeys missing %q", want)
		}
	}
}
