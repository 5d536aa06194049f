package config

import (
	"strings"
)

type Config struct {
	API     APIConfig
	Export  ExportConfig
	Storage StorageConfig
	Log     LogConfig
	Stub    StubConfig
	UI      UIConfig
}

type APIConfig struct {
	BaseURL string
	Token   string
}

type ExportConfig struct {
	Dir string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type StubConfig struct {
	Port int
}

type UIConfig struct {
	DateLayout string
}

const (
	keychainService = "redpersona"
	tokenAccount    = "api_token"
)

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8001/api",
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Stub: StubConfig{
			Port: 8001,
		},
		UI: UIConfig{
			DateLayout: "Jan 2, 2006",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.redpersona.app) and the API
// token falls back to the macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/redpersona/config.json
// and the token falls back to $XDG_DATA_HOME/redpersona/secrets.json.
//
// Environment variables (REDPERSONA_*) override backend values on all platforms.
// The API token is optional.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b Backend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
