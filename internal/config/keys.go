package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secret store account for secret keys
	check   func(v any) error
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func checkServiceURL(v any) error {
	u, err := url.Parse(v.(string))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) address", v)
	}
	return nil
}

func checkPort(v any) error {
	if p := v.(int); p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}

func checkLogLevel(v any) error {
	switch v.(string) {
	case "debug", "info":
		return nil
	}
	return fmt.Errorf("log level %q is not debug or info", v)
}

var specs = []keySpec{
	{
		key: "api.base_url", typ: kString, env: "REDPERSONA_API_BASE_URL",
		check:   checkServiceURL,
		apply:   func(cfg *Config, v any) { cfg.API.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.API.BaseURL },
	},
	{
		key: "api.token", typ: kString, env: "REDPERSONA_API_TOKEN",
		secret: true, account: tokenAccount,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
	{
		key: "export.dir", typ: kString, env: "REDPERSONA_EXPORT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Export.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Dir },
	},
	{
		key: "storage.data_dir", typ: kString, env: "REDPERSONA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "REDPERSONA_LOG_LEVEL",
		check:   checkLogLevel,
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "stub.port", typ: kInt, env: "REDPERSONA_STUB_PORT",
		check:   checkPort,
		apply:   func(cfg *Config, v any) { cfg.Stub.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Stub.Port },
	},
	{
		key: "ui.date_layout", typ: kString, env: "REDPERSONA_UI_DATE_LAYOUT",
		apply:   func(cfg *Config, v any) { cfg.UI.DateLayout = v.(string) },
		extract: func(cfg Config) any { return cfg.UI.DateLayout },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("ignoring env override", "var", s.env, "value", raw, "error", err)
			}
		}
	}
}
