package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "MENTORD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MENTORD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.primary_driver", typ: kString, env: "MENTORD_STORAGE_PRIMARY_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.PrimaryDriver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.PrimaryDriver },
	},
	{
		key: "storage.postgres_dsn", typ: kString, env: "MENTORD_STORAGE_POSTGRES_DSN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.PostgresDSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.PostgresDSN },
	},
	{
		key: "storage.timeout", typ: kDuration, env: "MENTORD_STORAGE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Storage.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Storage.Timeout },
	},
	{
		key: "textgen.backend", typ: kString, env: "MENTORD_TEXTGEN_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.TextGen.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.TextGen.Backend },
	},
	{
		key: "textgen.ollama_url", typ: kString, env: "MENTORD_TEXTGEN_OLLAMA_URL",
		apply:   func(cfg *Config, v any) { cfg.TextGen.OllamaURL = v.(string) },
		extract: func(cfg Config) any { return cfg.TextGen.OllamaURL },
	},
	{
		key: "textgen.model", typ: kString, env: "MENTORD_TEXTGEN_MODEL",
		apply:   func(cfg *Config, v any) { cfg.TextGen.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.TextGen.Model },
	},
	{
		key: "textgen.gemini_api_key", typ: kString, env: "MENTORD_TEXTGEN_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.TextGen.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.TextGen.GeminiAPIKey },
	},
	{
		key: "textgen.timeout", typ: kDuration, env: "MENTORD_TEXTGEN_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.TextGen.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.TextGen.Timeout },
	},
	{
		key: "engine.cache_size", typ: kInt, env: "MENTORD_ENGINE_CACHE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Engine.CacheSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Engine.CacheSize },
	},
	{
		key: "engine.name_probability", typ: kFloat, env: "MENTORD_ENGINE_NAME_PROBABILITY",
		apply:   func(cfg *Config, v any) { cfg.Engine.NameProbability = v.(float64) },
		extract: func(cfg Config) any { return cfg.Engine.NameProbability },
	},
	{
		key: "greeting.pools_file", typ: kString, env: "MENTORD_GREETING_POOLS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Greeting.PoolsFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Greeting.PoolsFile },
	},
	{
		key: "log.level", typ: kString, env: "MENTORD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "api.token", typ: kString, env: "MENTORD_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
}

// parse converts raw into the Go type of s.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	}
	return raw, nil
}

func applyBackend(cfg *Config, b ConfigBackend) error {
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
		case kFloat:
			v, ok, err := b.GetFloat(s.key)
			if err != nil {
				slog.Warn("could not parse config key, using default", "key", s.key, "error", err)
				continue
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok || v == "" {
				continue
			}
			parsed, err := s.parse(v)
			if err != nil {
				slog.Warn("could not parse config key, using default", "key", s.key, "value", v, "error", err)
				continue
			}
			s.apply(cfg, parsed)
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
		v, err := s.parse(raw)
		if err != nil {
			slog.Warn("could not parse env var, using default", "env", s.env, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}

// applySecrets fills secrets still empty after env overrides.
func applySecrets(cfg *Config, secrets secretReader) {
	if secrets == nil {
		return
	}
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := secrets.Get(s.key); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
