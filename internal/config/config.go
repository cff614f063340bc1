package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	TextGen  TextGenConfig
	Engine   EngineConfig
	Greeting GreetingConfig
	Log      LogConfig
	API      APIConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir       string
	PrimaryDriver string
	PostgresDSN   string
	Timeout       time.Duration
}

type TextGenConfig struct {
	Backend      string
	OllamaURL    string
	Model        string
	GeminiAPIKey string
	Timeout      time.Duration
}

type EngineConfig struct {
	CacheSize       int
	NameProbability float64
}

type GreetingConfig struct {
	PoolsFile string
}

type LogConfig struct {
	Level string
}

type APIConfig struct {
	Token string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			PrimaryDriver: DriverSQLite,
			Timeout:       2 * time.Second,
		},
		TextGen: TextGenConfig{
			Backend:   "ollama",
			OllamaURL: "http://localhost:11434",
			Model:     "phi3.5",
			Timeout:   10 * time.Second,
		},
		Engine: EngineConfig{
			CacheSize:       1024,
			NameProbability: 0.3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, environment
// variables and the secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/mentord/config.json. Secrets
// are never read from it: they come from MENTORD_* environment variables
// or from $XDG_DATA_HOME/mentord/secrets.json.
//
// Environment variables (MENTORD_*) override file values.
func Load() (Config, error) {
	return loadWith(newFileBackend(FilePath()), defaultSecrets())
}

func loadWith(b ConfigBackend, secrets secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.PrimaryDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("missing required config: Postgres DSN. " +
				"Set it via environment variable MENTORD_STORAGE_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("invalid storage.primary_driver %q: want %s or %s",
			cfg.Storage.PrimaryDriver, DriverSQLite, DriverPostgres)
	}

	switch cfg.TextGen.Backend {
	case "ollama", "none", "":
	case "gemini":
		if cfg.TextGen.GeminiAPIKey == "" {
			return fmt.Errorf("missing required config: Gemini API key. " +
				"Set it via environment variable MENTORD_TEXTGEN_GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("invalid textgen.backend %q: want ollama, gemini or none", cfg.TextGen.Backend)
	}

	if p := cfg.Engine.NameProbability; p < 0 || p > 1 {
		return fmt.Errorf("engine.name_probability %v is outside [0, 1]", p)
	}
	return nil
}
