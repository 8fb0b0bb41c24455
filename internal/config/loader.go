package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read from the working directory when no file is given.
	DefaultFile = "orma.yaml"
	// DefaultEnvFile is read for ORMA_ variables before the environment.
	DefaultEnvFile = ".env"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "ORMA_"
)

// Defaults are the lowest-precedence values.
var Defaults = map[string]any{
	"dialect":               "sqlite",
	"transaction.nest_mode": "separate",
	"transaction.ambient":   true,
	"log.level":             "info",
	"debug":                 false,
	"output":                OutputText,
}

// sections are the nested keys. An environment variable or flag whose name
// starts with a section and an underscore addresses a key inside it.
var sections = []string{"pool", "transaction", "log", "session"}

// flagKeys maps flag names that differ from their key.
var flagKeys = map[string]string{
	"nest-mode": "transaction.nest_mode",
	"isolation": "transaction.isolation",
	"log-level": "log.level",
}

// Loader reads configuration. The zero value reads orma.yaml and .env from
// the working directory and the process environment.
type Loader struct {
	// File is the YAML file. Unlike the default file it must exist.
	File string
	// EnvFile overrides DefaultEnvFile.
	EnvFile string
	// Flags are applied last; only changed flags are read.
	Flags *pflag.FlagSet
}

// Load loads and validates the configuration.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func (l Loader) Load() (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	// 2. Config file
	path, required := l.File, true
	if path == "" {
		path, required = DefaultFile, false
	}
	if _, err := os.Stat(path); err == nil || required {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// 3. .env file, without touching the process environment
	envFile := l.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", envFile, err)
	}
	vars := make(map[string]any)
	for name, v := range dotenv {
		if strings.HasPrefix(name, EnvPrefix) {
			vars[EnvKey(name)] = v
		}
	}
	if err := k.Load(confmap.Provider(vars, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	// 4. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env vars: %w", err)
	}

	// 5. Flags
	if l.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return FlagKey(f.Name), posflag.FlagVal(l.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.DSN = expandEnvVars(cfg.DSN)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value. Unset variables are kept.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		if v, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return v
		}
		return match
	})
}

// EnvKey maps ORMA_TRANSACTION_NEST_MODE to transaction.nest_mode.
func EnvKey(name string) string {
	return nest(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)))
}

// FlagKey maps a flag name such as pool-max-open to pool.max_open.
func FlagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return nest(strings.ReplaceAll(name, "-", "_"))
}

func nest(key string) string {
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok {
			return s + "." + rest
		}
	}
	return key
}
