// Package config loads the lemon.toml project file.
//
// Values are resolved in this order, later ones winning: built-in defaults, the
// project file, environment variables (LEMON_LOG_LEVEL), command line flags. The
// last step belongs to the caller; Load covers the rest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/logger"
)

// DefaultFile is the project file looked up when no path is given.
const DefaultFile = "lemon.toml"

// EnvLogLevel overrides [log] level.
const EnvLogLevel = "LEMON_LOG_LEVEL"

// Config is the content of a project file.
type Config struct {
	// Script is the main script file.
	Script string `toml:"script"`
	// Module names the compiled module. Defaults to the script's base name.
	Module string `toml:"module"`
	// Bindings is a YAML manifest of engine externals and native functions.
	Bindings string `toml:"bindings"`

	Compile Compile `toml:"compile"`
	Log     Log     `toml:"log"`
	Watch   Watch   `toml:"watch"`
}

type Compile struct {
	CombinedSource   string           `toml:"combined_source"`
	TranslatedSource string           `toml:"translated_source"`
	ExternalAddress  string           `toml:"external_address"`
	LegacyEncoding   string           `toml:"legacy_encoding"`
	Definitions      map[string]int64 `toml:"definitions"`
}

type Log struct {
	Level string `toml:"level"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// Exclude lists glob patterns of file names that never trigger a rebuild.
	Exclude []string `toml:"exclude"`
}

// Default returns the configuration used without a project file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the project file at path. Relative paths inside the file are resolved
// against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// LoadOptional is Load for the default project file: a missing file yields Default().
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		applyEnv(cfg)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Parse decodes TOML content, applies defaults and environment overrides and validates
// the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Compile.ExternalAddress) == "" {
		cfg.Compile.ExternalAddress = "u32"
	}
	if strings.TrimSpace(cfg.Compile.LegacyEncoding) == "" {
		cfg.Compile.LegacyEncoding = "windows-1252"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
}

func applyEnv(cfg *Config) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
}

// Validate checks values that cannot be checked by decoding alone.
func (cfg *Config) Validate() error {
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := cfg.ExternalAddressType(); err != nil {
		return err
	}
	if _, err := cfg.Encoding(); err != nil {
		return err
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	for _, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// ExternalAddressType returns the data type of call and jump targets.
func (cfg *Config) ExternalAddressType() (*datatype.Type, error) {
	switch cfg.Compile.ExternalAddress {
	case "u32":
		return datatype.U32, nil
	case "u64":
		return datatype.U64, nil
	}
	return nil, fmt.Errorf("compile.external_address must be u32 or u64, got %q", cfg.Compile.ExternalAddress)
}

// Encoding returns the decoder for script files that are not UTF-8. Names follow the
// WHATWG encoding standard, e.g. "windows-1252" or "shift_jis".
func (cfg *Config) Encoding() (encoding.Encoding, error) {
	enc, err := htmlindex.Get(cfg.Compile.LegacyEncoding)
	if err != nil {
		return nil, fmt.Errorf("compile.legacy_encoding: unknown encoding %q", cfg.Compile.LegacyEncoding)
	}
	return enc, nil
}

// ModuleName returns Module, falling back to the script's base name without extension.
func (cfg *Config) ModuleName() string {
	if cfg.Module != "" {
		return cfg.Module
	}
	base := filepath.Base(cfg.Script)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (cfg *Config) resolvePaths(dir string) {
	for _, p := range []*string{&cfg.Script, &cfg.Bindings, &cfg.Compile.CombinedSource, &cfg.Compile.TranslatedSource} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
