package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"

	"github.com/zurustar/lemonscript/pkg/datatype"
)

func TestDefault(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)

	dt, err := cfg.ExternalAddressType()
	require.NoError(t, err)
	assert.Same(t, datatype.U32, dt)

	enc, err := cfg.Encoding()
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1252, enc)
}

func TestParse(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cfg, err := Parse(`
script = "scripts/main.lemon"
bindings = "engine.yaml"

[compile]
external_address = "u64"
legacy_encoding = "shift_jis"
translated_source = "out/script.cpp"

[compile.definitions]
DEBUG = 1
LEVELS = 12

[log]
level = "debug"

[watch]
debounce = "1s"
exclude = ["*.bak", "#*"]
`)
	require.NoError(t, err)

	assert.Equal(t, "scripts/main.lemon", cfg.Script)
	assert.Equal(t, map[string]int64{"DEBUG": 1, "LEVELS": 12}, cfg.Compile.Definitions)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"*.bak", "#*"}, cfg.Watch.Exclude)
	assert.Equal(t, "main", cfg.ModuleName())

	dt, err := cfg.ExternalAddressType()
	require.NoError(t, err)
	assert.Same(t, datatype.U64, dt)

	enc, err := cfg.Encoding()
	require.NoError(t, err)
	assert.Equal(t, japanese.ShiftJIS, enc)
}

func TestParse_Invalid(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"syntax", `script = `, ""},
		{"unknown key", `scrpit = "main.lemon"`, "unknown key"},
		{"log level", "[log]\nlevel = \"loud\"", "log.level"},
		{"address type", "[compile]\nexternal_address = \"u16\"", "external_address"},
		{"encoding", "[compile]\nlegacy_encoding = \"klingon\"", "legacy_encoding"},
		{"negative debounce", "[watch]\ndebounce = \"-1s\"", "debounce"},
		{"exclude pattern", "[watch]\nexclude = [\"[\"]", "watch.exclude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "WARN")
	cfg, err := Parse("[log]\nlevel = \"debug\"")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("script = \"main.lemon\"\nmodule = \"game\"\n[compile]\ncombined_source = \"/tmp/combined.lemon\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.lemon"), cfg.Script)
	assert.Equal(t, "/tmp/combined.lemon", cfg.Compile.CombinedSource)
	assert.Equal(t, "game", cfg.ModuleName())
}

func TestLoadOptional(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), DefaultFile))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
