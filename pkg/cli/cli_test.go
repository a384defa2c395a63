package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zurustar/lemonscript/pkg/config"
	"github.com/zurustar/lemonscript/pkg/program"
)

// run executes lemonc with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "")
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(append(args, "--no-color"))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.lemon")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runVersion(cmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "lemonc ")
	assert.Contains(t, output, "Commit:")
	assert.Contains(t, output, "Go version:")
	assert.Contains(t, output, "OS/Arch:")
}

func TestBuild(t *testing.T) {
	script := writeScript(t, "global u8 level = 3\nfunction void main()\n{\n\tlevel = level + 1\n}\n")

	stdout, _, err := run(t, "build", script)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok main: 1 functions, 1 globals")
}

func TestBuild_CompileError(t *testing.T) {
	script := writeScript(t, "function void main()\n{\n\tmissing = 1\n}\n")

	_, stderr, err := run(t, "build", script)
	require.ErrorIs(t, err, ErrCompileFailed)
	assert.Contains(t, stderr, script+":3: error: Unknown identifier 'missing' [UnknownIdentifier]")
	assert.Contains(t, stderr, "> 3 | \tmissing = 1")
	assert.NotContains(t, stderr, "\x1b[", "--no-color must disable escape sequences")
}

func TestBuild_Flags(t *testing.T) {
	script := writeScript(t, "#if FAST\nglobal u8 speed = 2\n#endif\n")
	translated := filepath.Join(t.TempDir(), "out.cpp")

	_, _, err := run(t, "build", script, "-D", "FAST", "--translate", translated, "--address", "u64")
	require.NoError(t, err)
	assert.FileExists(t, translated)

	_, _, err = run(t, "build", script, "--address", "u16")
	assert.ErrorContains(t, err, "external_address")

	_, _, err = run(t, "build", script, "--log-level", "loud")
	assert.ErrorContains(t, err, "log.level")

	_, _, err = run(t, "build")
	assert.ErrorContains(t, err, "no script file given")
}

func TestDump(t *testing.T) {
	script := writeScript(t, "#if LEVEL\nglobal u16 level = 5\n#endif\nfunction void main()\n{\n\tlevel = 1\n}\n")

	stdout, _, err := run(t, "dump", script, "-D", "LEVEL=0x10")
	require.NoError(t, err)

	var summary program.Summary
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "main", summary.Module)
	require.Len(t, summary.Globals, 1)
	assert.Equal(t, program.VariableSummary{Name: "level", Type: "u16", Initial: 5}, summary.Globals[0])
	require.Len(t, summary.Functions, 1)
	assert.Equal(t, "void main()", summary.Functions[0].Signature)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.lemon"), []byte("global u8 a\n"), 0o644))
	project := filepath.Join(dir, "lemon.toml")
	require.NoError(t, os.WriteFile(project, []byte("script = \"game.lemon\"\n[compile]\ncombined_source = \"combined.lemon\"\n"), 0o644))

	stdout, _, err := run(t, "build", "--config", project)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok game:")
	assert.FileExists(t, filepath.Join(dir, "combined.lemon"))

	_, _, err = run(t, "build", "--config", filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "failed to load config")
}

func TestParseDefinitions(t *testing.T) {
	defs, err := parseDefinitions([]string{"A", "B=0x10", "C = -3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1, "B": 16, "C": -3}, defs)

	_, err = parseDefinitions([]string{"=1"})
	assert.ErrorContains(t, err, "missing name")

	_, err = parseDefinitions([]string{"D=x"})
	assert.ErrorContains(t, err, "must be an integer")
}

func TestWatch_CompileError(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "")
	script := writeScript(t, "function void main()\n{\n\tmissing = 1\n}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"watch", script, "--log-level", "debug", "--no-color"})
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	require.NoError(t, root.ExecuteContext(ctx), "a failed build must not stop watching")
	assert.Contains(t, stderr.String(), script+":3: error: Unknown identifier 'missing' [UnknownIdentifier]")
	assert.Contains(t, stderr.String(), "build failed, waiting for changes")
	assert.Empty(t, stdout.String())
}
