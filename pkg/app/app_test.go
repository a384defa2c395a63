package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/config"
	"github.com/zurustar/lemonscript/pkg/opcode"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type project struct {
	dir string
	cfg *config.Config
}

func newProject(t *testing.T, files map[string]string) *project {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	p := &project{dir: dir, cfg: config.Default()}
	for name, content := range files {
		p.write(t, name, content)
	}
	p.cfg.Script = filepath.Join(dir, "main.lemon")
	p.cfg.Watch.Debounce = 50 * time.Millisecond
	return p
}

func (p *project) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, name), []byte(content), 0o644))
}

const engineYAML = `
externals:
  - {name: D0, type: u32}
natives:
  - name: System.print
    params:
      - {name: text, type: string}
`

func TestBuild(t *testing.T) {
	p := newProject(t, map[string]string{
		"engine.yaml": engineYAML,
		"main.lemon":  "include util\nfunction void main()\n{\n\tSystem.print(\"hi\")\n\tD0 = twice(3)\n}\n",
		"util.lemon":  "function u32 twice(u32 x)\n{\n\treturn x * 2\n}\n",
	})
	p.cfg.Bindings = filepath.Join(p.dir, "engine.yaml")
	p.cfg.Compile.TranslatedSource = filepath.Join(p.dir, "out.cpp")

	application, err := New(p.cfg, discard)
	require.NoError(t, err)

	result, err := application.Build()
	require.NoError(t, err)
	require.True(t, result.OK(), "errors: %v", result.Errors)

	assert.Equal(t, "main", result.Module.Name)
	assert.Len(t, result.Module.ScriptFunctions(), 2)
	assert.ElementsMatch(t, []string{filepath.Join(p.dir, "main.lemon"), filepath.Join(p.dir, "util.lemon")}, result.Files)
	assert.FileExists(t, p.cfg.Compile.TranslatedSource)

	// every build starts from a fresh module
	again, err := application.Build()
	require.NoError(t, err)
	assert.True(t, again.OK(), "errors: %v", again.Errors)
}

func TestBuild_CompileError(t *testing.T) {
	p := newProject(t, map[string]string{
		"main.lemon": "function void main()\n{\n\tSystem.print(\"hi\")\n}\n",
	})
	application, err := New(p.cfg, discard)
	require.NoError(t, err)

	result, err := application.Build()
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, &result.Errors[0], diag.ErrUnknownIdentifier)
	assert.Equal(t, 3, result.Errors[0].LineNumber)
	assert.Empty(t, result.Module.ScriptFunctions())
}

func TestBuild_SetupErrors(t *testing.T) {
	p := newProject(t, nil)
	p.cfg.Script = ""
	application, err := New(p.cfg, discard)
	require.NoError(t, err)
	_, err = application.Build()
	assert.ErrorIs(t, err, ErrNoScript)

	p.cfg.Bindings = filepath.Join(p.dir, "missing.yaml")
	_, err = New(p.cfg, discard)
	assert.ErrorContains(t, err, "failed to load bindings")
}

func TestWatch(t *testing.T) {
	p := newProject(t, map[string]string{
		"main.lemon": "include util\nfunction void main()\n{\n}\n",
		"util.lemon": "global u8 level = 1\n",
	})
	application, err := New(p.cfg, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan *Result, 8)
	done := make(chan error, 1)
	go func() {
		done <- application.Watch(ctx, func(r *Result) { results <- r })
	}()

	next := func() *Result {
		t.Helper()
		select {
		case r := <-results:
			return r
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for a build")
			return nil
		}
	}

	first := next()
	require.True(t, first.OK())
	assert.Equal(t, uint64(1), first.Module.Globals()[0].InitialValue)

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	p.write(t, "util.lemon", "global u8 level = 7\n")
	second := next()
	require.True(t, second.OK(), "errors: %v", second.Errors)
	assert.Equal(t, uint64(7), second.Module.Globals()[0].InitialValue)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFormatOpCodesPreview(t *testing.T) {
	ops := []opcode.OpCode{{Cmd: opcode.Pop}, {Cmd: opcode.Pop}, {Cmd: opcode.Dup}}
	assert.Equal(t, "[]", formatOpCodesPreview(nil, 2))
	assert.Equal(t, "[Pop, Pop, ... (1 more)]", formatOpCodesPreview(ops, 2))
	assert.Equal(t, "[Pop, Pop, Dup]", formatOpCodesPreview(ops, 5))
}
