package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/source"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/fileutil"
	"github.com/zurustar/lemonscript/pkg/opcode"
	"github.com/zurustar/lemonscript/pkg/program"
)

type testEnv struct {
	compiler *Compiler
	module   *program.Module
	lookup   *program.GlobalsLookup
}

func newTestEnv(files fstest.MapFS, opts CompileOptions) *testEnv {
	m := program.NewModule("test")
	l := program.NewGlobalsLookup()

	print := m.AddNativeFunction("System.print", datatype.Void, []program.Parameter{{Name: "text", Type: datatype.String}})
	_ = l.RegisterFunction(print)
	_ = l.RegisterVariable(m.AddExternalVariable("D0", datatype.U32))

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &testEnv{
		compiler: NewWithFS(m, l, opts, fileutil.NewFSys(files)),
		module:   m,
		lookup:   l,
	}
}

func script(lines ...string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(strings.Join(lines, "\n"))}
}

// compileScript compiles main.lemon with the given lines.
func compileScript(t *testing.T, lines ...string) *testEnv {
	t.Helper()
	env := newTestEnv(fstest.MapFS{"main.lemon": script(lines...)}, CompileOptions{})
	if !env.compiler.LoadScript("main.lemon") {
		t.Fatalf("LoadScript failed: %v", env.compiler.Err())
	}
	return env
}

// compileFailure compiles main.lemon and returns its single error.
func compileFailure(t *testing.T, lines ...string) ErrorMessage {
	t.Helper()
	env := newTestEnv(fstest.MapFS{"main.lemon": script(lines...)}, CompileOptions{})
	if env.compiler.LoadScript("main.lemon") {
		t.Fatalf("LoadScript succeeded, expected an error")
	}
	errs := env.compiler.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d: %v", len(errs), errs)
	}
	return errs[0]
}

func (e *testEnv) function(t *testing.T, name string) *node.Function {
	t.Helper()
	for _, n := range e.compiler.Root().Nodes {
		if fn, ok := n.(*node.Function); ok && fn.Function.Name() == name {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func TestLoadScript(t *testing.T) {
	env := compileScript(t,
		"global u16 score = 5",
		"global s8 offset = -1",
		"define u8 LIMIT = 10",
		"define INDEX = u16[0x1000]",
		"",
		"//# inline",
		"//# hot",
		"function void main()",
		"{",
		"	score = helper(LIMIT)",
		"	score = INDEX",
		`	System.print("hello")`,
		"}",
		"",
		"function u16 helper(u8 value)",
		"{",
		"	return value * 2",
		"}",
	)

	functions := env.module.ScriptFunctions()
	if len(functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(functions))
	}
	main := functions[0]
	if main.Name() != "main" || strings.Join(main.Pragmas, ",") != "inline,hot" {
		t.Errorf("main = %s with pragmas %q", main.Name(), main.Pragmas)
	}
	if functions[1].Pragmas != nil {
		t.Errorf("helper must not get pragmas, got %q", functions[1].Pragmas)
	}
	for _, fn := range functions {
		if len(fn.Opcodes) == 0 {
			t.Errorf("function %s has no opcodes", fn.Name())
		}
	}

	globals := env.module.Globals()
	if len(globals) != 2 || globals[0].InitialValue != 5 || globals[1].InitialValue != 0xff {
		t.Errorf("unexpected globals %+v", globals)
	}
	if d := env.lookup.DefineByName("INDEX"); d == nil || d.DataType != datatype.U16 {
		t.Errorf("define INDEX = %+v, want u16", d)
	}
	if env.module.StringLiteralByHash(program.HashString("hello")) == nil {
		t.Error("string literal was not interned")
	}

	// globals and defines are removed from the tree, pragmas stay
	for _, n := range env.compiler.Root().Nodes {
		switch n.(type) {
		case *node.Function, *node.Pragma:
		default:
			t.Errorf("unexpected top level node %T", n)
		}
	}
}

func TestLoadScript_SourceLocation(t *testing.T) {
	files := fstest.MapFS{
		"game/main.lemon": script(
			"// main",
			"include lib/util",
			"function void main()",
			"{",
			"}",
		),
		"game/lib/util.lemon": script(
			"// util",
			"",
			"function u8 twice(u8 x)",
			"{",
			"	return x + x",
			"}",
		),
	}
	env := newTestEnv(files, CompileOptions{})
	if !env.compiler.LoadScript("game/main.lemon") {
		t.Fatalf("LoadScript failed: %v", env.compiler.Err())
	}

	twice := env.module.ScriptFunctions()[0]
	if twice.SourceFilename != "game/lib/util.lemon" {
		t.Errorf("SourceFilename = %q", twice.SourceFilename)
	}
	if got := twice.SourceLine(twice.LineNumber); got != 3 {
		t.Errorf("twice declared at line %d of its file, want 3", got)
	}
	main := env.module.ScriptFunctions()[1]
	if main.SourceFilename != "game/main.lemon" || main.SourceLine(main.LineNumber) != 3 {
		t.Errorf("main at %s:%d", main.SourceFilename, main.SourceLine(main.LineNumber))
	}
	if len(env.compiler.ScriptFiles()) != 2 {
		t.Errorf("expected 2 script files, got %d", len(env.compiler.ScriptFiles()))
	}
}

func TestLoadScript_ErrorLocation(t *testing.T) {
	files := fstest.MapFS{
		"main.lemon": script(
			"include helper",
			"function void main()",
			"{",
			"	helper()",
			"}",
		),
		"helper.lemon": script(
			"function void helper()",
			"{",
			"	u8 a = 1",
			"	a = missing + 1",
			"}",
		),
	}
	env := newTestEnv(files, CompileOptions{})
	if env.compiler.LoadScript("main.lemon") {
		t.Fatal("LoadScript succeeded, expected an error")
	}
	errs := env.compiler.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	msg := errs[0]
	if msg.Filename != "helper.lemon" || msg.LineNumber != 4 {
		t.Errorf("error at %s:%d, want helper.lemon:4", msg.Filename, msg.LineNumber)
	}
	if !errors.Is(&msg, diag.ErrUnknownIdentifier) {
		t.Errorf("error code = %v, want UnknownIdentifier", msg.Code)
	}
	if !strings.Contains(msg.Context, "> 4 | \ta = missing + 1") {
		t.Errorf("context does not mark the failing line:\n%s", msg.Context)
	}
}

func TestLoadScript_Rollback(t *testing.T) {
	files := fstest.MapFS{
		"good.lemon": script(
			"global u8 kept",
			"function void ok()",
			"{",
			"}",
		),
		"bad.lemon": script(
			"global u8 dropped",
			`define string GREETING = "hi"`,
			"function void first()",
			"{",
			`	System.print("only in bad")`,
			"}",
			"function void second()",
			"{",
			"	first(",
			"}",
		),
		"retry.lemon": script(
			"global u8 dropped",
			"function void first()",
			"{",
			"}",
		),
	}
	env := newTestEnv(files, CompileOptions{})
	if !env.compiler.LoadScript("good.lemon") {
		t.Fatalf("good.lemon failed: %v", env.compiler.Err())
	}
	before := env.module.Summary()

	if env.compiler.LoadScript("bad.lemon") {
		t.Fatal("bad.lemon should fail")
	}
	after := env.module.Summary()
	if fmt.Sprint(before) != fmt.Sprint(after) {
		t.Errorf("module changed by failed compile:\nbefore %+v\nafter  %+v", before, after)
	}
	for _, name := range []string{"dropped", "first", "second"} {
		if env.lookup.VariableByName(name) != nil || len(env.lookup.FunctionsByName(name)) != 0 {
			t.Errorf("%s still registered after rollback", name)
		}
	}
	if env.compiler.Root() != nil {
		t.Error("Root must be nil after a failed compile")
	}

	// the names of the failed run are free again
	if !env.compiler.LoadScript("retry.lemon") {
		t.Errorf("compiling after rollback failed: %v", env.compiler.Err())
	}
}

func chainFiles(n int) fstest.MapFS {
	files := fstest.MapFS{}
	for i := 1; i <= n; i++ {
		lines := []string{fmt.Sprintf("global u8 g%d", i)}
		if i < n {
			lines = append(lines, fmt.Sprintf("include f%d", i+1))
		}
		files[fmt.Sprintf("f%d.lemon", i)] = script(lines...)
	}
	return files
}

func TestLoadScript_IncludeDepth(t *testing.T) {
	ok := newTestEnv(chainFiles(source.MaxIncludeDepth-1), CompileOptions{})
	if !ok.compiler.LoadScript("f1.lemon") {
		t.Fatalf("%d nested files should compile: %v", source.MaxIncludeDepth-1, ok.compiler.Err())
	}
	if got := len(ok.module.Globals()); got != source.MaxIncludeDepth-1 {
		t.Errorf("expected %d globals, got %d", source.MaxIncludeDepth-1, got)
	}

	fail := newTestEnv(chainFiles(source.MaxIncludeDepth), CompileOptions{})
	if fail.compiler.LoadScript("f1.lemon") {
		t.Fatalf("%d nested files should fail", source.MaxIncludeDepth)
	}
	msg := fail.compiler.Errors()[0]
	if !errors.Is(&msg, diag.ErrRecursionLimit) {
		t.Errorf("code = %v, want RecursionLimit", msg.Code)
	}
	innermost := fmt.Sprintf("f%d.lemon", source.MaxIncludeDepth)
	if !strings.Contains(msg.Message, "'"+innermost+"'") {
		t.Errorf("message should name %s: %q", innermost, msg.Message)
	}
	includer := fmt.Sprintf("f%d.lemon", source.MaxIncludeDepth-1)
	if msg.Filename != includer || msg.LineNumber != 2 {
		t.Errorf("error at %s:%d, want %s:2", msg.Filename, msg.LineNumber, includer)
	}
	if len(fail.module.Globals()) != 0 {
		t.Error("failed load must not leave globals behind")
	}
}

func TestLoadScript_MissingFile(t *testing.T) {
	env := newTestEnv(fstest.MapFS{}, CompileOptions{})
	if env.compiler.LoadScript("nothing.lemon") {
		t.Fatal("LoadScript succeeded for a missing file")
	}
	msg := env.compiler.Errors()[0]
	if !errors.Is(&msg, diag.ErrFileNotFound) || msg.Filename != "nothing.lemon" || msg.LineNumber != 0 {
		t.Errorf("unexpected error %+v", msg)
	}
}

func TestLoadScript_PreprocessorDefinitions(t *testing.T) {
	files := fstest.MapFS{"main.lemon": script(
		"#if FAST",
		"global u8 speed = 2",
		"#else",
		"global u8 speed = 1",
		"#endif",
		"/* global u8 commented */",
	)}
	env := newTestEnv(files, CompileOptions{PreprocessorDefinitions: map[string]int64{"FAST": 1}})
	if !env.compiler.LoadScript("main.lemon") {
		t.Fatalf("LoadScript failed: %v", env.compiler.Err())
	}
	globals := env.module.Globals()
	if len(globals) != 1 || globals[0].InitialValue != 2 {
		t.Errorf("unexpected globals %+v", globals)
	}
}

func TestLoadScript_Outputs(t *testing.T) {
	dir := t.TempDir()
	combined := filepath.Join(dir, "combined.lemon")
	translated := filepath.Join(dir, "translated.cpp")

	files := fstest.MapFS{
		"main.lemon": script("include part", "function void main()", "{", "	Game.tick()", "}"),
		"part.lemon": script("function void Game.tick()", "{", "}"),
	}
	env := newTestEnv(files, CompileOptions{OutputCombinedSource: combined, OutputTranslatedSource: translated})
	if !env.compiler.LoadScript("main.lemon") {
		t.Fatalf("LoadScript failed: %v", env.compiler.Err())
	}

	data, err := os.ReadFile(combined)
	if err != nil {
		t.Fatalf("combined source not written: %v", err)
	}
	want := "function void Game.tick()\r\n{\r\n}\r\nfunction void main()\r\n{\r\n\tGame.tick()\r\n}\r\n"
	if string(data) != want {
		t.Errorf("combined source = %q, want %q", data, want)
	}

	data, err = os.ReadFile(translated)
	if err != nil {
		t.Fatalf("translated source not written: %v", err)
	}
	if !strings.Contains(string(data), "void Game_tick()") || !strings.Contains(string(data), "\tGame_tick();") {
		t.Errorf("unexpected translation:\n%s", data)
	}
}

func TestLoadScript_ExternalAddressType(t *testing.T) {
	files := fstest.MapFS{"main.lemon": script(
		"function void main()",
		"{",
		"	u64 target = 0x100000000",
		"	call target",
		"	jump D0",
		"}",
	)}

	tests := []struct {
		name     string
		opts     CompileOptions
		expected *datatype.Type
	}{
		{"default", CompileOptions{}, datatype.U32},
		{"u64", CompileOptions{ExternalAddressType: datatype.U64}, datatype.U64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(files, tt.opts)
			if !env.compiler.LoadScript("main.lemon") {
				t.Fatalf("LoadScript failed: %v", env.compiler.Err())
			}
			var external []opcode.Cmd
			for _, op := range env.module.ScriptFunctions()[0].Opcodes {
				if op.Cmd == opcode.ExternalCall || op.Cmd == opcode.ExternalJump {
					external = append(external, op.Cmd)
					if op.DataType != tt.expected {
						t.Errorf("%s uses %s addresses, want %s", op.Cmd, op.DataType, tt.expected)
					}
				}
			}
			if len(external) != 2 || external[0] != opcode.ExternalCall || external[1] != opcode.ExternalJump {
				t.Errorf("external opcodes = %v", external)
			}
		})
	}
}
