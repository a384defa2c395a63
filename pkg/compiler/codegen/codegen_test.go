package codegen

import (
	"errors"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/lemonscript/pkg/compiler/diag"
	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/opcode"
	"github.com/zurustar/lemonscript/pkg/program"
)

type fixture struct {
	module *program.Module
	fn     *program.ScriptFunction
}

func newFixture(rt *datatype.Type, params ...program.Parameter) *fixture {
	m := program.NewModule("test")
	fn := m.AddScriptFunction("f", rt, params)
	for _, p := range params {
		fn.AddLocalVariable(p.Name, p.Type, 1)
	}
	fn.LineNumber = 1
	return &fixture{module: m, fn: fn}
}

func (f *fixture) local(name string, dt *datatype.Type) *token.VariableToken {
	return variable(f.fn.AddLocalVariable(name, dt, 2))
}

func (f *fixture) build(nodes ...node.Node) ([]string, error) {
	fc := New(f.fn, Config{ExternalAddressType: datatype.U64})
	fc.ProcessParameters()
	if err := fc.BuildOpcodesForFunction(&node.Block{Pos: node.At(2), Nodes: nodes}); err != nil {
		return nil, err
	}
	return opcodeStrings(f.fn.Opcodes), nil
}

func opcodeStrings(ops []opcode.OpCode) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func variable(v token.Variable) *token.VariableToken {
	t := &token.VariableToken{Variable: v}
	t.SetType(v.DataType())
	return t
}

func binary(op token.Operator, left, right token.Statement, dt *datatype.Type) *token.BinaryOperationToken {
	t := &token.BinaryOperationToken{Op: op, Left: left, Right: right}
	t.SetType(dt)
	return t
}

func postfix(op token.Operator, arg token.Statement) *token.UnaryOperationToken {
	t := &token.UnaryOperationToken{Op: op, Argument: arg, Postfix: true}
	t.SetType(arg.Type())
	return t
}

func statement(s token.Statement) *node.Statement {
	return &node.Statement{Pos: node.At(3), Statement: s}
}

func u8(v uint64) *token.ConstantToken {
	return token.NewConstant(v, datatype.U8)
}

func TestProcessParameters(t *testing.T) {
	f := newFixture(datatype.Void,
		program.Parameter{Name: "a", Type: datatype.U8},
		program.Parameter{Name: "b", Type: datatype.U16})

	got, err := f.build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := []string{
		"WriteVariable<u16> $b 1",
		"Pop",
		"WriteVariable<u8> $a 0",
		"Pop",
		"Return<void>",
	}
	if !slices.Equal(got, want) {
		t.Errorf("opcodes = %q, want %q", got, want)
	}
}

func TestWhileWithBreakAndContinue(t *testing.T) {
	f := newFixture(datatype.Void)
	i := f.local("i", datatype.U8)

	got, err := f.build(&node.While{
		Pos:       node.At(3),
		Condition: binary(token.OpLess, i, u8(10), datatype.Bool),
		Content: &node.Block{Pos: node.At(4), Nodes: []node.Node{
			statement(postfix(token.OpIncrement, i)),
			&node.If{
				Pos:       node.At(6),
				Condition: binary(token.OpEqual, i, u8(5), datatype.Bool),
				Then:      &node.Break{Pos: node.At(7)},
			},
			&node.Continue{Pos: node.At(8)},
		}},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := []string{
		"ReadVariable<u8> $i 0",
		"PushConstant<u8> 10",
		`BinaryOp<u8> "<"`,
		"JumpIfZero 18",
		"ReadVariable<u8> $i 0",
		"PushConstant<u8> 1",
		`BinaryOp<u8> "+"`,
		"WriteVariable<u8> $i 0",
		"PushConstant<u8> 1",
		`BinaryOp<u8> "-"`,
		"Pop",
		"ReadVariable<u8> $i 0",
		"PushConstant<u8> 5",
		`BinaryOp<u8> "=="`,
		"JumpIfZero 16",
		"Jump 18",
		"Jump 0",
		"Jump 0",
		"Return<void>",
	}
	if !slices.Equal(got, want) {
		t.Errorf("opcodes = %q, want %q", got, want)
	}
}

func TestForLoop(t *testing.T) {
	t.Run("continue jumps to the iteration", func(t *testing.T) {
		f := newFixture(datatype.Void)
		i := f.local("i", datatype.U8)

		got, err := f.build(&node.For{
			Pos:       node.At(3),
			Initial:   binary(token.OpAssign, i, u8(0), datatype.U8),
			Condition: binary(token.OpLess, i, u8(3), datatype.Bool),
			Iteration: postfix(token.OpIncrement, i),
			Content:   &node.Continue{Pos: node.At(4)},
		})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		want := []string{
			"PushConstant<u8> 0",
			"WriteVariable<u8> $i 0",
			"Pop",
			"ReadVariable<u8> $i 0",
			"PushConstant<u8> 3",
			`BinaryOp<u8> "<"`,
			"JumpIfZero 16",
			"Jump 8",
			"ReadVariable<u8> $i 0",
			"PushConstant<u8> 1",
			`BinaryOp<u8> "+"`,
			"WriteVariable<u8> $i 0",
			"PushConstant<u8> 1",
			`BinaryOp<u8> "-"`,
			"Pop",
			"Jump 3",
			"Return<void>",
		}
		if !slices.Equal(got, want) {
			t.Errorf("opcodes = %q, want %q", got, want)
		}
	})

	t.Run("empty header loops until break", func(t *testing.T) {
		f := newFixture(datatype.Void)
		got, err := f.build(&node.For{Pos: node.At(3), Content: &node.Break{Pos: node.At(4)}})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		want := []string{"Jump 2", "Jump 0", "Return<void>"}
		if !slices.Equal(got, want) {
			t.Errorf("opcodes = %q, want %q", got, want)
		}
	})
}

func TestIfElse(t *testing.T) {
	f := newFixture(datatype.U8, program.Parameter{Name: "p", Type: datatype.U8})
	p := variable(f.fn.LocalVariables[0])

	got, err := f.build(&node.If{
		Pos:       node.At(3),
		Condition: p,
		Then:      &node.Return{Pos: node.At(4), Value: u8(1)},
		Else:      &node.Return{Pos: node.At(6), Value: u8(2)},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := []string{
		"WriteVariable<u8> $p 0",
		"Pop",
		"ReadVariable<u8> $p 0",
		"JumpIfZero 7",
		"PushConstant<u8> 1",
		"Return<u8>",
		"Jump 9",
		"PushConstant<u8> 2",
		"Return<u8>",
		"PushConstant<u8> 0",
		"Return<u8>",
	}
	if !slices.Equal(got, want) {
		t.Errorf("opcodes = %q, want %q", got, want)
	}
}

func TestExpressions(t *testing.T) {
	t.Run("short circuit and", func(t *testing.T) {
		f := newFixture(datatype.Void)
		a, b := f.local("a", datatype.Bool), f.local("b", datatype.Bool)

		got, err := f.build(statement(binary(token.OpLogicalAnd, a, b, datatype.Bool)))
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		want := []string{
			"ReadVariable<bool> $a 0",
			"Dup",
			"JumpIfZero 5",
			"Pop",
			"ReadVariable<bool> $b 1",
			"Pop",
			"Return<void>",
		}
		if !slices.Equal(got, want) {
			t.Errorf("opcodes = %q, want %q", got, want)
		}
	})

	t.Run("compound assignment to memory", func(t *testing.T) {
		f := newFixture(datatype.Void)
		a0 := variable(f.module.AddExternalVariable("A0", datatype.U32))
		mem := &token.MemoryAccessToken{Address: a0}
		mem.SetType(datatype.U16)

		got, err := f.build(statement(binary(token.OpAssignPlus, mem, token.NewConstant(2, datatype.U16), datatype.U16)))
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		want := []string{
			"ReadVariable<u32> $A0 -1",
			"Dup",
			"ReadMemory<u16>",
			"PushConstant<u16> 2",
			`BinaryOp<u16> "+"`,
			"WriteMemory<u16>",
			"Pop",
			"Return<void>",
		}
		if !slices.Equal(got, want) {
			t.Errorf("opcodes = %q, want %q", got, want)
		}
	})

	t.Run("native call and external call", func(t *testing.T) {
		f := newFixture(datatype.Void)
		rand := &token.FunctionCallToken{Function: f.module.AddNativeFunction("System.rand", datatype.U32, nil)}
		rand.SetType(datatype.U32)

		got, err := f.build(&node.External{Pos: node.At(3), Kind: node.ExternalCall, Target: rand})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		want := []string{`Call<u32> "System.rand" 0 true`, "ExternalCall<u64>", "Return<void>"}
		if !slices.Equal(got, want) {
			t.Errorf("opcodes = %q, want %q", got, want)
		}
	})

	t.Run("declaration produces no code", func(t *testing.T) {
		f := newFixture(datatype.Void)
		got, err := f.build(statement(f.local("x", datatype.U32)))
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if !slices.Equal(got, []string{"Return<void>"}) {
			t.Errorf("opcodes = %q", got)
		}
	})
}

func TestLabels(t *testing.T) {
	f := newFixture(datatype.Void)
	_, err := f.build(&node.Label{Pos: node.At(3), Name: "top"}, &node.Jump{Pos: node.At(4), Label: "top"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got := f.fn.Labels["top"]; got != 0 {
		t.Errorf("label top = %d, want 0", got)
	}
	if got := f.fn.Opcodes[0].String(); got != "Jump 0" {
		t.Errorf("first opcode = %q, want %q", got, "Jump 0")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		rt    *datatype.Type
		nodes []node.Node
		want  error
		line  int
	}{
		{
			name:  "unknown label",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Jump{Pos: node.At(5), Label: "missing"}},
			want:  diag.ErrUnknownLabel,
			line:  5,
		},
		{
			name:  "duplicate label",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Label{Pos: node.At(3), Name: "a"}, &node.Label{Pos: node.At(4), Name: "a"}},
			want:  diag.ErrDuplicateSymbol,
			line:  4,
		},
		{
			name:  "break outside of a loop",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Break{Pos: node.At(6)}},
			want:  diag.ErrMalformedStatement,
			line:  6,
		},
		{
			name:  "continue outside of a loop",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Continue{Pos: node.At(7)}},
			want:  diag.ErrMalformedStatement,
			line:  7,
		},
		{
			name:  "void function returning a value",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Return{Pos: node.At(8), Value: u8(1)}},
			want:  diag.ErrTypeMismatch,
			line:  8,
		},
		{
			name:  "missing return value",
			rt:    datatype.U16,
			nodes: []node.Node{&node.Return{Pos: node.At(9)}},
			want:  diag.ErrTypeMismatch,
			line:  9,
		},
		{
			name:  "unclassified node",
			rt:    datatype.Void,
			nodes: []node.Node{&node.Else{Pos: node.At(10)}},
			want:  diag.ErrMalformedStatement,
			line:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFixture(tt.rt).build(tt.nodes...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var de *diag.Error
			if errors.As(err, &de) && de.Line != tt.line {
				t.Errorf("line = %d, want %d", de.Line, tt.line)
			}
		})
	}
}

// nestedLoops builds depth nested while loops with a break in the innermost one
// and a continue in every other level.
func nestedLoops(depth int) node.Node {
	var inner node.Node = &node.Break{Pos: node.At(depth + 3)}
	for level := depth; level > 0; level-- {
		body := &node.Block{Pos: node.At(level + 2), Nodes: []node.Node{inner}}
		if level%2 == 0 {
			body.Add(&node.Continue{Pos: node.At(level + 2)})
		}
		inner = &node.While{Pos: node.At(level + 2), Condition: token.NewConstant(1, datatype.Bool), Content: body}
	}
	return inner
}

func TestProperty_JumpTargetsStayInsideFunction(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("all jumps of nested loops target an opcode of the function", prop.ForAll(
		func(depth int) bool {
			f := newFixture(datatype.Void)
			if _, err := f.build(nestedLoops(depth)); err != nil {
				return false
			}
			ops := f.fn.Opcodes
			if ops[len(ops)-1].Cmd != opcode.Return {
				return false
			}
			for _, op := range ops {
				switch op.Cmd {
				case opcode.Jump, opcode.JumpIfZero, opcode.JumpIfNotZero:
					target, ok := op.Args[0].(int)
					if !ok || target < 0 || target >= len(ops) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
