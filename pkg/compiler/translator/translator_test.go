package translator

import (
	"strings"
	"testing"

	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

func variable(v token.Variable) *token.VariableToken {
	t := &token.VariableToken{Variable: v}
	t.SetType(v.DataType())
	return t
}

func binary(op token.Operator, left, right token.Statement) *token.BinaryOperationToken {
	t := &token.BinaryOperationToken{Op: op, Left: left, Right: right}
	t.SetType(left.Type())
	return t
}

func TestTranslateToCpp(t *testing.T) {
	m := program.NewModule("test")
	fn := m.AddScriptFunction("Game.update", datatype.U16, []program.Parameter{{Name: "a", Type: datatype.U8}})
	a := variable(fn.AddLocalVariable("a", datatype.U8, 1))
	i := variable(fn.AddLocalVariable("i", datatype.U8, 3))
	shadow := variable(fn.AddLocalVariable("i", datatype.U8, 5))
	mem := &token.MemoryAccessToken{Address: variable(m.AddExternalVariable("A0.u16", datatype.U32))}
	mem.SetType(datatype.U16)
	inc := &token.UnaryOperationToken{Op: token.OpIncrement, Argument: i, Postfix: true}
	inc.SetType(datatype.U8)

	root := &node.Block{Nodes: []node.Node{
		&node.Pragma{Pos: node.At(1), Content: "inline"},
		&node.Function{Pos: node.At(2), Function: fn, Content: &node.Block{Pos: node.At(3), Nodes: []node.Node{
			&node.For{
				Pos:       node.At(4),
				Initial:   binary(token.OpAssign, i, token.NewConstant(0, datatype.U8)),
				Condition: binary(token.OpLess, i, a),
				Iteration: inc,
				Content: &node.Block{Pos: node.At(5), Nodes: []node.Node{
					&node.Statement{Pos: node.At(6), Statement: binary(token.OpAssign, shadow, i)},
				}},
			},
			&node.If{
				Pos:       node.At(8),
				Condition: binary(token.OpEqual, a, token.NewConstant(0, datatype.U8)),
				Then:      &node.Jump{Pos: node.At(9), Label: "done"},
				Else:      &node.External{Pos: node.At(11), Kind: node.ExternalCall, Target: token.NewConstant(0x1000, datatype.U32)},
			},
			&node.Label{Pos: node.At(12), Name: "done"},
			&node.Return{Pos: node.At(13), Value: binary(token.OpPlus, a, binary(token.OpMultiply, mem, token.NewConstant(uint64(0xffff_ffff_ffff_fffe), datatype.S16)))},
		}}},
	}}

	var sb strings.Builder
	if err := TranslateToCpp(&sb, root); err != nil {
		t.Fatalf("TranslateToCpp failed: %v", err)
	}

	want := strings.Join([]string{
		"// inline",
		"uint16 Game_update(uint8 a)",
		"{",
		"\tuint8 i = 0;",
		"\tuint8 i_2 = 0;",
		"\tfor (i = 0; i < a; i++)",
		"\t{",
		"\t\ti_2 = i;",
		"\t}",
		"\tif (a == 0)",
		"\t{",
		"\t\tgoto done;",
		"\t}",
		"\telse",
		"\t{",
		"\t\tcallExternal(4096);",
		"\t}",
		"\tdone:",
		"\treturn a + (memory<uint16>(A0_u16) * -2);",
		"}",
		"",
		"",
	}, "\n")
	if got := sb.String(); got != want {
		t.Errorf("TranslateToCpp() =\n%s\nwant\n%s", got, want)
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"System.rand", "System_rand"},
		{"D0.u16", "D0_u16"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Identifier(tt.name); got != tt.expected {
			t.Errorf("Identifier(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}
