// Package translator renders a compiled node tree as C++ source, for exporting scripts
// into a native build.
package translator

import (
	"fmt"
	"io"
	"strings"

	"github.com/zurustar/lemonscript/pkg/compiler/node"
	"github.com/zurustar/lemonscript/pkg/compiler/token"
	"github.com/zurustar/lemonscript/pkg/datatype"
	"github.com/zurustar/lemonscript/pkg/program"
)

var cppTypes = map[*datatype.Type]string{
	datatype.Void:     "void",
	datatype.Bool:     "bool",
	datatype.U8:       "uint8",
	datatype.U16:      "uint16",
	datatype.U32:      "uint32",
	datatype.U64:      "uint64",
	datatype.S8:       "int8",
	datatype.S16:      "int16",
	datatype.S32:      "int32",
	datatype.S64:      "int64",
	datatype.String:   "StringRef",
	datatype.ConstInt: "int64",
}

// Translator writes C++ source text.
type Translator struct {
	out    strings.Builder
	indent int
	locals map[*program.LocalVariable]string
}

// TranslateToCpp writes every function of root to w. Pragmas in front of a function
// become comments.
func TranslateToCpp(w io.Writer, root *node.Block) error {
	t := &Translator{}
	for _, n := range root.Nodes {
		switch n := n.(type) {
		case *node.Pragma:
			t.line("// %s", n.Content)
		case *node.Function:
			if err := t.function(n); err != nil {
				return err
			}
			t.line("")
		}
	}
	_, err := io.WriteString(w, t.out.String())
	return err
}

// Identifier turns a lemonscript name into a C++ identifier; dots become underscores.
func Identifier(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// CppType returns the C++ spelling of a data type.
func CppType(dt *datatype.Type) string {
	if s, ok := cppTypes[dt]; ok {
		return s
	}
	return "void"
}

func (t *Translator) line(format string, args ...any) {
	if format != "" {
		t.out.WriteString(strings.Repeat("\t", t.indent))
	}
	fmt.Fprintf(&t.out, format+"\n", args...)
}

func (t *Translator) function(n *node.Function) error {
	fn := n.Function
	t.locals = make(map[*program.LocalVariable]string)
	used := make(map[string]bool)
	for _, v := range fn.LocalVariables {
		name := Identifier(v.Name())
		if used[name] {
			name = fmt.Sprintf("%s_%d", name, v.ID)
		}
		used[name] = true
		t.locals[v] = name
	}

	params := fn.Parameters()
	decl := make([]string, len(params))
	for i := range params {
		v := fn.LocalVariables[i]
		decl[i] = CppType(v.DataType()) + " " + t.locals[v]
	}
	t.line("%s %s(%s)", CppType(fn.ReturnType()), Identifier(fn.Name()), strings.Join(decl, ", "))
	t.line("{")
	t.indent++
	for _, v := range fn.LocalVariables[len(params):] {
		t.line("%s %s = 0;", CppType(v.DataType()), t.locals[v])
	}
	for _, child := range n.Content.Nodes {
		if err := t.node(child); err != nil {
			return err
		}
	}
	t.indent--
	t.line("}")
	return nil
}

// body writes the statement owned by a control flow node, always as a braced block.
func (t *Translator) body(n node.Node) error {
	t.line("{")
	t.indent++
	var err error
	if block, ok := n.(*node.Block); ok {
		for _, child := range block.Nodes {
			if err = t.node(child); err != nil {
				break
			}
		}
	} else {
		err = t.node(n)
	}
	t.indent--
	t.line("}")
	return err
}

func (t *Translator) node(n node.Node) error {
	switch n := n.(type) {
	case *node.Block:
		return t.body(n)
	case *node.Pragma:
		t.line("// %s", n.Content)
	case *node.Statement:
		if _, isDeclaration := n.Statement.(*token.VariableToken); !isDeclaration {
			t.line("%s;", t.expression(n.Statement, false))
		}
	case *node.If:
		t.line("if (%s)", t.expression(n.Condition, false))
		if err := t.body(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			t.line("else")
			return t.body(n.Else)
		}
	case *node.While:
		t.line("while (%s)", t.expression(n.Condition, false))
		return t.body(n.Content)
	case *node.For:
		t.line("for (%s; %s; %s)", t.optional(n.Initial), t.optional(n.Condition), t.optional(n.Iteration))
		return t.body(n.Content)
	case *node.Return:
		if n.Value == nil {
			t.line("return;")
		} else {
			t.line("return %s;", t.expression(n.Value, false))
		}
	case *node.External:
		if n.Kind == node.ExternalCall {
			t.line("callExternal(%s);", t.expression(n.Target, false))
		} else {
			t.line("jumpExternal(%s);", t.expression(n.Target, false))
			t.line("return;")
		}
	case *node.Jump:
		t.line("goto %s;", Identifier(n.Label))
	case *node.Label:
		t.line("%s:", Identifier(n.Name))
	case *node.Break:
		t.line("break;")
	case *node.Continue:
		t.line("continue;")
	default:
		return fmt.Errorf("line %d: cannot translate %T", n.Line(), n)
	}
	return nil
}

func (t *Translator) optional(s token.Statement) string {
	if s == nil {
		return ""
	}
	return t.expression(s, false)
}

// expression renders s. Nested operations are parenthesized.
func (t *Translator) expression(s token.Statement, nested bool) string {
	switch e := s.(type) {
	case *token.ConstantToken:
		switch {
		case e.Type() == datatype.Bool:
			return fmt.Sprintf("%t", e.Value != 0)
		case e.Type() == datatype.String:
			return fmt.Sprintf("StringRef(0x%016xull)", e.Value)
		case e.Type().Signed:
			return fmt.Sprintf("%d", int64(e.Value))
		}
		return fmt.Sprintf("%d", e.Value)

	case *token.VariableToken:
		if local, ok := e.Variable.(*program.LocalVariable); ok {
			if name, known := t.locals[local]; known {
				return name
			}
		}
		return Identifier(e.Variable.Name())

	case *token.FunctionCallToken:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = t.expression(arg, false)
		}
		return fmt.Sprintf("%s(%s)", Identifier(e.Function.Name()), strings.Join(args, ", "))

	case *token.MemoryAccessToken:
		return fmt.Sprintf("memory<%s>(%s)", CppType(e.Type()), t.expression(e.Address, false))

	case *token.ValueCastToken:
		return fmt.Sprintf("(%s)(%s)", CppType(e.Type()), t.expression(e.Argument, false))

	case *token.UnaryOperationToken:
		arg := t.expression(e.Argument, true)
		if e.Postfix {
			return arg + e.Op.String()
		}
		if e.Op == token.OpMinus && strings.HasPrefix(arg, "-") {
			return "- " + arg
		}
		return e.Op.String() + arg

	case *token.BinaryOperationToken:
		out := t.expression(e.Left, true) + " " + e.Op.String() + " " + t.expression(e.Right, true)
		if nested {
			return "(" + out + ")"
		}
		return out
	}
	return token.Format(s)
}
