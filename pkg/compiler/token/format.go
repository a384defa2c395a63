package token

import (
	"fmt"
	"strings"

	"github.com/zurustar/lemonscript/pkg/datatype"
)

// Format renders a token back into source-like text.
func Format(t Token) string {
	var sb strings.Builder
	write(&sb, t, false)
	return sb.String()
}

// FormatList renders a token list separated by spaces.
func FormatList(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = Format(t)
	}
	return strings.Join(parts, " ")
}

func write(sb *strings.Builder, t Token, nested bool) {
	switch t := t.(type) {
	case *KeywordToken:
		sb.WriteString(t.Keyword.String())
	case *VarTypeToken:
		sb.WriteString(t.DataType.String())
	case *OperatorToken:
		sb.WriteString(t.Op.String())
	case *LabelToken:
		sb.WriteString("@" + t.Name)
	case *IdentifierToken:
		sb.WriteString(t.Name)
	case *ParenthesisToken:
		open, close := "(", ")"
		if t.Bracket {
			open, close = "[", "]"
		}
		sb.WriteString(open + FormatList(t.Content) + close)
	case *CommaListToken:
		for i, item := range t.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatList(item))
		}
	case *ConstantToken:
		switch t.DataType {
		case datatype.Bool:
			if t.Value != 0 {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
		case datatype.String:
			fmt.Fprintf(sb, "string#%016x", t.Value)
		default:
			if t.DataType != nil && t.DataType.Signed {
				fmt.Fprintf(sb, "%d", int64(t.Value))
			} else {
				fmt.Fprintf(sb, "%d", t.Value)
			}
		}
	case *VariableToken:
		sb.WriteString(t.Variable.Name())
	case *FunctionCallToken:
		sb.WriteString(t.Function.Name() + "(")
		for i, arg := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, arg, false)
		}
		sb.WriteString(")")
	case *MemoryAccessToken:
		sb.WriteString(t.DataType.String() + "[")
		write(sb, t.Address, false)
		sb.WriteString("]")
	case *ValueCastToken:
		sb.WriteString(t.DataType.String() + "(")
		write(sb, t.Argument, false)
		sb.WriteString(")")
	case *UnaryOperationToken:
		if t.Postfix {
			write(sb, t.Argument, true)
			sb.WriteString(t.Op.String())
		} else {
			sb.WriteString(t.Op.String())
			write(sb, t.Argument, true)
		}
	case *BinaryOperationToken:
		if nested {
			sb.WriteString("(")
		}
		write(sb, t.Left, true)
		sb.WriteString(" " + t.Op.String() + " ")
		write(sb, t.Right, true)
		if nested {
			sb.WriteString(")")
		}
	default:
		sb.WriteString("<?>")
	}
}
