package cfg

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for CFGs, used by the CLI and tests.
type Printer struct {
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// PrintCFG returns the string representation of a CFG.
func PrintCFG(g *ControlFlowGraph) string {
	p := NewPrinter()
	p.printCFG(g)
	return p.output.String()
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printCFG(g *ControlFlowGraph) {
	p.writeLine("cfg %s:", g.Name)
	for i, block := range g.Blocks {
		name := block.Name
		if name == "" {
			name = fmt.Sprintf("block%d", i)
		}
		p.writeLine("  %s: ; #%d", name, i)
		for _, instr := range block.Instr {
			p.writeLine("    %s", FormatInstr(instr))
		}
	}
}

// FormatInstr renders one instruction on a single line.
func FormatInstr(instr Instr) string {
	switch t := instr.(type) {
	case *Set:
		return fmt.Sprintf("%%%d = %s", t.Res, FormatExpr(t.Expr))
	case *Call:
		return fmt.Sprintf("call fn#%d (%s)", t.Func, formatExprs(t.Args))
	case *Return:
		return "return " + formatExprs(t.Values)
	case *Branch:
		return fmt.Sprintf("br block%d", t.Block)
	case *BranchCond:
		return fmt.Sprintf("cbr %s, block%d, block%d", FormatExpr(t.Cond), t.True, t.False)
	case *LoadStorage:
		return fmt.Sprintf("%%%d = load storage %s %s", t.Res, t.Ty, FormatExpr(t.Storage))
	case *SetStorage:
		return fmt.Sprintf("store storage %s %s = %s", t.Ty, FormatExpr(t.Storage), FormatExpr(t.Value))
	case *ClearStorage:
		return fmt.Sprintf("clear storage %s %s", t.Ty, FormatExpr(t.Storage))
	case *PushStorage:
		return fmt.Sprintf("%%%d = push storage %s %s", t.Res, FormatExpr(t.Storage), FormatExpr(t.Value))
	case *PopStorage:
		return fmt.Sprintf("%%%d = pop storage %s", t.Res, FormatExpr(t.Storage))
	case *Constructor:
		accounts := "none"
		if t.Accounts != nil {
			accounts = FormatExpr(t.Accounts)
		}
		address := "none"
		if t.Address != nil {
			address = FormatExpr(t.Address)
		}
		return fmt.Sprintf("%%%d = constructor contract#%d fn#%d address=%s accounts=%s",
			t.Res, t.Contract, t.ConstructorNo, address, accounts)
	case *ExternalCall:
		return fmt.Sprintf("external call (%s) address=%s payload=%s", t.Kind,
			FormatExpr(t.Address), FormatExpr(t.Payload))
	case *AccountAccess:
		return fmt.Sprintf("%%%d = account %q", t.Res, t.Name)
	case *EmitEvent:
		return fmt.Sprintf("emit event#%d %s", t.EventNo, FormatExpr(t.Data))
	case *Print:
		return "print " + FormatExpr(t.Expr)
	case *AssertFailure:
		if t.Encoded == nil {
			return "assert-failure"
		}
		return "assert-failure " + FormatExpr(t.Encoded)
	case *ReturnData:
		return fmt.Sprintf("return data %s len %s", FormatExpr(t.Data), FormatExpr(t.DataLen))
	case *ReturnCode:
		return fmt.Sprintf("return code %d", t.Code)
	case *SelfDestruct:
		return "selfdestruct " + FormatExpr(t.Recipient)
	case *ValueTransfer:
		return fmt.Sprintf("value transfer %s to %s", FormatExpr(t.Value), FormatExpr(t.Address))
	case *Unreachable:
		return "unreachable"
	}
	return fmt.Sprintf("<%T>", instr)
}

// FormatExpr renders an expression tree in one line.
func FormatExpr(e Expression) string {
	switch t := e.(type) {
	case nil:
		return "none"
	case *NumberLiteral:
		return fmt.Sprintf("%s %s", t.Ty, t.Value)
	case *BoolLiteral:
		return fmt.Sprintf("%t", t.Value)
	case *BytesLiteral:
		return fmt.Sprintf("%s hex\"%x\"", t.Ty, t.Value)
	case *Variable:
		return fmt.Sprintf("%%%d", t.VarNo)
	case *FunctionArg:
		return fmt.Sprintf("arg#%d", t.ArgNo)
	case *Load:
		return fmt.Sprintf("load %s", FormatExpr(t.Expr))
	case *GetRef:
		return fmt.Sprintf("&%s", FormatExpr(t.Expr))
	case *StructMember:
		return fmt.Sprintf("%s.%d", FormatExpr(t.Expr), t.Member)
	case *StructLiteral:
		return fmt.Sprintf("struct %s { %s }", t.Ty, formatExprs(t.Values))
	case *ArrayLiteral:
		return fmt.Sprintf("%s [%s]", t.Ty, formatExprs(t.Values))
	case *Subscript:
		return fmt.Sprintf("%s[%s]", FormatExpr(t.Expr), FormatExpr(t.Index))
	case *Builtin:
		return fmt.Sprintf("builtin %s(%s)", t.Kind, formatExprs(t.Args))
	case *Cast:
		return fmt.Sprintf("(%s)%s", t.Ty, FormatExpr(t.Expr))
	case *Binary:
		return fmt.Sprintf("%s(%s, %s)", t.Op, FormatExpr(t.Left), FormatExpr(t.Right))
	}
	return fmt.Sprintf("<%T>", e)
}

func formatExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = FormatExpr(e)
	}
	return strings.Join(parts, ", ")
}
