package cfg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"basalt/internal/sema"
)

func TestEdgesFollowBranchOperands(t *testing.T) {
	g := &ControlFlowGraph{Name: "edges"}
	entry := g.NewBlock("entry")
	left := g.NewBlock("left")
	right := g.NewBlock("right")
	exit := g.NewBlock("exit")

	g.Append(entry, &BranchCond{Cond: &BoolLiteral{Value: true}, True: left, False: right})
	g.Append(left, &Branch{Block: exit})
	g.Append(right, &Branch{Block: exit})
	g.Append(exit, &Return{})

	assert.Equal(t, []int{left, right}, g.Blocks[entry].Edges())
	assert.Equal(t, []int{exit}, g.Blocks[left].Edges())
	assert.Empty(t, g.Blocks[exit].Edges())
}

func TestEdgesSurviveInstructionRewrites(t *testing.T) {
	g := &ControlFlowGraph{Name: "rewrite"}
	a := g.NewBlock("a")
	b := g.NewBlock("b")
	g.Append(a, &AccountAccess{Res: 0, Name: "payer"})
	g.Append(a, &Branch{Block: b})

	// Replacing a non-branch instruction leaves the edge set untouched.
	g.Blocks[a].Instr[0] = &Set{Res: 0, Expr: &BoolLiteral{Value: true}}
	assert.Equal(t, []int{b}, g.Blocks[a].Edges())
}

func TestPrinterRendersBlocksAndInstructions(t *testing.T) {
	g := &ControlFlowGraph{Name: "demo"}
	entry := g.NewBlock("entry")
	g.Append(entry, &Set{Res: 2, Expr: &NumberLiteral{Ty: &sema.Uint{Bits: 64}, Value: big.NewInt(42)}})
	g.Append(entry, &Constructor{
		Res:           3,
		Contract:      1,
		ConstructorNo: 4,
		EncodedArgs:   &BytesLiteral{Ty: &sema.DynamicBytes{}, Value: []byte{0xff}},
		Address:       &Variable{Ty: &sema.Address{}, VarNo: 9},
	})
	g.Append(entry, &Return{})

	out := PrintCFG(g)

	assert.Contains(t, out, "cfg demo:")
	assert.Contains(t, out, "entry: ; #0")
	assert.Contains(t, out, "%2 = uint64 42")
	assert.Contains(t, out, "constructor contract#1 fn#4 address=%9 accounts=none")
	assert.Contains(t, out, "return")
}

func TestFormatExprNesting(t *testing.T) {
	expr := &Load{
		Ty: &sema.Ref{To: &sema.Address{}},
		Expr: &StructMember{
			Ty:     &sema.Ref{To: &sema.Ref{To: &sema.Address{}}},
			Member: 0,
			Expr: &Subscript{
				Ty:      &sema.Ref{To: sema.AccountInfoType()},
				ArrayTy: &sema.Array{Elem: sema.AccountInfoType()},
				Expr:    &Builtin{Tys: []sema.Type{&sema.Array{Elem: sema.AccountInfoType()}}, Kind: sema.BuiltinAccounts},
				Index:   &NumberLiteral{Ty: &sema.Uint{Bits: 32}, Value: big.NewInt(1)},
			},
		},
	}

	assert.Equal(t, "load builtin tx.accounts()[uint32 1].0", FormatExpr(expr))
}
