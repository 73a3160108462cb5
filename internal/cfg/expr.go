package cfg

import (
	"math/big"

	"basalt/internal/sema"
)

// Expression is one node of the operand tree. Expressions are immutable
// once built: passes construct new trees and substitute them by whole-field
// replacement on an instruction, never by editing nodes in place.
type Expression interface {
	// Type is the resolved type of the value this expression produces.
	Type() sema.Type

	exprNode()
}

type NumberLiteral struct {
	Ty    sema.Type
	Value *big.Int
}

type BoolLiteral struct {
	Value bool
}

type BytesLiteral struct {
	Ty    sema.Type
	Value []byte
}

// Variable reads a numbered local.
type Variable struct {
	Ty    sema.Type
	VarNo int
}

// FunctionArg reads a positional argument of the current function.
type FunctionArg struct {
	Ty    sema.Type
	ArgNo int
}

// Load dereferences a reference.
type Load struct {
	Ty   sema.Type
	Expr Expression
}

// GetRef takes the address of a value.
type GetRef struct {
	Ty   sema.Type
	Expr Expression
}

// StructMember accesses a struct field by position.
type StructMember struct {
	Ty     sema.Type
	Expr   Expression
	Member int
}

type StructLiteral struct {
	Ty     sema.Type
	Values []Expression
}

type ArrayLiteral struct {
	Ty         sema.Type
	Dimensions []uint32
	Values     []Expression
}

// Subscript indexes into an array-typed value.
type Subscript struct {
	Ty      sema.Type
	ArrayTy sema.Type
	Expr    Expression
	Index   Expression
}

// Builtin is a target-specific builtin expression; it is lowered by the
// target runtime, not by generic code.
type Builtin struct {
	Tys  []sema.Type
	Kind sema.Builtin
	Args []Expression
}

type Cast struct {
	Ty   sema.Type
	Expr Expression
}

// Binary is a two-operand arithmetic or comparison operation.
type Binary struct {
	Ty    sema.Type
	Op    BinaryOp
	Left  Expression
	Right Expression
}

type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpEq  BinaryOp = "eq"
	OpLt  BinaryOp = "lt"
)

func (e *NumberLiteral) Type() sema.Type { return e.Ty }
func (e *BoolLiteral) Type() sema.Type   { return &sema.Bool{} }
func (e *BytesLiteral) Type() sema.Type  { return e.Ty }
func (e *Variable) Type() sema.Type      { return e.Ty }
func (e *FunctionArg) Type() sema.Type   { return e.Ty }
func (e *Load) Type() sema.Type          { return e.Ty }
func (e *GetRef) Type() sema.Type        { return e.Ty }
func (e *StructMember) Type() sema.Type  { return e.Ty }
func (e *StructLiteral) Type() sema.Type { return e.Ty }
func (e *ArrayLiteral) Type() sema.Type  { return e.Ty }
func (e *Subscript) Type() sema.Type     { return e.Ty }
func (e *Cast) Type() sema.Type          { return e.Ty }
func (e *Binary) Type() sema.Type        { return e.Ty }

func (e *Builtin) Type() sema.Type {
	if len(e.Tys) > 0 {
		return e.Tys[0]
	}
	return nil
}

func (*NumberLiteral) exprNode() {}
func (*BoolLiteral) exprNode()   {}
func (*BytesLiteral) exprNode()  {}
func (*Variable) exprNode()      {}
func (*FunctionArg) exprNode()   {}
func (*Load) exprNode()          {}
func (*GetRef) exprNode()        {}
func (*StructMember) exprNode()  {}
func (*StructLiteral) exprNode() {}
func (*ArrayLiteral) exprNode()  {}
func (*Subscript) exprNode()     {}
func (*Builtin) exprNode()       {}
func (*Cast) exprNode()          {}
func (*Binary) exprNode()        {}
