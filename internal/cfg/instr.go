package cfg

import "basalt/internal/sema"

// Instr is the closed set of instruction variants. Passes rewrite an
// instruction by constructing a replacement value and substituting it at
// its position in the block, never by mutating through aliased pointers.
type Instr interface {
	instrNode()
}

// Set binds an expression's value to a local.
type Set struct {
	Res  int
	Expr Expression
}

// Call invokes an internal function.
type Call struct {
	Res  []int
	Func int
	Args []Expression
}

// Return leaves the current function.
type Return struct {
	Values []Expression
}

// Branch jumps unconditionally to another block.
type Branch struct {
	Block int
}

// BranchCond branches on a boolean condition.
type BranchCond struct {
	Cond  Expression
	True  int
	False int
}

// LoadStorage reads a value of the given type from storage.
type LoadStorage struct {
	Res     int
	Ty      sema.Type
	Storage Expression
}

// SetStorage writes a value to storage. Existing flags whether the
// destination previously held a value needing release bookkeeping.
type SetStorage struct {
	Ty       sema.Type
	Existing bool
	Storage  Expression
	Value    Expression
}

// ClearStorage recursively zeroes every slot a value of the type occupies.
type ClearStorage struct {
	Ty      sema.Type
	Storage Expression
}

// PushStorage appends to an array in storage. Value may be nil to push the
// element type's zero value.
type PushStorage struct {
	Res     int
	Ty      sema.Type
	Storage Expression
	Value   Expression
}

// PopStorage removes the last element of an array in storage. Res is -1
// when the popped value is discarded.
type PopStorage struct {
	Res     int
	Ty      sema.Type
	Storage Expression
}

// Constructor invokes another contract's constructor.
//
// Accounts is nil until the account-metadata synthesis pass resolves the
// callee's required account list; on targets without an account model it
// stays nil. ConstructorNo is -1 when the callee constructor could not be
// resolved. Success is -1 when failure should abort instead of branching.
type Constructor struct {
	Res           int
	Contract      int
	ConstructorNo int
	Success       int
	EncodedArgs   Expression
	Value         Expression
	Gas           Expression
	Salt          Expression
	Seeds         Expression
	Address       Expression
	Accounts      Expression
}

// CallKind selects the external call flavour.
type CallKind int

const (
	CallRegular CallKind = iota
	CallDelegate
	CallStatic
)

func (k CallKind) String() string {
	switch k {
	case CallDelegate:
		return "delegate"
	case CallStatic:
		return "static"
	}
	return "regular"
}

// ExternalCall invokes a method on another contract. Success is -1 when a
// failed call aborts; otherwise the status lands in that local so the
// program can branch on it.
type ExternalCall struct {
	Success  int
	Address  Expression
	Payload  Expression
	Value    Expression
	Gas      Expression
	Accounts Expression
	Seeds    Expression
	Kind     CallKind
}

// AccountAccess is a placeholder read of the named account associated with
// the current function. The synthesis pass rewrites every occurrence into a
// Set; none survive to code emission.
type AccountAccess struct {
	Res  int
	Name string
}

// EmitEvent writes an event to the host's log.
type EmitEvent struct {
	EventNo   int
	Signature string
	Data      Expression
	Topics    []Expression
}

// Print writes a debug string via the host.
type Print struct {
	Expr Expression
}

// AssertFailure aborts the executing program, optionally with an encoded
// revert payload.
type AssertFailure struct {
	Encoded Expression
}

// ReturnData returns ABI-encoded data to the caller.
type ReturnData struct {
	Data    Expression
	DataLen Expression
}

// ReturnCode terminates with a bare status code.
type ReturnCode struct {
	Code uint64
}

// SelfDestruct terminates the contract and sends remaining funds.
type SelfDestruct struct {
	Recipient Expression
}

// ValueTransfer sends value to an address.
type ValueTransfer struct {
	Success int
	Address Expression
	Value   Expression
}

// Unreachable marks a block that control flow can never reach at runtime.
type Unreachable struct{}

func (*Set) instrNode()           {}
func (*Call) instrNode()          {}
func (*Return) instrNode()        {}
func (*Branch) instrNode()        {}
func (*BranchCond) instrNode()    {}
func (*LoadStorage) instrNode()   {}
func (*SetStorage) instrNode()    {}
func (*ClearStorage) instrNode()  {}
func (*PushStorage) instrNode()   {}
func (*PopStorage) instrNode()    {}
func (*Constructor) instrNode()   {}
func (*ExternalCall) instrNode()  {}
func (*AccountAccess) instrNode() {}
func (*EmitEvent) instrNode()     {}
func (*Print) instrNode()         {}
func (*AssertFailure) instrNode() {}
func (*ReturnData) instrNode()    {}
func (*ReturnCode) instrNode()    {}
func (*SelfDestruct) instrNode()  {}
func (*ValueTransfer) instrNode() {}
func (*Unreachable) instrNode()   {}
