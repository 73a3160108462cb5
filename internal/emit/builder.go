package emit

import (
	"fmt"
	"math/big"
	"strings"

	"basalt/internal/sema"
)

// Binary is the instruction-emission service the backend contract drives.
// Targets express their semantics as a stream of native ops (allocas,
// loads, stores, host calls, branches); anything below this seam, such as
// object code or a linked binary, is the code generator's concern.
// The recorded stream is observable, which is what the backend tests hook
// into.
type Binary struct {
	TargetName    string
	AddressLength int

	blocks    []*builderBlock
	cur       int
	nextID    int
	globals   map[string]*Value
	globalOps []*Op
	funcArgs  map[int]*Value
}

type builderBlock struct {
	name string
	ops  []*Op
}

// Value is an opaque handle for one emitted value.
type Value struct {
	id    int
	Ty    sema.Type
	name  string
	Const *big.Int // non-nil when the value is a compile-time constant
}

func (v *Value) String() string {
	if v == nil {
		return "null"
	}
	if v.Const != nil {
		return v.Const.String()
	}
	if v.name != "" {
		return fmt.Sprintf("%%%s.%d", v.name, v.id)
	}
	return fmt.Sprintf("%%%d", v.id)
}

// Op is one recorded native operation.
type Op struct {
	Kind   string // alloca, store, load, hostcall, gep, icmp, select, br, condbr, ret, phi, ...
	Name   string // host function name or op detail
	Args   []*Value
	Result *Value
	Blocks []int // branch targets / phi incoming blocks
}

func NewBinary(target string, addressLength int) *Binary {
	b := &Binary{
		TargetName:    target,
		AddressLength: addressLength,
		globals:       make(map[string]*Value),
		funcArgs:      make(map[int]*Value),
	}
	b.NewBlock("entry")
	return b
}

func (b *Binary) value(ty sema.Type, name string) *Value {
	b.nextID++
	return &Value{id: b.nextID, Ty: ty, name: name}
}

func (b *Binary) emit(op *Op) {
	block := b.blocks[b.cur]
	block.ops = append(block.ops, op)
}

// NewBlock appends an emission block and returns its index. The insert
// point is moved only by SetInsertPoint.
func (b *Binary) NewBlock(name string) int {
	b.blocks = append(b.blocks, &builderBlock{name: name})
	return len(b.blocks) - 1
}

func (b *Binary) SetInsertPoint(block int) {
	b.cur = block
}

func (b *Binary) CurrentBlock() int {
	return b.cur
}

// Constants

func (b *Binary) ConstBig(ty sema.Type, v *big.Int) *Value {
	b.nextID++
	return &Value{id: b.nextID, Ty: ty, Const: new(big.Int).Set(v)}
}

func (b *Binary) ConstInt(ty sema.Type, v uint64) *Value {
	return b.ConstBig(ty, new(big.Int).SetUint64(v))
}

func (b *Binary) ConstBool(v bool) *Value {
	n := int64(0)
	if v {
		n = 1
	}
	return b.ConstBig(&sema.Bool{}, big.NewInt(n))
}

// Zero returns the zero value of a word-sized type.
func (b *Binary) Zero(ty sema.Type) *Value {
	return b.ConstBig(ty, new(big.Int))
}

// ConstBytes records a byte-string constant and returns a pointer to it.
func (b *Binary) ConstBytes(ty sema.Type, data []byte) *Value {
	result := b.value(&sema.Ref{To: ty}, "bytes")
	b.emit(&Op{Kind: "constbytes", Name: fmt.Sprintf("%x", data), Result: result})
	return result
}

// Memory

func (b *Binary) Alloca(ty sema.Type, name string) *Value {
	result := b.value(&sema.Ref{To: ty}, name)
	b.emit(&Op{Kind: "alloca", Name: ty.String(), Result: result})
	return result
}

// ArrayAlloca reserves length bytes and returns the base pointer.
func (b *Binary) ArrayAlloca(length *Value, name string) *Value {
	result := b.value(&sema.Ref{To: &sema.DynamicBytes{}}, name)
	b.emit(&Op{Kind: "alloca", Name: "bytes", Args: []*Value{length}, Result: result})
	return result
}

func (b *Binary) Store(ptr, val *Value) {
	b.emit(&Op{Kind: "store", Args: []*Value{ptr, val}})
}

func (b *Binary) Load(ty sema.Type, ptr *Value, name string) *Value {
	result := b.value(ty, name)
	b.emit(&Op{Kind: "load", Name: ty.String(), Args: []*Value{ptr}, Result: result})
	return result
}

// StructGEP returns a pointer to the numbered field of a struct pointer.
func (b *Binary) StructGEP(ty *sema.Struct, ptr *Value, field int, name string) *Value {
	result := b.value(&sema.Ref{To: ty.Def.Fields[field].Type}, name)
	b.emit(&Op{
		Kind:   "gep",
		Name:   fmt.Sprintf("%s.%s", ty.Def.Name, ty.Def.Fields[field].Name),
		Args:   []*Value{ptr, b.ConstInt(&sema.Uint{Bits: 32}, uint64(field))},
		Result: result,
	})
	return result
}

// GEP returns a pointer to the indexed element of an array pointer.
func (b *Binary) GEP(elem sema.Type, ptr, index *Value, name string) *Value {
	result := b.value(&sema.Ref{To: elem}, name)
	b.emit(&Op{Kind: "gep", Name: elem.String(), Args: []*Value{ptr, index}, Result: result})
	return result
}

// Global returns a module-level cell, creating it on first use.
func (b *Binary) Global(ty sema.Type, name string) *Value {
	if v, ok := b.globals[name]; ok {
		return v
	}
	v := b.value(&sema.Ref{To: ty}, name)
	b.globals[name] = v
	b.globalOps = append(b.globalOps, &Op{Kind: "global", Name: name, Result: v})
	return v
}

// FunctionArg returns the handle for a positional argument of the function
// under emission.
func (b *Binary) FunctionArg(ty sema.Type, argNo int) *Value {
	if v, ok := b.funcArgs[argNo]; ok {
		return v
	}
	v := b.value(ty, fmt.Sprintf("arg%d", argNo))
	b.funcArgs[argNo] = v
	return v
}

// Arithmetic

func (b *Binary) binop(kind string, ty sema.Type, lhs, rhs *Value) *Value {
	result := b.value(ty, kind)
	b.emit(&Op{Kind: kind, Args: []*Value{lhs, rhs}, Result: result})
	return result
}

func (b *Binary) Add(lhs, rhs *Value) *Value { return b.binop("add", lhs.Ty, lhs, rhs) }
func (b *Binary) Sub(lhs, rhs *Value) *Value { return b.binop("sub", lhs.Ty, lhs, rhs) }
func (b *Binary) Mul(lhs, rhs *Value) *Value { return b.binop("mul", lhs.Ty, lhs, rhs) }

func (b *Binary) ICmp(pred string, lhs, rhs *Value) *Value {
	result := b.value(&sema.Bool{}, "cmp")
	b.emit(&Op{Kind: "icmp", Name: pred, Args: []*Value{lhs, rhs}, Result: result})
	return result
}

func (b *Binary) Select(cond, ifTrue, ifFalse *Value) *Value {
	result := b.value(ifTrue.Ty, "select")
	b.emit(&Op{Kind: "select", Args: []*Value{cond, ifTrue, ifFalse}, Result: result})
	return result
}

func (b *Binary) Cast(ty sema.Type, v *Value) *Value {
	result := b.value(ty, "cast")
	b.emit(&Op{Kind: "cast", Name: ty.String(), Args: []*Value{v}, Result: result})
	return result
}

// Control flow

func (b *Binary) Br(block int) {
	b.emit(&Op{Kind: "br", Blocks: []int{block}})
}

func (b *Binary) CondBr(cond *Value, ifTrue, ifFalse int) {
	b.emit(&Op{Kind: "condbr", Args: []*Value{cond}, Blocks: []int{ifTrue, ifFalse}})
}

func (b *Binary) Ret(vals ...*Value) {
	b.emit(&Op{Kind: "ret", Args: vals})
}

func (b *Binary) Unreachable() {
	b.emit(&Op{Kind: "unreachable"})
}

// Phi creates a phi node in the current block. Incoming edges are added
// through the returned callback as predecessor blocks are emitted.
func (b *Binary) Phi(ty sema.Type, name string) (*Value, func(v *Value, block int)) {
	result := b.value(ty, name)
	op := &Op{Kind: "phi", Result: result}
	b.emit(op)
	addIncoming := func(v *Value, block int) {
		op.Args = append(op.Args, v)
		op.Blocks = append(op.Blocks, block)
	}
	return result, addIncoming
}

// HostCall records a call to a host or runtime-library function.
func (b *Binary) HostCall(name string, args ...*Value) *Value {
	result := b.value(nil, name)
	b.emit(&Op{Kind: "hostcall", Name: name, Args: args, Result: result})
	return result
}

// CallFunction records an internal function call.
func (b *Binary) CallFunction(fnNo int, args []*Value, returns []sema.Type) []*Value {
	var results []*Value
	for i, ty := range returns {
		results = append(results, b.value(ty, fmt.Sprintf("ret%d", i)))
	}
	op := &Op{Kind: "call", Name: fmt.Sprintf("fn#%d", fnNo), Args: args}
	if len(results) > 0 {
		op.Result = results[0]
	}
	b.emit(op)
	return results
}

// Ops returns the recorded op stream of one block.
func (b *Binary) Ops(block int) []*Op {
	return b.blocks[block].ops
}

// AllOps returns every recorded op across blocks, in block order.
func (b *Binary) AllOps() []*Op {
	var ops []*Op
	for _, block := range b.blocks {
		ops = append(ops, block.ops...)
	}
	return ops
}

// HostCalls returns the names of all recorded host calls, in emission
// order. Convenient for asserting on a target's host traffic.
func (b *Binary) HostCalls() []string {
	var names []string
	for _, op := range b.AllOps() {
		if op.Kind == "hostcall" {
			names = append(names, op.Name)
		}
	}
	return names
}

// Dump renders the recorded stream as text.
func (b *Binary) Dump() string {
	var out strings.Builder
	for _, op := range b.globalOps {
		fmt.Fprintf(&out, "global %s = %s\n", op.Name, op.Result)
	}
	for i, block := range b.blocks {
		fmt.Fprintf(&out, "%s: ; #%d\n", block.name, i)
		for _, op := range block.ops {
			out.WriteString("  ")
			out.WriteString(formatOp(op))
			out.WriteString("\n")
		}
	}
	return out.String()
}

func formatOp(op *Op) string {
	var args []string
	for _, a := range op.Args {
		args = append(args, a.String())
	}
	var blocks []string
	for _, t := range op.Blocks {
		blocks = append(blocks, fmt.Sprintf("block%d", t))
	}

	s := op.Kind
	if op.Name != "" {
		s += " " + op.Name
	}
	if len(args) > 0 {
		s += " " + strings.Join(args, ", ")
	}
	if len(blocks) > 0 {
		s += " -> " + strings.Join(blocks, ", ")
	}
	if op.Result != nil {
		s = op.Result.String() + " = " + s
	}
	return s
}
