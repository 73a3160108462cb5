package sema

import (
	"fmt"
	"math/big"
	"strings"
)

// Type describes a fully resolved semantic type. The backend never infers
// types; it only consumes what the analysis phase produced.
type Type interface {
	String() string

	// StorageSlots reports how many storage words a value of this type
	// occupies when laid out by the slot-recursive storage policy.
	StorageSlots() *big.Int
}

type Uint struct {
	Bits int
}

type Bool struct{}

type Address struct{}

// Bytes is a fixed-width byte array (bytes1..bytes32).
type Bytes struct {
	Len int
}

// DynamicBytes is a variable-length byte vector.
type DynamicBytes struct{}

type String struct{}

// Ref is a reference to a value of another type.
type Ref struct {
	To Type
}

// Array is a fixed-length array when Len is non-nil, dynamic otherwise.
type Array struct {
	Elem Type
	Len  *big.Int
}

type Mapping struct {
	Key   Type
	Value Type
}

// StructKind distinguishes user structs from the builtin runtime structs
// whose layouts are fixed by the target ABI.
type StructKind int

const (
	StructUser StructKind = iota
	StructAccountMeta
	StructAccountInfo
)

type Struct struct {
	Kind StructKind
	Def  *StructDef
}

type StructDef struct {
	Name   string
	Fields []Field
}

type Field struct {
	Name string
	Type Type
}

func (t *Uint) String() string         { return fmt.Sprintf("uint%d", t.Bits) }
func (t *Bool) String() string         { return "bool" }
func (t *Address) String() string      { return "address" }
func (t *Bytes) String() string        { return fmt.Sprintf("bytes%d", t.Len) }
func (t *DynamicBytes) String() string { return "bytes" }
func (t *String) String() string       { return "string" }
func (t *Ref) String() string          { return "ref " + t.To.String() }
func (t *Mapping) String() string {
	return fmt.Sprintf("mapping(%s => %s)", t.Key, t.Value)
}

func (t *Array) String() string {
	if t.Len == nil {
		return t.Elem.String() + "[]"
	}
	return fmt.Sprintf("%s[%s]", t.Elem, t.Len)
}

func (t *Struct) String() string {
	return "struct " + t.Def.Name
}

func (d *StructDef) String() string {
	var fields []string
	for _, f := range d.Fields {
		fields = append(fields, f.Name+" "+f.Type.String())
	}
	return fmt.Sprintf("struct %s { %s }", d.Name, strings.Join(fields, "; "))
}

var one = big.NewInt(1)

func (t *Uint) StorageSlots() *big.Int         { return one }
func (t *Bool) StorageSlots() *big.Int         { return one }
func (t *Address) StorageSlots() *big.Int      { return one }
func (t *Bytes) StorageSlots() *big.Int        { return one }
func (t *DynamicBytes) StorageSlots() *big.Int { return one }
func (t *String) StorageSlots() *big.Int       { return one }
func (t *Ref) StorageSlots() *big.Int          { return t.To.StorageSlots() }

// A mapping occupies its base slot only; entries live behind hashed slots.
func (t *Mapping) StorageSlots() *big.Int { return one }

func (t *Array) StorageSlots() *big.Int {
	if t.Len == nil {
		// Length word at the base slot; elements behind a hashed base.
		return one
	}
	return new(big.Int).Mul(t.Len, t.Elem.StorageSlots())
}

func (t *Struct) StorageSlots() *big.Int {
	sum := new(big.Int)
	for _, f := range t.Def.Fields {
		sum.Add(sum, f.Type.StorageSlots())
	}
	return sum
}

// IsFixedWidth reports whether a value of this type fits one storage word.
// The host-delegated storage policy supports exactly these types.
func IsFixedWidth(ty Type) bool {
	switch t := ty.(type) {
	case *Uint, *Bool, *Address, *Bytes:
		return true
	case *Ref:
		return IsFixedWidth(t.To)
	default:
		return false
	}
}

var (
	accountMetaDef = &StructDef{
		Name: "AccountMeta",
		Fields: []Field{
			// Field order is the target's invocation ABI. Do not reorder.
			{Name: "key", Type: &Ref{To: &Address{}}},
			{Name: "is_writable", Type: &Bool{}},
			{Name: "is_signer", Type: &Bool{}},
		},
	}

	accountInfoDef = &StructDef{
		Name: "AccountInfo",
		Fields: []Field{
			// The address must stay the first field.
			{Name: "key", Type: &Ref{To: &Address{}}},
			{Name: "lamports", Type: &Uint{Bits: 64}},
			{Name: "data", Type: &DynamicBytes{}},
			{Name: "owner", Type: &Ref{To: &Address{}}},
			{Name: "is_signer", Type: &Bool{}},
			{Name: "is_writable", Type: &Bool{}},
		},
	}
)

// AccountMetaType returns the builtin struct describing one account passed
// into an invocation.
func AccountMetaType() *Struct {
	return &Struct{Kind: StructAccountMeta, Def: accountMetaDef}
}

// AccountInfoType returns the builtin struct describing one account made
// available to the executing function.
func AccountInfoType() *Struct {
	return &Struct{Kind: StructAccountInfo, Def: accountInfoDef}
}
