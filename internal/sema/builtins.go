package sema

// Builtin identifies a target-specific builtin expression. Builtins have no
// generic cross-target definition; each target lowers the ones it supports
// and rejects the rest at compile time.
type Builtin int

const (
	BuiltinUnknown Builtin = iota
	BuiltinAccounts
	BuiltinGetAddress
	BuiltinSender
	BuiltinOrigin
	BuiltinTimestamp
	BuiltinBlockNumber
	BuiltinValue
)

func (b Builtin) String() string {
	switch b {
	case BuiltinAccounts:
		return "tx.accounts"
	case BuiltinGetAddress:
		return "address(this)"
	case BuiltinSender:
		return "msg.sender"
	case BuiltinOrigin:
		return "tx.origin"
	case BuiltinTimestamp:
		return "block.timestamp"
	case BuiltinBlockNumber:
		return "block.number"
	case BuiltinValue:
		return "msg.value"
	}
	return "unknown builtin"
}

// Prototype describes one builtin's resolved signature.
type Prototype struct {
	Kind    Builtin
	Name    string
	Returns []Type
}

// builtinPrototypes is the process-wide prototype table. It is constructed
// once before any compilation begins and never mutated afterwards; callers
// share it by reference through FindBuiltin.
var builtinPrototypes = []Prototype{
	{Kind: BuiltinAccounts, Name: "accounts", Returns: []Type{&Array{Elem: AccountInfoType()}}},
	{Kind: BuiltinGetAddress, Name: "address", Returns: []Type{&Address{}}},
	{Kind: BuiltinSender, Name: "sender", Returns: []Type{&Address{}}},
	{Kind: BuiltinOrigin, Name: "origin", Returns: []Type{&Address{}}},
	{Kind: BuiltinTimestamp, Name: "timestamp", Returns: []Type{&Uint{Bits: 64}}},
	{Kind: BuiltinBlockNumber, Name: "blocknumber", Returns: []Type{&Uint{Bits: 64}}},
	{Kind: BuiltinValue, Name: "value", Returns: []Type{&Uint{Bits: 128}}},
}

// FindBuiltin looks up a builtin prototype by kind. The second return is
// false for kinds with no registered prototype.
func FindBuiltin(kind Builtin) (Prototype, bool) {
	for _, p := range builtinPrototypes {
		if p.Kind == kind {
			return p, true
		}
	}
	return Prototype{}, false
}
