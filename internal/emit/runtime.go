package emit

import (
	"basalt/internal/cfg"
	"basalt/internal/sema"
)

// HashAlgo names a cryptographic hash a program may request. Each target
// supports a subset; asking for an unsupported one is a compile-time
// failure, never a silent substitution.
type HashAlgo string

const (
	HashKeccak256 HashAlgo = "keccak256"
	HashSha256    HashAlgo = "sha256"
	HashBlake2b   HashAlgo = "blake2b256"
)

// ContractArgs bundles the optional parameters of constructing or calling
// another contract. Every field is optional because each target consumes a
// different subset.
type ContractArgs struct {
	ProgramID   *Value
	Value       *Value
	Gas         *Value
	Salt        *Value
	Seeds       *Value
	SeedsLen    *Value
	Accounts    *Value
	AccountsLen *Value
	Flags       *Value
}

// TargetRuntime is the capability contract every execution environment
// implements; it is the single seam through which the shared CFG becomes
// native code. Exactly one implementation exists per target.
//
// Failure semantics: anything the target genuinely cannot do aborts
// compilation (diag.Unsupported); anything the executed program cannot do
// is a success value threaded through the generated code.
type TargetRuntime interface {
	Name() string

	// Storage. Load must reconstruct a value honoring the type's layout;
	// Store's existing flags whether the destination previously held a
	// value needing release bookkeeping; Delete recursively zeroes every
	// slot the type occupies.
	StorageLoad(bin *Binary, ty sema.Type, slot *Value) *Value
	StorageStore(bin *Binary, ty sema.Type, existing bool, slot *Value, val *Value)
	StorageDelete(bin *Binary, ty sema.Type, slot *Value)
	StorageSubscript(bin *Binary, ty sema.Type, slot *Value, index *Value) *Value
	StoragePush(bin *Binary, elem sema.Type, slot *Value, val *Value) *Value
	StoragePop(bin *Binary, elem sema.Type, slot *Value, load bool) *Value
	StorageArrayLength(bin *Binary, slot *Value, elem sema.Type) *Value

	Hash(bin *Binary, algo HashAlgo, input *Value, inputLen *Value) *Value
	Print(bin *Binary, str *Value, length *Value)

	// CreateContract invokes another contract's constructor and
	// ExternalCall a method. The returned success value is what the
	// generated program branches on; a failed call is program data, not a
	// compiler condition.
	CreateContract(bin *Binary, contractNo int, address *Value, encodedArgs *Value, encodedArgsLen *Value, args ContractArgs) *Value
	ExternalCall(bin *Binary, kind cfg.CallKind, address *Value, payload *Value, payloadLen *Value, args ContractArgs) *Value

	// ReturnData retrieves the bytes produced by the most recent external
	// call. The observed length must be exactly the number of bytes
	// available to copy, whatever the target's truth source is.
	ReturnData(bin *Binary) *Value

	ValueTransfer(bin *Binary, address *Value, value *Value) *Value
	ValueTransferred(bin *Binary) *Value
	SelfDestruct(bin *Binary, recipient *Value)
	EmitEvent(bin *Binary, data *Value, dataLen *Value, topics []*Value)
	ReturnAbiData(bin *Binary, data *Value, dataLen *Value)
	ReturnEmptyAbi(bin *Binary)
	ReturnCode(bin *Binary, code *Value)
	AssertFailure(bin *Binary, data *Value, length *Value)

	// Builtin lowers target-specific builtin expressions that have no
	// generic cross-target definition.
	Builtin(bin *Binary, expr *cfg.Builtin, vartab map[int]*Value) *Value
}
