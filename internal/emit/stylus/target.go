// Package stylus lowers onto the Stylus-style execution environment: the
// host owns a cache-and-flush protocol over fixed 256-bit storage words,
// and every other capability goes through host functions.
package stylus

import (
	"math"
	"math/big"

	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/emit"
	"basalt/internal/sema"
)

const targetName = "stylus"

// AddressLength is the byte width of an address on this target.
const AddressLength = 20

type Target struct{}

func New() *Target {
	return &Target{}
}

func (*Target) Name() string { return targetName }

// Storage is host-delegated: only whole fixed-width words are supported.
// Composite recursion on top of the cache/flush protocol is the
// responsibility of a layer that does not exist yet, so everything else is
// a compile-time failure instead of a silent miscompilation.

func (*Target) StorageLoad(bin *emit.Binary, ty sema.Type, slot *emit.Value) *emit.Value {
	if !sema.IsFixedWidth(ty) {
		diag.Unsupported(targetName, "loading composite types from storage")
	}

	slotPtr := bin.Alloca(emit.WordType(), "slot")
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.Store(slotPtr, slot)

	bin.HostCall("storage_load_bytes32", slotPtr, valuePtr)

	return bin.Load(ty, valuePtr, "value")
}

func (*Target) StorageStore(bin *emit.Binary, ty sema.Type, existing bool, slot *emit.Value, val *emit.Value) {
	if !sema.IsFixedWidth(ty) {
		diag.Unsupported(targetName, "storing composite types to storage")
	}

	slotPtr := bin.Alloca(emit.WordType(), "slot")
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.Store(slotPtr, slot)
	bin.Store(valuePtr, val)

	bin.HostCall("storage_cache_bytes32", slotPtr, valuePtr)
	bin.HostCall("storage_flush_cache", bin.ConstInt(&sema.Uint{Bits: 32}, 1))
}

func (*Target) StorageDelete(bin *emit.Binary, ty sema.Type, slot *emit.Value) {
	diag.Unsupported(targetName, "deleting storage")
}

func (*Target) StorageSubscript(bin *emit.Binary, ty sema.Type, slot *emit.Value, index *emit.Value) *emit.Value {
	diag.Unsupported(targetName, "subscripting storage collections")
	return nil
}

func (*Target) StoragePush(bin *emit.Binary, elem sema.Type, slot *emit.Value, val *emit.Value) *emit.Value {
	diag.Unsupported(targetName, "storage push")
	return nil
}

func (*Target) StoragePop(bin *emit.Binary, elem sema.Type, slot *emit.Value, load bool) *emit.Value {
	diag.Unsupported(targetName, "storage pop")
	return nil
}

func (*Target) StorageArrayLength(bin *emit.Binary, slot *emit.Value, elem sema.Type) *emit.Value {
	diag.Unsupported(targetName, "storage array length")
	return nil
}

func (*Target) Hash(bin *emit.Binary, algo emit.HashAlgo, input *emit.Value, inputLen *emit.Value) *emit.Value {
	if algo != emit.HashKeccak256 {
		diag.UnsupportedHash(targetName, string(algo))
	}

	res := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 32), "res")
	bin.HostCall("native_keccak256", input, inputLen, res)
	return bin.Load(&sema.Bytes{Len: 32}, res, "hash")
}

func (*Target) Print(bin *emit.Binary, str *emit.Value, length *emit.Value) {
	bin.HostCall("log_txt", str, length)
}

func (*Target) CreateContract(bin *emit.Binary, contractNo int, address *emit.Value, encodedArgs *emit.Value, encodedArgsLen *emit.Value, args emit.ContractArgs) *emit.Value {
	diag.Unsupported(targetName, "constructing contracts")
	return nil
}

func (*Target) ExternalCall(bin *emit.Binary, kind cfg.CallKind, address *emit.Value, payload *emit.Value, payloadLen *emit.Value, args emit.ContractArgs) *emit.Value {
	returnDataLen := bin.Alloca(&sema.Uint{Bits: 32}, "return_data_len")

	name := "call_contract"
	switch kind {
	case cfg.CallDelegate:
		name = "delegate_call_contract"
	case cfg.CallStatic:
		name = "static_call_contract"
	}

	callArgs := []*emit.Value{address, payload, payloadLen}
	if kind == cfg.CallRegular {
		value := bin.Alloca(emit.WordType(), "value")
		v := args.Value
		if v == nil {
			v = bin.Zero(emit.WordType())
		}
		bin.Store(value, v)
		callArgs = append(callArgs, value)
	}

	gas := gasCalculation(bin, args.Gas)
	callArgs = append(callArgs, gas, returnDataLen)

	// The host's return status is nonzero on failure.
	status := bin.HostCall(name, callArgs...)

	// Cache the length for ReturnData; the call itself is the truth
	// source on this target.
	cached := bin.Load(&sema.Uint{Bits: 32}, returnDataLen, "return_data_len")
	bin.Store(returnDataLenCell(bin), cached)

	return statusInverted(bin, status)
}

func (*Target) ReturnData(bin *emit.Binary) *emit.Value {
	size := bin.Load(&sema.Uint{Bits: 32}, returnDataLenCell(bin), "return_data_len")
	returnData := bin.ArrayAlloca(size, "return_data")
	bin.HostCall("read_return_data", returnData, bin.ConstInt(&sema.Uint{Bits: 32}, 0), size)
	return bin.HostCall("vector_new", size, bin.ConstInt(&sema.Uint{Bits: 32}, 1), returnData)
}

func (*Target) ValueTransfer(bin *emit.Binary, address *emit.Value, value *emit.Value) *emit.Value {
	diag.Unsupported(targetName, "value transfer")
	return nil
}

func (*Target) ValueTransferred(bin *emit.Binary) *emit.Value {
	diag.Unsupported(targetName, "reading the transferred value")
	return nil
}

func (*Target) SelfDestruct(bin *emit.Binary, recipient *emit.Value) {
	diag.Unsupported(targetName, "selfdestruct")
}

func (*Target) EmitEvent(bin *emit.Binary, data *emit.Value, dataLen *emit.Value, topics []*emit.Value) {
	diag.Unsupported(targetName, "emitting events")
}

func (*Target) ReturnAbiData(bin *emit.Binary, data *emit.Value, dataLen *emit.Value) {
	bin.HostCall("write_result", data, dataLen)
	bin.Ret(bin.ConstInt(&sema.Uint{Bits: 32}, 0))
}

func (*Target) ReturnEmptyAbi(bin *emit.Binary) {
	diag.Unsupported(targetName, "returning empty abi data")
}

func (t *Target) ReturnCode(bin *emit.Binary, code *emit.Value) {
	t.AssertFailure(bin, nil, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
}

func (*Target) AssertFailure(bin *emit.Binary, data *emit.Value, length *emit.Value) {
	bin.Store(returnCodeCell(bin), bin.ConstInt(&sema.Uint{Bits: 32}, 1))

	// The wasm must return something here; the value itself is not
	// significant to the host.
	bin.Ret(bin.ConstInt(&sema.Uint{Bits: 32}, 1))
}

func (*Target) Builtin(bin *emit.Binary, expr *cfg.Builtin, vartab map[int]*emit.Value) *emit.Value {
	switch expr.Kind {
	case sema.BuiltinGetAddress:
		address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
		bin.HostCall("contract_address", address)
		return bin.Load(&sema.Address{}, address, "contract_address")

	case sema.BuiltinOrigin:
		address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
		bin.HostCall("tx_origin", address)
		return bin.Load(&sema.Address{}, address, "tx_origin")

	case sema.BuiltinSender:
		address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
		bin.HostCall("msg_sender", address)
		return bin.Load(&sema.Address{}, address, "caller")
	}

	diag.Unsupported(targetName, expr.Kind.String())
	return nil
}

func returnDataLenCell(bin *emit.Binary) *emit.Value {
	return bin.Global(&sema.Uint{Bits: 32}, "return_data_len")
}

func returnCodeCell(bin *emit.Binary) *emit.Value {
	return bin.Global(&sema.Uint{Bits: 32}, "return_code")
}

// gasCalculation maps a gas budget of zero to "all available gas".
func gasCalculation(bin *emit.Binary, gas *emit.Value) *emit.Value {
	if gas == nil {
		gas = bin.Zero(&sema.Uint{Bits: 64})
	}
	allGas := bin.ConstBig(&sema.Uint{Bits: 64}, new(big.Int).SetUint64(math.MaxUint64))
	isZero := bin.ICmp("eq", gas, bin.Zero(&sema.Uint{Bits: 64}))
	return bin.Select(isZero, allGas, gas)
}

// statusInverted maps the host's zero-on-success status onto the success
// boolean the generated program branches on.
func statusInverted(bin *emit.Binary, status *emit.Value) *emit.Value {
	isZero := bin.ICmp("eq", status, bin.ConstInt(&sema.Uint{Bits: 8}, 0))
	return bin.Select(isZero, bin.ConstInt(&sema.Uint{Bits: 32}, 1), bin.ConstInt(&sema.Uint{Bits: 32}, 0))
}
