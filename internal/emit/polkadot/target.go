// Package polkadot lowers onto a contracts-pallet runtime: storage is a
// key/value ledger accessed one 256-bit word at a time through seal_*
// host functions, and the generic slot-recursive policy sits on top.
package polkadot

import (
	"strconv"

	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/emit"
	"basalt/internal/sema"
)

const targetName = "polkadot"

// AddressLength is the byte width of an address on this target.
const AddressLength = 32

type Target struct {
	emit.SlotStorage
}

func New() *Target {
	t := &Target{}
	t.SlotStorage.Words = t
	return t
}

func (*Target) Name() string { return targetName }

// Word primitives behind the slot-recursive policy.

func (*Target) GetStorageWord(bin *emit.Binary, ty sema.Type, slot *emit.Value) *emit.Value {
	slotPtr := bin.Alloca(emit.WordType(), "slot")
	bin.Store(slotPtr, slot)
	valuePtr := bin.Alloca(emit.WordType(), "value")
	lenPtr := bin.Alloca(&sema.Uint{Bits: 32}, "value_len")
	bin.Store(lenPtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32))

	// Absent keys read as the zero word.
	exists := bin.HostCall("seal_get_storage", slotPtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32), valuePtr, lenPtr)
	found := bin.ICmp("eq", exists, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
	loaded := bin.Load(ty, valuePtr, "value")
	return bin.Select(found, loaded, bin.Zero(ty))
}

func (*Target) SetStorageWord(bin *emit.Binary, slot *emit.Value, val *emit.Value) {
	slotPtr := bin.Alloca(emit.WordType(), "slot")
	bin.Store(slotPtr, slot)
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.Store(valuePtr, val)
	bin.HostCall("seal_set_storage", slotPtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32), valuePtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32))
}

func (*Target) ClearStorageWord(bin *emit.Binary, slot *emit.Value) {
	slotPtr := bin.Alloca(emit.WordType(), "slot")
	bin.Store(slotPtr, slot)
	bin.HostCall("seal_clear_storage", slotPtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32))
}

func (*Target) KeccakSlots(bin *emit.Binary, words ...*emit.Value) *emit.Value {
	length := uint64(len(words)) * 32
	buf := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, length), "hash_input")
	for i, word := range words {
		ptr := bin.GEP(emit.WordType(), buf, bin.ConstInt(&sema.Uint{Bits: 32}, uint64(i)), "word")
		bin.Store(ptr, word)
	}
	out := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 32), "hash")
	bin.HostCall("seal_hash_keccak_256", buf, bin.ConstInt(&sema.Uint{Bits: 32}, length), out)
	return bin.Load(emit.WordType(), out, "slot")
}

func (*Target) Hash(bin *emit.Binary, algo emit.HashAlgo, input *emit.Value, inputLen *emit.Value) *emit.Value {
	var name string
	switch algo {
	case emit.HashKeccak256:
		name = "seal_hash_keccak_256"
	case emit.HashSha256:
		name = "seal_hash_sha2_256"
	case emit.HashBlake2b:
		name = "seal_hash_blake2_256"
	default:
		diag.UnsupportedHash(targetName, string(algo))
	}

	out := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 32), "hash")
	bin.HostCall(name, input, inputLen, out)
	return bin.Load(&sema.Bytes{Len: 32}, out, "hash")
}

func (*Target) Print(bin *emit.Binary, str *emit.Value, length *emit.Value) {
	bin.HostCall("seal_debug_message", str, length)
}

func (*Target) CreateContract(bin *emit.Binary, contractNo int, address *emit.Value, encodedArgs *emit.Value, encodedArgsLen *emit.Value, args emit.ContractArgs) *emit.Value {
	value := valueOrZero(bin, args.Value)
	gas := gasOrZero(bin, args.Gas)
	salt := args.Salt
	if salt == nil {
		salt = bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 32), "salt")
	}

	addressLen := bin.Alloca(&sema.Uint{Bits: 32}, "address_len")
	bin.Store(addressLen, bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength))

	code := codeHash(bin, contractNo)
	status := bin.HostCall("seal_instantiate",
		code, gas, value,
		encodedArgs, encodedArgsLen,
		address, addressLen,
		salt, bin.ConstInt(&sema.Uint{Bits: 32}, 32))

	return successFromStatus(bin, status)
}

func (*Target) ExternalCall(bin *emit.Binary, kind cfg.CallKind, address *emit.Value, payload *emit.Value, payloadLen *emit.Value, args emit.ContractArgs) *emit.Value {
	var status *emit.Value
	switch kind {
	case cfg.CallDelegate:
		flags := args.Flags
		if flags == nil {
			flags = bin.Zero(&sema.Uint{Bits: 32})
		}
		status = bin.HostCall("seal_delegate_call", flags, address, payload, payloadLen)

	case cfg.CallStatic, cfg.CallRegular:
		flags := bin.Zero(&sema.Uint{Bits: 32})
		if kind == cfg.CallStatic {
			// Forbid state writes for the whole nested call tree.
			flags = bin.ConstInt(&sema.Uint{Bits: 32}, 8)
		}
		value := valueOrZero(bin, args.Value)
		gas := gasOrZero(bin, args.Gas)
		status = bin.HostCall("seal_call", flags, address, gas, value, payload, payloadLen)
	}

	return successFromStatus(bin, status)
}

func (*Target) ReturnData(bin *emit.Binary) *emit.Value {
	size := bin.HostCall("seal_return_data_size")
	data := bin.ArrayAlloca(size, "return_data")
	bin.HostCall("seal_return_data_copy", data, size, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
	return bin.HostCall("vector_new", size, bin.ConstInt(&sema.Uint{Bits: 32}, 1), data)
}

func (*Target) ValueTransfer(bin *emit.Binary, address *emit.Value, value *emit.Value) *emit.Value {
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.Store(valuePtr, value)
	status := bin.HostCall("seal_transfer", address, bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), valuePtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32))
	return successFromStatus(bin, status)
}

func (*Target) ValueTransferred(bin *emit.Binary) *emit.Value {
	valuePtr := bin.Alloca(emit.WordType(), "value")
	lenPtr := bin.Alloca(&sema.Uint{Bits: 32}, "value_len")
	bin.Store(lenPtr, bin.ConstInt(&sema.Uint{Bits: 32}, 32))
	bin.HostCall("seal_value_transferred", valuePtr, lenPtr)
	return bin.Load(emit.WordType(), valuePtr, "value_transferred")
}

func (*Target) SelfDestruct(bin *emit.Binary, recipient *emit.Value) {
	bin.HostCall("seal_terminate", recipient)
	bin.Unreachable()
}

func (*Target) EmitEvent(bin *emit.Binary, data *emit.Value, dataLen *emit.Value, topics []*emit.Value) {
	count := uint64(len(topics))
	buf := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, count*32), "topics")
	for i, topic := range topics {
		ptr := bin.GEP(emit.WordType(), buf, bin.ConstInt(&sema.Uint{Bits: 32}, uint64(i)), "topic")
		bin.Store(ptr, topic)
	}
	bin.HostCall("seal_deposit_event", buf, bin.ConstInt(&sema.Uint{Bits: 32}, count*32), data, dataLen)
}

func (*Target) ReturnAbiData(bin *emit.Binary, data *emit.Value, dataLen *emit.Value) {
	bin.HostCall("seal_return", bin.ConstInt(&sema.Uint{Bits: 32}, 0), data, dataLen)
	bin.Unreachable()
}

func (*Target) ReturnEmptyAbi(bin *emit.Binary) {
	empty := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 0), "empty")
	bin.HostCall("seal_return", bin.ConstInt(&sema.Uint{Bits: 32}, 0), empty, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
	bin.Unreachable()
}

func (*Target) ReturnCode(bin *emit.Binary, code *emit.Value) {
	empty := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 0), "empty")
	bin.HostCall("seal_return", code, empty, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
	bin.Unreachable()
}

func (*Target) AssertFailure(bin *emit.Binary, data *emit.Value, length *emit.Value) {
	if data == nil {
		data = bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 0), "empty")
		length = bin.ConstInt(&sema.Uint{Bits: 32}, 0)
	}
	// Flag 1 reverts the frame's state changes.
	bin.HostCall("seal_return", bin.ConstInt(&sema.Uint{Bits: 32}, 1), data, length)
	bin.Unreachable()
}

func (t *Target) Builtin(bin *emit.Binary, expr *cfg.Builtin, vartab map[int]*emit.Value) *emit.Value {
	switch expr.Kind {
	case sema.BuiltinGetAddress:
		return sealScalar(bin, "seal_address", &sema.Address{}, AddressLength)
	case sema.BuiltinSender:
		return sealScalar(bin, "seal_caller", &sema.Address{}, AddressLength)
	case sema.BuiltinTimestamp:
		return sealScalar(bin, "seal_now", &sema.Uint{Bits: 64}, 8)
	case sema.BuiltinBlockNumber:
		return sealScalar(bin, "seal_block_number", &sema.Uint{Bits: 32}, 4)
	case sema.BuiltinValue:
		return t.ValueTransferred(bin)
	}

	diag.Unsupported(targetName, expr.Kind.String())
	return nil
}

// sealScalar reads one fixed-size scalar through the ptr/len-ptr calling
// convention every seal_* getter shares.
func sealScalar(bin *emit.Binary, name string, ty sema.Type, size uint64) *emit.Value {
	out := bin.Alloca(ty, name)
	lenPtr := bin.Alloca(&sema.Uint{Bits: 32}, "out_len")
	bin.Store(lenPtr, bin.ConstInt(&sema.Uint{Bits: 32}, size))
	bin.HostCall(name, out, lenPtr)
	return bin.Load(ty, out, name)
}

// codeHash resolves the uploaded code hash of another contract in the
// compilation unit. The hash itself is a link-time constant.
func codeHash(bin *emit.Binary, contractNo int) *emit.Value {
	return bin.Global(&sema.Bytes{Len: 32}, "code_hash_"+strconv.Itoa(contractNo))
}

func valueOrZero(bin *emit.Binary, value *emit.Value) *emit.Value {
	if value != nil {
		return value
	}
	return bin.Zero(emit.WordType())
}

func gasOrZero(bin *emit.Binary, gas *emit.Value) *emit.Value {
	if gas != nil {
		return gas
	}
	// Zero tells the pallet to forward all remaining weight.
	return bin.Zero(&sema.Uint{Bits: 64})
}

// successFromStatus maps the pallet's zero-on-success return code to the
// success boolean the generated program branches on.
func successFromStatus(bin *emit.Binary, status *emit.Value) *emit.Value {
	ok := bin.ICmp("eq", status, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
	return bin.Select(ok, bin.ConstInt(&sema.Uint{Bits: 32}, 1), bin.ConstInt(&sema.Uint{Bits: 32}, 0))
}
