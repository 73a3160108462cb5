// Package solana lowers onto an account-model runtime: contract state
// lives in the data of an account passed into the transaction, cross
// contract calls carry an explicit account list, and the entrypoint
// reports failure as a nonzero 64-bit return code.
package solana

import (
	"math/big"
	"strconv"

	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/emit"
	"basalt/internal/sema"
)

const targetName = "solana"

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

// Word primitives behind the slot-recursive policy. State lives in the
// data account's byte buffer; the runtime library maps word numbers onto
// offsets in it.

func (*Target) GetStorageWord(bin *emit.Binary, ty sema.Type, slot *emit.Value) *emit.Value {
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.HostCall("sol_data_get_word", dataAccount(bin), slot, valuePtr)
	return bin.Load(ty, valuePtr, "value")
}

func (*Target) SetStorageWord(bin *emit.Binary, slot *emit.Value, val *emit.Value) {
	valuePtr := bin.Alloca(emit.WordType(), "value")
	bin.Store(valuePtr, val)
	bin.HostCall("sol_data_set_word", dataAccount(bin), slot, valuePtr)
}

func (*Target) ClearStorageWord(bin *emit.Binary, slot *emit.Value) {
	bin.HostCall("sol_data_clear_word", dataAccount(bin), slot)
}

func (*Target) KeccakSlots(bin *emit.Binary, words ...*emit.Value) *emit.Value {
	length := uint64(len(words)) * 32
	buf := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, length), "hash_input")
	for i, word := range words {
		ptr := bin.GEP(emit.WordType(), buf, bin.ConstInt(&sema.Uint{Bits: 64}, uint64(i)), "word")
		bin.Store(ptr, word)
	}
	out := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, 32), "hash")
	bin.HostCall("sol_keccak256", buf, bin.ConstInt(&sema.Uint{Bits: 64}, length), out)
	return bin.Load(emit.WordType(), out, "slot")
}

func (*Target) Hash(bin *emit.Binary, algo emit.HashAlgo, input *emit.Value, inputLen *emit.Value) *emit.Value {
	var name string
	switch algo {
	case emit.HashKeccak256:
		name = "sol_keccak256"
	case emit.HashSha256:
		name = "sol_sha256"
	default:
		diag.UnsupportedHash(targetName, string(algo))
	}

	out := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, 32), "hash")
	bin.HostCall(name, input, inputLen, out)
	return bin.Load(&sema.Bytes{Len: 32}, out, "hash")
}

func (*Target) Print(bin *emit.Binary, str *emit.Value, length *emit.Value) {
	bin.HostCall("sol_log_", str, length)
}

// CreateContract invokes the callee's program with the account list the
// metadata pass synthesized. There is no value and no gas on this target;
// the address the new state lives at is itself one of the accounts.
func (*Target) CreateContract(bin *emit.Binary, contractNo int, address *emit.Value, encodedArgs *emit.Value, encodedArgsLen *emit.Value, args emit.ContractArgs) *emit.Value {
	if args.Accounts == nil {
		diag.ICE("constructing contract %d without a synthesized account list", contractNo)
	}

	programID := args.ProgramID
	if programID == nil {
		// The callee's program id is a link-time constant.
		programID = bin.Global(&sema.Address{}, "program_id_"+strconv.Itoa(contractNo))
	}

	instruction := buildInstruction(bin, programID, args.Accounts, args.AccountsLen, encodedArgs, encodedArgsLen)
	status := invokeSigned(bin, instruction, args.Seeds, args.SeedsLen)
	return successFromStatus(bin, status)
}

func (*Target) ExternalCall(bin *emit.Binary, kind cfg.CallKind, address *emit.Value, payload *emit.Value, payloadLen *emit.Value, args emit.ContractArgs) *emit.Value {
	if kind != cfg.CallRegular {
		diag.Unsupported(targetName, "delegate and static calls")
	}

	instruction := buildInstruction(bin, address, args.Accounts, args.AccountsLen, payload, payloadLen)
	status := invokeSigned(bin, instruction, args.Seeds, args.SeedsLen)
	return successFromStatus(bin, status)
}

func (*Target) ReturnData(bin *emit.Binary) *emit.Value {
	size := bin.HostCall("sol_get_return_data_size")
	data := bin.ArrayAlloca(size, "return_data")
	programID := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, AddressLength), "program_id")
	bin.HostCall("sol_get_return_data", data, size, programID)
	return bin.HostCall("vector_new", size, bin.ConstInt(&sema.Uint{Bits: 64}, 1), data)
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
	// Events are log entries; topics travel inline ahead of the payload.
	fields := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, uint64(len(topics)+1)*32), "fields")
	for i, topic := range topics {
		ptr := bin.GEP(emit.WordType(), fields, bin.ConstInt(&sema.Uint{Bits: 64}, uint64(i)), "topic")
		bin.Store(ptr, topic)
	}
	bin.HostCall("sol_log_data", fields, bin.ConstInt(&sema.Uint{Bits: 64}, uint64(len(topics))), data, dataLen)
}

func (*Target) ReturnAbiData(bin *emit.Binary, data *emit.Value, dataLen *emit.Value) {
	bin.HostCall("sol_set_return_data", data, dataLen)
	bin.Ret(bin.ConstInt(&sema.Uint{Bits: 64}, 0))
}

func (*Target) ReturnEmptyAbi(bin *emit.Binary) {
	bin.HostCall("sol_set_return_data", bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, 0), "empty"), bin.ConstInt(&sema.Uint{Bits: 64}, 0))
	bin.Ret(bin.ConstInt(&sema.Uint{Bits: 64}, 0))
}

func (*Target) ReturnCode(bin *emit.Binary, code *emit.Value) {
	bin.Ret(code)
}

func (*Target) AssertFailure(bin *emit.Binary, data *emit.Value, length *emit.Value) {
	if data != nil {
		bin.HostCall("sol_set_return_data", data, length)
	}
	// Custom program error zero; bit 32 marks the custom error space.
	bin.Ret(bin.ConstBig(&sema.Uint{Bits: 64}, new(big.Int).Lsh(big.NewInt(1), 32)))
}

func (*Target) Builtin(bin *emit.Binary, expr *cfg.Builtin, vartab map[int]*emit.Value) *emit.Value {
	switch expr.Kind {
	case sema.BuiltinAccounts:
		return accountsVector(bin)

	case sema.BuiltinGetAddress:
		// The program id sits behind the account list in the input region.
		programID := bin.HostCall("sol_program_id", accountsVector(bin))
		return bin.Load(&sema.Address{}, programID, "program_id")

	case sema.BuiltinTimestamp:
		clock := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, 40), "clock")
		bin.HostCall("sol_get_clock_sysvar", clock)
		// unix_timestamp is the trailing field of the clock sysvar.
		ptr := bin.GEP(&sema.Uint{Bits: 64}, clock, bin.ConstInt(&sema.Uint{Bits: 64}, 4), "unix_timestamp")
		return bin.Load(&sema.Uint{Bits: 64}, ptr, "timestamp")

	case sema.BuiltinBlockNumber:
		clock := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 64}, 40), "clock")
		bin.HostCall("sol_get_clock_sysvar", clock)
		return bin.Load(&sema.Uint{Bits: 64}, clock, "slot")
	}

	diag.Unsupported(targetName, expr.Kind.String())
	return nil
}

// accountsVector is the deserialized account list of the current
// invocation, populated by the entrypoint before dispatch.
func accountsVector(bin *emit.Binary) *emit.Value {
	accountInfo := sema.AccountInfoType()
	return bin.Global(&sema.Array{Elem: accountInfo}, "sol_accounts")
}

// dataAccount is the account holding this contract's state, at a fixed
// position in the account list.
func dataAccount(bin *emit.Binary) *emit.Value {
	accounts := accountsVector(bin)
	return bin.GEP(sema.AccountInfoType(), accounts, bin.ConstInt(&sema.Uint{Bits: 64}, 0), "data_account")
}

// buildInstruction assembles the C-layout instruction the invoke syscall
// consumes: program id, account meta array, data.
func buildInstruction(bin *emit.Binary, programID, accounts, accountsLen, data, dataLen *emit.Value) *emit.Value {
	instruction := bin.Alloca(instructionType(), "instruction")
	ty := instructionType().(*sema.Struct)
	bin.Store(bin.StructGEP(ty, instruction, 0, "program_id"), programID)
	bin.Store(bin.StructGEP(ty, instruction, 1, "accounts"), accounts)
	bin.Store(bin.StructGEP(ty, instruction, 2, "accounts_len"), accountsLen)
	bin.Store(bin.StructGEP(ty, instruction, 3, "data"), data)
	bin.Store(bin.StructGEP(ty, instruction, 4, "data_len"), dataLen)
	return instruction
}

func instructionType() sema.Type {
	return &sema.Struct{
		Kind: sema.StructUser,
		Def: &sema.StructDef{
			Name: "SolInstruction",
			Fields: []sema.Field{
				{Name: "program_id", Type: &sema.Ref{To: &sema.Address{}}},
				{Name: "accounts", Type: &sema.Ref{To: sema.AccountMetaType()}},
				{Name: "accounts_len", Type: &sema.Uint{Bits: 64}},
				{Name: "data", Type: &sema.Ref{To: &sema.DynamicBytes{}}},
				{Name: "data_len", Type: &sema.Uint{Bits: 64}},
			},
		},
	}
}

func invokeSigned(bin *emit.Binary, instruction, seeds, seedsLen *emit.Value) *emit.Value {
	if seeds == nil {
		seeds = bin.Zero(&sema.Uint{Bits: 64})
		seedsLen = bin.Zero(&sema.Uint{Bits: 64})
	}
	return bin.HostCall("sol_invoke_signed_c", instruction, accountsVector(bin), seeds, seedsLen)
}

// successFromStatus maps the syscall's zero-on-success status onto the
// success value the generated program branches on.
func successFromStatus(bin *emit.Binary, status *emit.Value) *emit.Value {
	ok := bin.ICmp("eq", status, bin.ConstInt(&sema.Uint{Bits: 64}, 0))
	return bin.Select(ok, bin.ConstInt(&sema.Uint{Bits: 64}, 1), bin.ConstInt(&sema.Uint{Bits: 64}, 0))
}
