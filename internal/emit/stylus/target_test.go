package stylus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/emit"
	"basalt/internal/sema"
)

// unsupported runs fn and returns the capability error it aborts with.
func unsupported(t *testing.T, fn func()) (caught *diag.CompilerError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a fatal capability error")
		var ok bool
		caught, ok = r.(*diag.CompilerError)
		require.True(t, ok, "panic value should be a compiler error")
	}()
	fn()
	return caught
}

func TestFixedWidthStorage(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	slot := bin.ConstInt(emit.WordType(), 1)
	val := rt.StorageLoad(bin, &sema.Uint{Bits: 256}, slot)
	rt.StorageStore(bin, &sema.Uint{Bits: 256}, true, slot, val)

	assert.Equal(t, []string{
		"storage_load_bytes32",
		"storage_cache_bytes32",
		"storage_flush_cache",
	}, bin.HostCalls(), "every write flushes the host cache")
}

func TestCompositeStorageIsFatal(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)
	slot := bin.ConstInt(emit.WordType(), 1)

	err := unsupported(t, func() {
		rt.StorageLoad(bin, &sema.String{}, slot)
	})
	assert.Equal(t, diag.ErrorUnsupported, err.Code)
	assert.Equal(t, "stylus", err.Target)

	err = unsupported(t, func() {
		rt.StoragePush(bin, &sema.Uint{Bits: 256}, slot, nil)
	})
	assert.Equal(t, diag.ErrorUnsupported, err.Code)
}

func TestAbsentCapabilitiesAreFatal(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	for name, fn := range map[string]func(){
		"create contract": func() {
			rt.CreateContract(bin, 0, nil, nil, nil, emit.ContractArgs{})
		},
		"value transfer": func() { rt.ValueTransfer(bin, nil, nil) },
		"selfdestruct":   func() { rt.SelfDestruct(bin, nil) },
		"events":         func() { rt.EmitEvent(bin, nil, nil, nil) },
	} {
		err := unsupported(t, fn)
		assert.Equal(t, diag.ErrorUnsupported, err.Code, name)
	}
}

func TestHashOnlyKeccak(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)
	input := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 64), "input")

	rt.Hash(bin, emit.HashKeccak256, input, bin.ConstInt(&sema.Uint{Bits: 32}, 64))
	assert.Contains(t, bin.HostCalls(), "native_keccak256")

	err := unsupported(t, func() {
		rt.Hash(bin, emit.HashSha256, input, bin.ConstInt(&sema.Uint{Bits: 32}, 64))
	})
	assert.Equal(t, diag.ErrorUnsupportedHash, err.Code)
}

func TestExternalCallStatusInversion(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
	payload := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 4), "payload")
	success := rt.ExternalCall(bin, cfg.CallRegular, address, payload, bin.ConstInt(&sema.Uint{Bits: 32}, 4), emit.ContractArgs{})
	require.NotNil(t, success)

	ops := bin.AllOps()

	// The host reports zero on success; the program-facing value must be
	// inverted through a compare and select, not passed through raw.
	var sawCall, sawInversion bool
	for i, op := range ops {
		if op.Kind == "hostcall" && op.Name == "call_contract" {
			sawCall = true
		}
		if op.Kind == "select" && i > 0 && ops[i-1].Kind == "icmp" && ops[i-1].Name == "eq" {
			sawInversion = true
		}
	}
	assert.True(t, sawCall)
	assert.True(t, sawInversion)
}

func TestExternalCallKinds(t *testing.T) {
	tests := []struct {
		kind cfg.CallKind
		host string
	}{
		{cfg.CallRegular, "call_contract"},
		{cfg.CallDelegate, "delegate_call_contract"},
		{cfg.CallStatic, "static_call_contract"},
	}

	for _, tt := range tests {
		rt := New()
		bin := emit.NewBinary(rt.Name(), AddressLength)
		address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
		payload := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 4), "payload")

		rt.ExternalCall(bin, tt.kind, address, payload, bin.ConstInt(&sema.Uint{Bits: 32}, 4), emit.ContractArgs{})
		assert.Contains(t, bin.HostCalls(), tt.host)
	}
}

func TestReturnDataUsesCachedLength(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	address := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, AddressLength), "address")
	payload := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 4), "payload")
	rt.ExternalCall(bin, cfg.CallRegular, address, payload, bin.ConstInt(&sema.Uint{Bits: 32}, 4), emit.ContractArgs{})

	data := rt.ReturnData(bin)
	require.NotNil(t, data)

	calls := bin.HostCalls()
	assert.Contains(t, calls, "read_return_data")
	assert.Contains(t, calls, "vector_new")

	// The observed length comes from the call's out-parameter, cached in a
	// global cell; ReturnData must not query the host again for it.
	for _, name := range calls {
		assert.NotEqual(t, "return_data_size", name)
	}
}

func TestReturnAbiDataWritesResult(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	data := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 32), "data")
	rt.ReturnAbiData(bin, data, bin.ConstInt(&sema.Uint{Bits: 32}, 32))

	assert.Equal(t, []string{"write_result"}, bin.HostCalls())
	ops := bin.AllOps()
	assert.Equal(t, "ret", ops[len(ops)-1].Kind)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		kind sema.Builtin
		host string
	}{
		{sema.BuiltinGetAddress, "contract_address"},
		{sema.BuiltinSender, "msg_sender"},
		{sema.BuiltinOrigin, "tx_origin"},
	}

	for _, tt := range tests {
		rt := New()
		bin := emit.NewBinary(rt.Name(), AddressLength)
		v := rt.Builtin(bin, &cfg.Builtin{Kind: tt.kind}, nil)
		require.NotNil(t, v)
		assert.Contains(t, bin.HostCalls(), tt.host)
	}

	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)
	err := unsupported(t, func() {
		rt.Builtin(bin, &cfg.Builtin{Kind: sema.BuiltinAccounts}, nil)
	})
	assert.Equal(t, diag.ErrorUnsupported, err.Code)
}
