package polkadot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basalt/internal/cfg"
	"basalt/internal/emit"
	"basalt/internal/sema"
)

func TestWordStoragePrimitives(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	slot := bin.ConstInt(emit.WordType(), 6)
	val := rt.StorageLoad(bin, &sema.Uint{Bits: 256}, slot)
	rt.StorageStore(bin, &sema.Uint{Bits: 256}, true, slot, val)
	rt.StorageDelete(bin, &sema.Uint{Bits: 256}, slot)

	assert.Equal(t, []string{
		"seal_get_storage",
		"seal_set_storage",
		"seal_clear_storage",
	}, bin.HostCalls())
}

func TestAbsentKeyReadsAsZero(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	rt.StorageLoad(bin, &sema.Uint{Bits: 256}, bin.ConstInt(emit.WordType(), 1))

	// The raw host read is guarded by a select against the key-not-found
	// status, so unwritten slots surface as zero.
	var sawSelect bool
	for _, op := range bin.AllOps() {
		if op.Kind == "select" {
			sawSelect = true
		}
	}
	assert.True(t, sawSelect)
}

func TestDynamicBytesStorage(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	value := bin.HostCall("vector_new", bin.ConstInt(emit.WordType(), 40), bin.ConstInt(emit.WordType(), 1))
	rt.StorageStore(bin, &sema.DynamicBytes{}, false, bin.ConstInt(emit.WordType(), 2), value)

	calls := bin.HostCalls()
	assert.Contains(t, calls, "seal_hash_keccak_256", "data words live behind the hashed base slot")
	assert.Contains(t, calls, "seal_set_storage")
	assert.Contains(t, calls, "vector_read_word")
}

func TestHashAlgorithms(t *testing.T) {
	tests := []struct {
		algo emit.HashAlgo
		host string
	}{
		{emit.HashKeccak256, "seal_hash_keccak_256"},
		{emit.HashSha256, "seal_hash_sha2_256"},
		{emit.HashBlake2b, "seal_hash_blake2_256"},
	}

	for _, tt := range tests {
		rt := New()
		bin := emit.NewBinary(rt.Name(), AddressLength)
		input := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 16), "input")

		digest := rt.Hash(bin, tt.algo, input, bin.ConstInt(&sema.Uint{Bits: 32}, 16))
		require.NotNil(t, digest)
		assert.Contains(t, bin.HostCalls(), tt.host)
	}
}

func TestInstantiateReportsSuccess(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	address := bin.Alloca(&sema.Address{}, "address")
	encoded := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 8), "encoded")

	success := rt.CreateContract(bin, 0, address, encoded, bin.ConstInt(&sema.Uint{Bits: 32}, 8), emit.ContractArgs{})
	require.NotNil(t, success)

	assert.Contains(t, bin.HostCalls(), "seal_instantiate")

	ops := bin.AllOps()
	var sawInversion bool
	for i, op := range ops {
		if op.Kind == "select" && i > 0 && ops[i-1].Kind == "icmp" {
			sawInversion = true
		}
	}
	assert.True(t, sawInversion, "the pallet's status code becomes a success boolean")
}

func TestCallKinds(t *testing.T) {
	tests := []struct {
		kind cfg.CallKind
		host string
	}{
		{cfg.CallRegular, "seal_call"},
		{cfg.CallStatic, "seal_call"},
		{cfg.CallDelegate, "seal_delegate_call"},
	}

	for _, tt := range tests {
		rt := New()
		bin := emit.NewBinary(rt.Name(), AddressLength)
		address := bin.Alloca(&sema.Address{}, "address")
		payload := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 4), "payload")

		rt.ExternalCall(bin, tt.kind, address, payload, bin.ConstInt(&sema.Uint{Bits: 32}, 4), emit.ContractArgs{})
		assert.Contains(t, bin.HostCalls(), tt.host)
	}
}

func TestEventDeposited(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)

	data := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 64), "data")
	topics := []*emit.Value{bin.ConstInt(emit.WordType(), 1), bin.ConstInt(emit.WordType(), 2)}
	rt.EmitEvent(bin, data, bin.ConstInt(&sema.Uint{Bits: 32}, 64), topics)

	assert.Contains(t, bin.HostCalls(), "seal_deposit_event")
}

func TestReturnPaths(t *testing.T) {
	rt := New()
	bin := emit.NewBinary(rt.Name(), AddressLength)
	data := bin.ArrayAlloca(bin.ConstInt(&sema.Uint{Bits: 32}, 8), "data")

	rt.ReturnAbiData(bin, data, bin.ConstInt(&sema.Uint{Bits: 32}, 8))
	ops := bin.AllOps()
	assert.Equal(t, "unreachable", ops[len(ops)-1].Kind, "seal_return does not come back")

	bin = emit.NewBinary(rt.Name(), AddressLength)
	rt.AssertFailure(bin, nil, nil)
	assert.Equal(t, []string{"seal_return"}, bin.HostCalls())
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		kind sema.Builtin
		host string
	}{
		{sema.BuiltinGetAddress, "seal_address"},
		{sema.BuiltinSender, "seal_caller"},
		{sema.BuiltinTimestamp, "seal_now"},
		{sema.BuiltinBlockNumber, "seal_block_number"},
		{sema.BuiltinValue, "seal_value_transferred"},
	}

	for _, tt := range tests {
		rt := New()
		bin := emit.NewBinary(rt.Name(), AddressLength)
		v := rt.Builtin(bin, &cfg.Builtin{Kind: tt.kind}, nil)
		require.NotNil(t, v)
		assert.Contains(t, bin.HostCalls(), tt.host)
	}
}
