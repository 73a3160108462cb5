package sema

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageSlots(t *testing.T) {
	tests := []struct {
		name string
		ty   Type
		want int64
	}{
		{"uint256", &Uint{Bits: 256}, 1},
		{"bool", &Bool{}, 1},
		{"dynamic bytes", &DynamicBytes{}, 1},
		{"mapping", &Mapping{Key: &Address{}, Value: &Uint{Bits: 256}}, 1},
		{"dynamic array", &Array{Elem: &Uint{Bits: 256}}, 1},
		{"fixed array", &Array{Elem: &Uint{Bits: 256}, Len: big.NewInt(4)}, 4},
		{"nested fixed array", &Array{
			Elem: &Array{Elem: &Bool{}, Len: big.NewInt(3)},
			Len:  big.NewInt(2),
		}, 6},
		{"struct", &Struct{Kind: StructUser, Def: &StructDef{
			Name: "pair",
			Fields: []Field{
				{Name: "a", Type: &Uint{Bits: 256}},
				{Name: "b", Type: &Array{Elem: &Bool{}, Len: big.NewInt(3)}},
			},
		}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ty.StorageSlots().Int64())
		})
	}
}

func TestIsFixedWidth(t *testing.T) {
	assert.True(t, IsFixedWidth(&Uint{Bits: 128}))
	assert.True(t, IsFixedWidth(&Bytes{Len: 32}))
	assert.True(t, IsFixedWidth(&Ref{To: &Address{}}))
	assert.False(t, IsFixedWidth(&DynamicBytes{}))
	assert.False(t, IsFixedWidth(&String{}))
	assert.False(t, IsFixedWidth(&Array{Elem: &Bool{}, Len: big.NewInt(2)}))
	assert.False(t, IsFixedWidth(&Mapping{Key: &Address{}, Value: &Bool{}}))
}

func TestBuiltinStructLayouts(t *testing.T) {
	meta := AccountMetaType()
	require.Len(t, meta.Def.Fields, 3)
	assert.Equal(t, "key", meta.Def.Fields[0].Name)
	assert.Equal(t, "is_writable", meta.Def.Fields[1].Name)
	assert.Equal(t, "is_signer", meta.Def.Fields[2].Name)

	info := AccountInfoType()
	assert.Equal(t, "key", info.Def.Fields[0].Name, "the address leads the layout")
}

func TestFindBuiltin(t *testing.T) {
	proto, ok := FindBuiltin(BuiltinAccounts)
	require.True(t, ok)
	require.Len(t, proto.Returns, 1)
	_, isArray := proto.Returns[0].(*Array)
	assert.True(t, isArray, "accounts resolves to the account vector")

	_, ok = FindBuiltin(BuiltinUnknown)
	assert.False(t, ok)
}
