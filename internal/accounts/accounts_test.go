package accounts

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basalt/internal/cfg"
	"basalt/internal/sema"
)

// payerVaultNamespace models a caller that receives a funding account and
// constructs a vault contract whose constructor wants the data account, the
// funding account and the system program.
func payerVaultNamespace() (*sema.Namespace, []*cfg.ControlFlowGraph) {
	vaultSpec := sema.NewAccountSpec()
	vaultSpec.Add(sema.DataAccount, sema.Account{IsSigner: false, IsWriter: true})
	vaultSpec.Add("payer", sema.Account{IsSigner: true, IsWriter: true})
	vaultSpec.Add(sema.SystemAccount, sema.Account{IsSigner: false, IsWriter: false})

	callerSpec := sema.NewAccountSpec()
	callerSpec.Add("payer", sema.Account{IsSigner: true, IsWriter: true})

	ns := &sema.Namespace{
		AddressLength: 32,
		Functions: []*sema.Function{
			{Name: "create_vault", Accounts: callerSpec},
			{Name: "vault_init", Constructor: true, Accounts: vaultSpec},
		},
		Contracts: []*sema.Contract{
			{Name: "launcher", Functions: []int{0}, AllFunctions: map[int]int{0: 0}},
		},
	}

	caller := &cfg.ControlFlowGraph{Name: "create_vault"}
	entry := caller.NewBlock("entry")
	caller.Append(entry, &cfg.Constructor{
		Res:           1,
		Contract:      1,
		ConstructorNo: 1,
		EncodedArgs:   &cfg.BytesLiteral{Ty: &sema.DynamicBytes{}, Value: []byte{1, 2, 3}},
		Address:       &cfg.Variable{Ty: &sema.Address{}, VarNo: 7},
	})
	caller.Append(entry, &cfg.Return{})

	return ns, []*cfg.ControlFlowGraph{caller}
}

func constructorOf(t *testing.T, g *cfg.ControlFlowGraph) *cfg.Constructor {
	t.Helper()
	for _, block := range g.Blocks {
		for _, instr := range block.Instr {
			if c, ok := instr.(*cfg.Constructor); ok {
				return c
			}
		}
	}
	t.Fatal("no constructor instruction in CFG")
	return nil
}

func TestConstructorAccountSynthesis(t *testing.T) {
	ns, cfgs := payerVaultNamespace()

	ManageContractAccounts(ns, 0, cfgs)

	ctor := constructorOf(t, cfgs[0])
	require.NotNil(t, ctor.Accounts, "account list should be synthesized")
	assert.Nil(t, ctor.Address, "raw address should be cleared once transferred")

	metas, ok := ctor.Accounts.(*cfg.ArrayLiteral)
	require.True(t, ok, "accounts should be an array literal")
	require.Len(t, metas.Values, 3, "one meta per callee account")
	assert.Equal(t, []uint32{3}, metas.Dimensions)

	// Order follows the callee's declaration order.
	dataMeta := metas.Values[0].(*cfg.StructLiteral)
	payerMeta := metas.Values[1].(*cfg.StructLiteral)
	systemMeta := metas.Values[2].(*cfg.StructLiteral)

	// The data account carries the address the constructor was given.
	dataRef, ok := dataMeta.Values[0].(*cfg.GetRef)
	require.True(t, ok)
	addr, ok := dataRef.Expr.(*cfg.Variable)
	require.True(t, ok, "data account address comes from the construct site")
	assert.Equal(t, 7, addr.VarNo)
	assert.Equal(t, &cfg.BoolLiteral{Value: true}, dataMeta.Values[1], "is_writable")
	assert.Equal(t, &cfg.BoolLiteral{Value: false}, dataMeta.Values[2], "is_signer")

	// The system program account is the zero address, never signer or
	// writer regardless of the declared flags.
	systemRef, ok := systemMeta.Values[0].(*cfg.GetRef)
	require.True(t, ok)
	zero, ok := systemRef.Expr.(*cfg.NumberLiteral)
	require.True(t, ok)
	assert.Zero(t, zero.Value.Sign())
	assert.Equal(t, &cfg.BoolLiteral{Value: false}, systemMeta.Values[1])
	assert.Equal(t, &cfg.BoolLiteral{Value: false}, systemMeta.Values[2])

	// The payer resolves through the caller's own account list.
	load, ok := payerMeta.Values[0].(*cfg.Load)
	require.True(t, ok, "caller-supplied account reads its key from the vector")
	member, ok := load.Expr.(*cfg.StructMember)
	require.True(t, ok)
	assert.Equal(t, 0, member.Member, "key is the leading field")
	sub, ok := member.Expr.(*cfg.Subscript)
	require.True(t, ok)
	builtin, ok := sub.Expr.(*cfg.Builtin)
	require.True(t, ok)
	assert.Equal(t, sema.BuiltinAccounts, builtin.Kind)
	index, ok := sub.Index.(*cfg.NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(0), index.Value.Int64(), "payer is the caller's first account")
	assert.Equal(t, &cfg.BoolLiteral{Value: true}, payerMeta.Values[1])
	assert.Equal(t, &cfg.BoolLiteral{Value: true}, payerMeta.Values[2])
}

func TestPassIsIdempotent(t *testing.T) {
	ns, cfgs := payerVaultNamespace()

	ManageContractAccounts(ns, 0, cfgs)
	first := constructorOf(t, cfgs[0])

	ManageContractAccounts(ns, 0, cfgs)
	second := constructorOf(t, cfgs[0])

	assert.Same(t, first, second, "a resolved constructor must pass through untouched")
	assert.Equal(t, first.Accounts, second.Accounts)
}

func TestUnknownConstructorSkipped(t *testing.T) {
	ns, cfgs := payerVaultNamespace()
	ctor := constructorOf(t, cfgs[0])
	ctor.ConstructorNo = -1

	ManageContractAccounts(ns, 0, cfgs)

	after := constructorOf(t, cfgs[0])
	assert.Nil(t, after.Accounts, "unknown callee: nothing to synthesize")
	assert.NotNil(t, after.Address, "address stays with the instruction")
}

func TestAccountAccessRewritten(t *testing.T) {
	spec := sema.NewAccountSpec()
	spec.Add("payer", sema.Account{IsSigner: true, IsWriter: true})
	spec.Add("vault", sema.Account{IsSigner: false, IsWriter: true})

	ns := &sema.Namespace{
		Functions: []*sema.Function{{Name: "withdraw", Accounts: spec}},
		Contracts: []*sema.Contract{
			{Name: "vault", Functions: []int{0}, AllFunctions: map[int]int{0: 0}},
		},
	}

	g := &cfg.ControlFlowGraph{Name: "withdraw"}
	entry := g.NewBlock("entry")
	g.Append(entry, &cfg.AccountAccess{Res: 4, Name: "vault"})
	g.Append(entry, &cfg.Return{})

	ManageContractAccounts(ns, 0, []*cfg.ControlFlowGraph{g})

	set, ok := g.Blocks[0].Instr[0].(*cfg.Set)
	require.True(t, ok, "account access becomes a plain assignment")
	assert.Equal(t, 4, set.Res)

	sub, ok := set.Expr.(*cfg.Subscript)
	require.True(t, ok)
	index, ok := sub.Index.(*cfg.NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(1), index.Value.Int64())

	for _, block := range g.Blocks {
		for _, instr := range block.Instr {
			_, isAccess := instr.(*cfg.AccountAccess)
			assert.False(t, isAccess, "no account access survives the pass")
		}
	}
}

func TestTraversalTerminatesOnLoops(t *testing.T) {
	spec := sema.NewAccountSpec()
	spec.Add("payer", sema.Account{IsSigner: true, IsWriter: true})

	ns := &sema.Namespace{
		Functions: []*sema.Function{{Name: "spin", Accounts: spec}},
		Contracts: []*sema.Contract{
			{Name: "c", Functions: []int{0}, AllFunctions: map[int]int{0: 0}},
		},
	}

	g := &cfg.ControlFlowGraph{Name: "spin"}
	header := g.NewBlock("header")
	body := g.NewBlock("body")
	g.Append(header, &cfg.BranchCond{
		Cond:  &cfg.BoolLiteral{Value: true},
		True:  body,
		False: header,
	})
	g.Append(body, &cfg.AccountAccess{Res: 0, Name: "payer"})
	g.Append(body, &cfg.Branch{Block: header})

	ManageContractAccounts(ns, 0, []*cfg.ControlFlowGraph{g})

	_, ok := g.Blocks[body].Instr[0].(*cfg.Set)
	assert.True(t, ok, "blocks inside loops are still visited once")
}

func TestDispatchSeededWithConstructorSpec(t *testing.T) {
	ctorSpec := sema.NewAccountSpec()
	ctorSpec.Add(sema.DataAccount, sema.Account{IsWriter: true})
	ctorSpec.Add("payer", sema.Account{IsSigner: true, IsWriter: true})

	ns := &sema.Namespace{
		Functions: []*sema.Function{
			{Name: "init", Constructor: true, Accounts: ctorSpec},
		},
		Contracts: []*sema.Contract{
			{Name: "vault", Functions: []int{0}, AllFunctions: map[int]int{0: 0}},
		},
	}

	init := &cfg.ControlFlowGraph{Name: "init"}
	init.NewBlock("entry")
	init.Append(0, &cfg.Return{})

	dispatch := &cfg.ControlFlowGraph{Name: DispatchCFGName}
	dispatch.NewBlock("entry")
	dispatch.Append(0, &cfg.AccountAccess{Res: 2, Name: "payer"})
	dispatch.Append(0, &cfg.Return{})

	ManageContractAccounts(ns, 0, []*cfg.ControlFlowGraph{init, dispatch})

	set, ok := dispatch.Blocks[0].Instr[0].(*cfg.Set)
	require.True(t, ok, "dispatch resolves names against the constructor's accounts")
	sub := set.Expr.(*cfg.Subscript)
	index := sub.Index.(*cfg.NumberLiteral)
	assert.Equal(t, int64(1), index.Value.Int64())
}

func TestAccountMetaLiteralFieldOrder(t *testing.T) {
	addr := &cfg.GetRef{
		Ty:   &sema.Ref{To: &sema.Address{}},
		Expr: &cfg.NumberLiteral{Ty: &sema.Address{}, Value: big.NewInt(9)},
	}

	meta := AccountMetaLiteral(addr, true, false).(*cfg.StructLiteral)

	require.Len(t, meta.Values, 3)
	assert.Equal(t, addr, meta.Values[0])
	assert.Equal(t, &cfg.BoolLiteral{Value: false}, meta.Values[1], "is_writable comes second")
	assert.Equal(t, &cfg.BoolLiteral{Value: true}, meta.Values[2], "is_signer comes last")
}
