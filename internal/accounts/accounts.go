// Package accounts implements the account-metadata synthesis pass for
// account-based targets. It walks each function's CFG and automates account
// management: calling another contract's constructor gets a fully resolved
// AccountMeta array, and reads of "the account named N" become indexed
// loads from the accounts passed to the current call. Developers never
// enumerate account lists by hand.
package accounts

import (
	"math/big"

	"basalt/internal/cfg"
	"basalt/internal/sema"
)

// DispatchCFGName is the name of the dispatch entry point CFG, recognized
// by exact string match.
const DispatchCFGName = "basalt_dispatch"

// ManageContractAccounts runs the synthesis pass over every function of a
// contract, and over the dispatch CFG seeded with the contract's
// constructor. cfgs is the contract's CFG list, indexed through the
// contract's AllFunctions table. The CFGs are rewritten in place.
func ManageContractAccounts(ns *sema.Namespace, contractNo int, cfgs []*cfg.ControlFlowGraph) {
	contract := ns.Contracts[contractNo]

	constructorNo := -1
	for _, fnNo := range contract.Functions {
		if ns.Functions[fnNo].Constructor {
			constructorNo = fnNo
		}
		traverseCFG(cfgs[contract.AllFunctions[fnNo]], ns.Functions, fnNo)
	}

	if constructorNo >= 0 {
		for _, g := range cfgs {
			if g.Name == DispatchCFGName {
				traverseCFG(g, ns.Functions, constructorNo)
				break
			}
		}
	}
}

// traverseCFG walks the reachable blocks breadth-first, starting at the
// entry block, visiting each exactly once. CFGs may contain loops, so a
// visited set keyed by block index guards against non-termination.
func traverseCFG(g *cfg.ControlFlowGraph, functions []*sema.Function, fnNo int) {
	if len(g.Blocks) == 0 {
		return
	}

	queue := []int{0}
	visited := map[int]bool{0: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		block := g.Blocks[cur]
		for i, instr := range block.Instr {
			block.Instr[i] = processInstruction(instr, functions, fnNo)
		}

		for _, edge := range block.Edges() {
			if !visited[edge] {
				queue = append(queue, edge)
				visited[edge] = true
			}
		}
	}
}

// processInstruction returns the instruction that should replace instr.
// Only Constructor and AccountAccess are rewritten; everything else passes
// through untouched.
func processInstruction(instr cfg.Instr, functions []*sema.Function, fnNo int) cfg.Instr {
	switch t := instr.(type) {
	case *cfg.Constructor:
		// Already resolved, or the callee constructor is unknown: nothing
		// to synthesize. Leaving resolved lists untouched makes the pass
		// idempotent.
		if t.Accounts != nil || t.ConstructorNo < 0 {
			return instr
		}

		callee := functions[t.ConstructorNo]
		caller := functions[fnNo]

		var metas []cfg.Expression
		for _, name := range callee.Accounts.Names() {
			account, _ := callee.Accounts.Get(name)
			switch name {
			case sema.DataAccount:
				addressRef := &cfg.GetRef{
					Ty:   &sema.Ref{To: &sema.Address{}},
					Expr: t.Address,
				}
				metas = append(metas, AccountMetaLiteral(addressRef, account.IsSigner, account.IsWriter))
			case sema.SystemAccount:
				systemRef := &cfg.GetRef{
					Ty:   &sema.Ref{To: &sema.Address{}},
					Expr: &cfg.NumberLiteral{Ty: &sema.Address{}, Value: new(big.Int)},
				}
				metas = append(metas, AccountMetaLiteral(systemRef, false, false))
			default:
				index := caller.Accounts.MustIndexOf(name)
				metas = append(metas, AccountMetaLiteral(
					AccountsVectorKeyAtIndex(index), account.IsSigner, account.IsWriter))
			}
		}

		replacement := *t
		replacement.Address = nil
		replacement.Accounts = &cfg.ArrayLiteral{
			Ty: &sema.Array{
				Elem: sema.AccountMetaType(),
				Len:  big.NewInt(int64(len(metas))),
			},
			Dimensions: []uint32{uint32(len(metas))},
			Values:     metas,
		}
		return &replacement

	case *cfg.AccountAccess:
		index := functions[fnNo].Accounts.MustIndexOf(t.Name)
		return &cfg.Set{
			Res:  t.Res,
			Expr: indexAccountsVector(index),
		}
	}

	return instr
}

// AccountsVectorKeyAtIndex builds the expression 'tx.accounts[index].key'.
func AccountsVectorKeyAtIndex(index int) cfg.Expression {
	return RetrieveKeyFromAccountInfo(indexAccountsVector(index))
}

// RetrieveKeyFromAccountInfo extracts the account address from an
// AccountInfo reference. The address is the struct's first field; that
// position is fixed by the target ABI.
func RetrieveKeyFromAccountInfo(accountInfo cfg.Expression) cfg.Expression {
	address := &cfg.StructMember{
		Ty:     &sema.Ref{To: &sema.Ref{To: &sema.Address{}}},
		Expr:   accountInfo,
		Member: 0,
	}

	return &cfg.Load{
		Ty:   &sema.Ref{To: &sema.Address{}},
		Expr: address,
	}
}

// indexAccountsVector builds the expression 'tx.accounts[index]'.
func indexAccountsVector(index int) cfg.Expression {
	accountsVector := &cfg.Builtin{
		Tys:  []sema.Type{&sema.Array{Elem: sema.AccountInfoType()}},
		Kind: sema.BuiltinAccounts,
	}

	return &cfg.Subscript{
		Ty:      &sema.Ref{To: sema.AccountInfoType()},
		ArrayTy: &sema.Array{Elem: sema.AccountInfoType()},
		Expr:    accountsVector,
		Index: &cfg.NumberLiteral{
			Ty:    &sema.Uint{Bits: 32},
			Value: big.NewInt(int64(index)),
		},
	}
}

// AccountMetaLiteral builds one AccountMeta struct literal. Field order
// (address reference, is-writable, is-signer) matches the struct layout the
// target runtime generates.
func AccountMetaLiteral(address cfg.Expression, isSigner, isWriter bool) cfg.Expression {
	return &cfg.StructLiteral{
		Ty: sema.AccountMetaType(),
		Values: []cfg.Expression{
			address,
			&cfg.BoolLiteral{Value: isWriter},
			&cfg.BoolLiteral{Value: isSigner},
		},
	}
}
