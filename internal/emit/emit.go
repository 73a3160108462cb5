// Package emit lowers the shared CFG onto one execution environment. The
// TargetRuntime capability contract is queried block-by-block,
// instruction-by-instruction; the Binary records what the target decided
// to emit.
package emit

import (
	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/sema"
)

// EmitFunction lowers one function's CFG through the target runtime. The
// CFG must already have been through every transformation pass; in
// particular, no AccountAccess placeholders may remain.
func EmitFunction(rt TargetRuntime, bin *Binary, g *cfg.ControlFlowGraph, ns *sema.Namespace) {
	if len(g.Blocks) == 0 {
		return
	}

	// Emission blocks mirror CFG blocks one-to-one so branch targets can
	// be resolved before their blocks are filled.
	blockMap := make([]int, len(g.Blocks))
	blockMap[0] = bin.CurrentBlock()
	for i := 1; i < len(g.Blocks); i++ {
		name := g.Blocks[i].Name
		if name == "" {
			name = "block"
		}
		blockMap[i] = bin.NewBlock(name)
	}

	vartab := make(map[int]*Value)
	for i, block := range g.Blocks {
		bin.SetInsertPoint(blockMap[i])
		for _, instr := range block.Instr {
			emitInstruction(rt, bin, instr, vartab, blockMap)
		}
	}
}

func emitInstruction(rt TargetRuntime, bin *Binary, instr cfg.Instr, vartab map[int]*Value, blockMap []int) {
	switch t := instr.(type) {
	case *cfg.Set:
		vartab[t.Res] = Expression(rt, bin, t.Expr, vartab)

	case *cfg.Call:
		var args []*Value
		for _, a := range t.Args {
			args = append(args, Expression(rt, bin, a, vartab))
		}
		// Return types are threaded through the result locals.
		var returns []sema.Type
		for range t.Res {
			returns = append(returns, WordType())
		}
		results := bin.CallFunction(t.Func, args, returns)
		for i, res := range t.Res {
			vartab[res] = results[i]
		}

	case *cfg.Return:
		var vals []*Value
		for _, v := range t.Values {
			vals = append(vals, Expression(rt, bin, v, vartab))
		}
		bin.Ret(vals...)

	case *cfg.Branch:
		bin.Br(blockMap[t.Block])

	case *cfg.BranchCond:
		cond := Expression(rt, bin, t.Cond, vartab)
		bin.CondBr(cond, blockMap[t.True], blockMap[t.False])

	case *cfg.LoadStorage:
		slot := Expression(rt, bin, t.Storage, vartab)
		vartab[t.Res] = rt.StorageLoad(bin, t.Ty, slot)

	case *cfg.SetStorage:
		slot := Expression(rt, bin, t.Storage, vartab)
		val := Expression(rt, bin, t.Value, vartab)
		rt.StorageStore(bin, t.Ty, t.Existing, slot, val)

	case *cfg.ClearStorage:
		slot := Expression(rt, bin, t.Storage, vartab)
		rt.StorageDelete(bin, t.Ty, slot)

	case *cfg.PushStorage:
		slot := Expression(rt, bin, t.Storage, vartab)
		var val *Value
		if t.Value != nil {
			val = Expression(rt, bin, t.Value, vartab)
		}
		vartab[t.Res] = rt.StoragePush(bin, t.Ty, slot, val)

	case *cfg.PopStorage:
		slot := Expression(rt, bin, t.Storage, vartab)
		popped := rt.StoragePop(bin, t.Ty, slot, t.Res >= 0)
		if t.Res >= 0 {
			vartab[t.Res] = popped
		}

	case *cfg.Constructor:
		emitConstructor(rt, bin, t, vartab)

	case *cfg.ExternalCall:
		emitExternalCall(rt, bin, t, vartab)

	case *cfg.AccountAccess:
		// The synthesis pass eliminates every AccountAccess before
		// emission starts.
		diag.ICE("account access %q survived to code emission", t.Name)

	case *cfg.EmitEvent:
		data := Expression(rt, bin, t.Data, vartab)
		dataLen := bin.HostCall("vector_len", data)
		topics := []*Value{topicConstant(bin, t.Signature)}
		for _, topic := range t.Topics {
			topics = append(topics, Expression(rt, bin, topic, vartab))
		}
		rt.EmitEvent(bin, bin.HostCall("vector_bytes", data), dataLen, topics)

	case *cfg.Print:
		v := Expression(rt, bin, t.Expr, vartab)
		rt.Print(bin, bin.HostCall("vector_bytes", v), bin.HostCall("vector_len", v))

	case *cfg.AssertFailure:
		if t.Encoded == nil {
			rt.AssertFailure(bin, nil, bin.ConstInt(&sema.Uint{Bits: 32}, 0))
			return
		}
		v := Expression(rt, bin, t.Encoded, vartab)
		rt.AssertFailure(bin, bin.HostCall("vector_bytes", v), bin.HostCall("vector_len", v))

	case *cfg.ReturnData:
		data := Expression(rt, bin, t.Data, vartab)
		dataLen := Expression(rt, bin, t.DataLen, vartab)
		rt.ReturnAbiData(bin, data, dataLen)

	case *cfg.ReturnCode:
		rt.ReturnCode(bin, bin.ConstInt(&sema.Uint{Bits: 32}, t.Code))

	case *cfg.SelfDestruct:
		rt.SelfDestruct(bin, Expression(rt, bin, t.Recipient, vartab))

	case *cfg.ValueTransfer:
		address := Expression(rt, bin, t.Address, vartab)
		value := Expression(rt, bin, t.Value, vartab)
		success := rt.ValueTransfer(bin, address, value)
		if t.Success >= 0 {
			vartab[t.Success] = success
		}

	case *cfg.Unreachable:
		bin.Unreachable()

	default:
		diag.ICE("instruction %T cannot be lowered", instr)
	}
}

func emitConstructor(rt TargetRuntime, bin *Binary, t *cfg.Constructor, vartab map[int]*Value) {
	encoded := Expression(rt, bin, t.EncodedArgs, vartab)
	encodedLen := bin.HostCall("vector_len", encoded)

	args := ContractArgs{
		Value: optional(rt, bin, t.Value, vartab),
		Gas:   optional(rt, bin, t.Gas, vartab),
		Salt:  optional(rt, bin, t.Salt, vartab),
		Seeds: optional(rt, bin, t.Seeds, vartab),
	}
	if t.Accounts != nil {
		args.Accounts = Expression(rt, bin, t.Accounts, vartab)
		if lit, ok := t.Accounts.(*cfg.ArrayLiteral); ok {
			args.AccountsLen = bin.ConstInt(&sema.Uint{Bits: 32}, uint64(len(lit.Values)))
		}
	}

	// The synthesis pass clears the raw address on account-based targets;
	// elsewhere the created contract's address lands in a fresh cell.
	var address *Value
	if t.Address != nil {
		address = Expression(rt, bin, t.Address, vartab)
	} else {
		address = bin.Alloca(&sema.Address{}, "address")
	}

	success := rt.CreateContract(bin, t.Contract, address, bin.HostCall("vector_bytes", encoded), encodedLen, args)
	if t.Success >= 0 {
		vartab[t.Success] = success
	}
}

func emitExternalCall(rt TargetRuntime, bin *Binary, t *cfg.ExternalCall, vartab map[int]*Value) {
	payload := Expression(rt, bin, t.Payload, vartab)
	payloadLen := bin.HostCall("vector_len", payload)

	args := ContractArgs{
		Value: optional(rt, bin, t.Value, vartab),
		Gas:   optional(rt, bin, t.Gas, vartab),
		Seeds: optional(rt, bin, t.Seeds, vartab),
	}
	if t.Accounts != nil {
		args.Accounts = Expression(rt, bin, t.Accounts, vartab)
	}

	var address *Value
	if t.Address != nil {
		address = Expression(rt, bin, t.Address, vartab)
	}

	success := rt.ExternalCall(bin, t.Kind, address, bin.HostCall("vector_bytes", payload), payloadLen, args)
	if t.Success >= 0 {
		vartab[t.Success] = success
	}
}

func optional(rt TargetRuntime, bin *Binary, e cfg.Expression, vartab map[int]*Value) *Value {
	if e == nil {
		return nil
	}
	return Expression(rt, bin, e, vartab)
}

func topicConstant(bin *Binary, signature string) *Value {
	digest := EventSignatureHash(signature)
	return bin.ConstBytes(&sema.Bytes{Len: 32}, digest[:])
}
