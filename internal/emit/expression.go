package emit

import (
	"basalt/internal/cfg"
	"basalt/internal/diag"
	"basalt/internal/sema"
)

// Expression lowers one expression tree into bin, querying the target for
// builtins. vartab maps CFG locals to their emitted values.
func Expression(rt TargetRuntime, bin *Binary, e cfg.Expression, vartab map[int]*Value) *Value {
	switch t := e.(type) {
	case *cfg.NumberLiteral:
		return bin.ConstBig(t.Ty, t.Value)

	case *cfg.BoolLiteral:
		return bin.ConstBool(t.Value)

	case *cfg.BytesLiteral:
		return bin.ConstBytes(t.Ty, t.Value)

	case *cfg.Variable:
		v, ok := vartab[t.VarNo]
		if !ok {
			diag.ICE("local %%%d read before definition", t.VarNo)
		}
		return v

	case *cfg.FunctionArg:
		return bin.FunctionArg(t.Ty, t.ArgNo)

	case *cfg.Load:
		ptr := Expression(rt, bin, t.Expr, vartab)
		return bin.Load(t.Ty, ptr, "deref")

	case *cfg.GetRef:
		inner := Expression(rt, bin, t.Expr, vartab)
		ptr := bin.Alloca(t.Expr.Type(), "ref")
		bin.Store(ptr, inner)
		return ptr

	case *cfg.StructMember:
		base := Expression(rt, bin, t.Expr, vartab)
		st := structType(t.Expr.Type())
		return bin.StructGEP(st, base, t.Member, st.Def.Fields[t.Member].Name)

	case *cfg.StructLiteral:
		st := structType(t.Ty)
		dest := bin.Alloca(t.Ty, st.Def.Name)
		for i, val := range t.Values {
			bin.Store(bin.StructGEP(st, dest, i, st.Def.Fields[i].Name),
				Expression(rt, bin, val, vartab))
		}
		return dest

	case *cfg.ArrayLiteral:
		elem := t.Ty.(*sema.Array).Elem
		dest := bin.Alloca(t.Ty, "array")
		for i, val := range t.Values {
			index := bin.ConstInt(&sema.Uint{Bits: 32}, uint64(i))
			bin.Store(bin.GEP(elem, dest, index, "elem"),
				Expression(rt, bin, val, vartab))
		}
		return dest

	case *cfg.Subscript:
		base := Expression(rt, bin, t.Expr, vartab)
		index := Expression(rt, bin, t.Index, vartab)
		elem := t.ArrayTy.(*sema.Array).Elem
		return bin.GEP(elem, base, index, "index")

	case *cfg.Builtin:
		return rt.Builtin(bin, t, vartab)

	case *cfg.Cast:
		return bin.Cast(t.Ty, Expression(rt, bin, t.Expr, vartab))

	case *cfg.Binary:
		lhs := Expression(rt, bin, t.Left, vartab)
		rhs := Expression(rt, bin, t.Right, vartab)
		switch t.Op {
		case cfg.OpAdd:
			return bin.Add(lhs, rhs)
		case cfg.OpSub:
			return bin.Sub(lhs, rhs)
		case cfg.OpMul:
			return bin.Mul(lhs, rhs)
		case cfg.OpEq:
			return bin.ICmp("eq", lhs, rhs)
		case cfg.OpLt:
			return bin.ICmp("ult", lhs, rhs)
		}
		diag.ICE("unknown binary op %q", t.Op)
	}

	diag.ICE("expression %T cannot be lowered", e)
	return nil
}

func structType(ty sema.Type) *sema.Struct {
	for {
		switch t := ty.(type) {
		case *sema.Struct:
			return t
		case *sema.Ref:
			ty = t.To
		default:
			diag.ICE("expected struct type, found %s", ty)
		}
	}
}
