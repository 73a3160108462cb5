// Package bundle decodes the JSON compilation unit the command line driver
// consumes: contracts, function signatures with their account requirements,
// and per-function control flow graphs over a compact instruction set.
package bundle

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"basalt/internal/cfg"
	"basalt/internal/sema"
)

type Unit struct {
	AddressLength int        `json:"addressLength"`
	Contracts     []Contract `json:"contracts"`
	Functions     []Function `json:"functions"`
}

type Contract struct {
	Name      string `json:"name"`
	Functions []int  `json:"functions"`
}

type Function struct {
	Name        string    `json:"name"`
	Constructor bool      `json:"constructor"`
	Accounts    []Account `json:"accounts"`
	Blocks      []Block   `json:"blocks"`
}

type Account struct {
	Name   string `json:"name"`
	Signer bool   `json:"signer"`
	Writer bool   `json:"writer"`
}

type Block struct {
	Name  string            `json:"name"`
	Instr []json.RawMessage `json:"instr"`
}

// Load decodes a unit and builds the namespace and the per-function CFGs
// the compiler passes operate on.
func Load(data []byte) (*sema.Namespace, []*cfg.ControlFlowGraph, error) {
	var unit Unit
	if err := json.Unmarshal(data, &unit); err != nil {
		return nil, nil, fmt.Errorf("malformed unit: %w", err)
	}

	ns := &sema.Namespace{AddressLength: unit.AddressLength}
	if ns.AddressLength == 0 {
		ns.AddressLength = 32
	}

	var graphs []*cfg.ControlFlowGraph
	for _, fn := range unit.Functions {
		spec := sema.NewAccountSpec()
		for _, acc := range fn.Accounts {
			spec.Add(acc.Name, sema.Account{IsSigner: acc.Signer, IsWriter: acc.Writer})
		}
		ns.Functions = append(ns.Functions, &sema.Function{
			Name:        fn.Name,
			Constructor: fn.Constructor,
			Accounts:    spec,
		})

		g, err := decodeCFG(fn)
		if err != nil {
			return nil, nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		graphs = append(graphs, g)
	}

	for _, c := range unit.Contracts {
		contract := &sema.Contract{
			Name:         c.Name,
			Functions:    c.Functions,
			AllFunctions: make(map[int]int),
		}
		for _, fnNo := range c.Functions {
			if fnNo < 0 || fnNo >= len(ns.Functions) {
				return nil, nil, fmt.Errorf("contract %s: function %d out of range", c.Name, fnNo)
			}
			contract.AllFunctions[fnNo] = fnNo
		}
		ns.Contracts = append(ns.Contracts, contract)
	}

	return ns, graphs, nil
}

func decodeCFG(fn Function) (*cfg.ControlFlowGraph, error) {
	g := &cfg.ControlFlowGraph{Name: fn.Name}
	for _, block := range fn.Blocks {
		b := g.NewBlock(block.Name)
		for _, raw := range block.Instr {
			instr, err := decodeInstr(raw)
			if err != nil {
				return nil, fmt.Errorf("block %s: %w", block.Name, err)
			}
			g.Blocks[b].Instr = append(g.Blocks[b].Instr, instr)
		}
	}
	return g, nil
}

// rawInstr is the superset of fields any instruction may carry.
type rawInstr struct {
	Op string `json:"op"`

	Res      *int            `json:"res"`
	Name     string          `json:"name"`
	Expr     json.RawMessage `json:"expr"`
	Ty       string          `json:"ty"`
	Storage  json.RawMessage `json:"storage"`
	Value    json.RawMessage `json:"value"`
	Existing bool            `json:"existing"`

	Func    int               `json:"func"`
	Results []int             `json:"results"`
	Args    []json.RawMessage `json:"args"`

	Contract      int               `json:"contract"`
	ConstructorNo *int              `json:"constructorNo"`
	EncodedArgs   json.RawMessage   `json:"encodedArgs"`
	Address       json.RawMessage   `json:"address"`
	Payload       json.RawMessage   `json:"payload"`
	Success       *int              `json:"success"`
	Kind          string            `json:"kind"`
	Signature     string            `json:"signature"`
	EventNo       int               `json:"eventNo"`
	Data          json.RawMessage   `json:"data"`
	Topics        []json.RawMessage `json:"topics"`
	Code          uint64            `json:"code"`
	Values        []json.RawMessage `json:"values"`
	Recipient     json.RawMessage   `json:"recipient"`
	Encoded       json.RawMessage   `json:"encoded"`
	DataLen       json.RawMessage   `json:"dataLen"`

	Cond  json.RawMessage `json:"cond"`
	Block int             `json:"block"`
	True  int             `json:"true"`
	False int             `json:"false"`
}

// resOr returns the decoded result variable, or def when the bundle omits
// it. Pop instructions use -1 to discard the popped value.
func (in *rawInstr) resOr(def int) int {
	if in.Res == nil {
		return def
	}
	return *in.Res
}

func decodeInstr(raw json.RawMessage) (cfg.Instr, error) {
	var in rawInstr
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}

	switch in.Op {
	case "set":
		expr, err := decodeExpr(in.Expr)
		if err != nil {
			return nil, err
		}
		return &cfg.Set{Res: in.resOr(0), Expr: expr}, nil

	case "accountAccess":
		return &cfg.AccountAccess{Res: in.resOr(0), Name: in.Name}, nil

	case "call":
		var args []cfg.Expression
		for _, a := range in.Args {
			arg, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &cfg.Call{Res: in.Results, Func: in.Func, Args: args}, nil

	case "constructor":
		encoded, err := decodeExpr(in.EncodedArgs)
		if err != nil {
			return nil, err
		}
		address, err := decodeOptionalExpr(in.Address)
		if err != nil {
			return nil, err
		}
		constructorNo := -1
		if in.ConstructorNo != nil {
			constructorNo = *in.ConstructorNo
		}
		success := -1
		if in.Success != nil {
			success = *in.Success
		}
		return &cfg.Constructor{
			Res:           in.resOr(0),
			Contract:      in.Contract,
			ConstructorNo: constructorNo,
			Success:       success,
			EncodedArgs:   encoded,
			Address:       address,
		}, nil

	case "externalCall":
		address, err := decodeExpr(in.Address)
		if err != nil {
			return nil, err
		}
		payload, err := decodeExpr(in.Payload)
		if err != nil {
			return nil, err
		}
		success := -1
		if in.Success != nil {
			success = *in.Success
		}
		return &cfg.ExternalCall{
			Success: success,
			Address: address,
			Payload: payload,
			Kind:    callKind(in.Kind),
		}, nil

	case "loadStorage":
		ty, err := parseType(in.Ty)
		if err != nil {
			return nil, err
		}
		storage, err := decodeExpr(in.Storage)
		if err != nil {
			return nil, err
		}
		return &cfg.LoadStorage{Res: in.resOr(0), Ty: ty, Storage: storage}, nil

	case "setStorage":
		ty, err := parseType(in.Ty)
		if err != nil {
			return nil, err
		}
		storage, err := decodeExpr(in.Storage)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(in.Value)
		if err != nil {
			return nil, err
		}
		return &cfg.SetStorage{Ty: ty, Existing: in.Existing, Storage: storage, Value: value}, nil

	case "clearStorage":
		ty, err := parseType(in.Ty)
		if err != nil {
			return nil, err
		}
		storage, err := decodeExpr(in.Storage)
		if err != nil {
			return nil, err
		}
		return &cfg.ClearStorage{Ty: ty, Storage: storage}, nil

	case "pushStorage":
		ty, err := parseType(in.Ty)
		if err != nil {
			return nil, err
		}
		storage, err := decodeExpr(in.Storage)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(in.Value)
		if err != nil {
			return nil, err
		}
		return &cfg.PushStorage{Res: in.resOr(0), Ty: ty, Storage: storage, Value: value}, nil

	case "popStorage":
		ty, err := parseType(in.Ty)
		if err != nil {
			return nil, err
		}
		storage, err := decodeExpr(in.Storage)
		if err != nil {
			return nil, err
		}
		return &cfg.PopStorage{Res: in.resOr(-1), Ty: ty, Storage: storage}, nil

	case "emitEvent":
		data, err := decodeExpr(in.Data)
		if err != nil {
			return nil, err
		}
		var topics []cfg.Expression
		for _, t := range in.Topics {
			topic, err := decodeExpr(t)
			if err != nil {
				return nil, err
			}
			topics = append(topics, topic)
		}
		return &cfg.EmitEvent{EventNo: in.EventNo, Signature: in.Signature, Data: data, Topics: topics}, nil

	case "print":
		expr, err := decodeExpr(in.Expr)
		if err != nil {
			return nil, err
		}
		return &cfg.Print{Expr: expr}, nil

	case "returnCode":
		return &cfg.ReturnCode{Code: in.Code}, nil

	case "returnData":
		data, err := decodeExpr(in.Data)
		if err != nil {
			return nil, err
		}
		dataLen, err := decodeExpr(in.DataLen)
		if err != nil {
			return nil, err
		}
		return &cfg.ReturnData{Data: data, DataLen: dataLen}, nil

	case "assertFailure":
		encoded, err := decodeOptionalExpr(in.Encoded)
		if err != nil {
			return nil, err
		}
		return &cfg.AssertFailure{Encoded: encoded}, nil

	case "selfDestruct":
		recipient, err := decodeExpr(in.Recipient)
		if err != nil {
			return nil, err
		}
		return &cfg.SelfDestruct{Recipient: recipient}, nil

	case "valueTransfer":
		address, err := decodeExpr(in.Address)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(in.Value)
		if err != nil {
			return nil, err
		}
		success := -1
		if in.Success != nil {
			success = *in.Success
		}
		return &cfg.ValueTransfer{Success: success, Address: address, Value: value}, nil

	case "return":
		var values []cfg.Expression
		for _, v := range in.Values {
			value, err := decodeExpr(v)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return &cfg.Return{Values: values}, nil

	case "branch":
		return &cfg.Branch{Block: in.Block}, nil

	case "branchCond":
		cond, err := decodeExpr(in.Cond)
		if err != nil {
			return nil, err
		}
		return &cfg.BranchCond{Cond: cond, True: in.True, False: in.False}, nil

	case "unreachable":
		return &cfg.Unreachable{}, nil

	default:
		return nil, fmt.Errorf("unknown instruction %q", in.Op)
	}
}

func callKind(kind string) cfg.CallKind {
	switch kind {
	case "delegate":
		return cfg.CallDelegate
	case "static":
		return cfg.CallStatic
	default:
		return cfg.CallRegular
	}
}

type rawExpr struct {
	Kind  string          `json:"kind"`
	Ty    string          `json:"ty"`
	Value string          `json:"value"`
	VarNo int             `json:"varNo"`
	ArgNo int             `json:"argNo"`
	Name  string          `json:"name"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
	Op    string          `json:"op"`
}

func decodeOptionalExpr(raw json.RawMessage) (cfg.Expression, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return decodeExpr(raw)
}

func decodeExpr(raw json.RawMessage) (cfg.Expression, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing expression")
	}
	var e rawExpr
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}

	switch e.Kind {
	case "number":
		ty, err := parseType(e.Ty)
		if err != nil {
			return nil, err
		}
		value, ok := new(big.Int).SetString(e.Value, 0)
		if !ok {
			return nil, fmt.Errorf("bad number literal %q", e.Value)
		}
		return &cfg.NumberLiteral{Ty: ty, Value: value}, nil

	case "bool":
		return &cfg.BoolLiteral{Value: e.Value == "true"}, nil

	case "bytes":
		return &cfg.BytesLiteral{Ty: &sema.DynamicBytes{}, Value: []byte(e.Value)}, nil

	case "variable":
		ty, err := parseType(e.Ty)
		if err != nil {
			return nil, err
		}
		return &cfg.Variable{Ty: ty, VarNo: e.VarNo}, nil

	case "arg":
		ty, err := parseType(e.Ty)
		if err != nil {
			return nil, err
		}
		return &cfg.FunctionArg{Ty: ty, ArgNo: e.ArgNo}, nil

	case "builtin":
		proto, ok := sema.FindBuiltin(builtinKind(e.Name))
		if !ok {
			return nil, fmt.Errorf("unknown builtin %q", e.Name)
		}
		return &cfg.Builtin{Tys: proto.Returns, Kind: proto.Kind}, nil

	case "binary":
		left, err := decodeExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(e.Right)
		if err != nil {
			return nil, err
		}
		op, err := binaryOp(e.Op)
		if err != nil {
			return nil, err
		}
		return &cfg.Binary{Ty: left.Type(), Op: op, Left: left, Right: right}, nil

	default:
		return nil, fmt.Errorf("unknown expression %q", e.Kind)
	}
}

func builtinKind(name string) sema.Builtin {
	switch name {
	case "accounts":
		return sema.BuiltinAccounts
	case "getAddress":
		return sema.BuiltinGetAddress
	case "sender":
		return sema.BuiltinSender
	case "origin":
		return sema.BuiltinOrigin
	case "timestamp":
		return sema.BuiltinTimestamp
	case "blockNumber":
		return sema.BuiltinBlockNumber
	case "value":
		return sema.BuiltinValue
	default:
		return sema.BuiltinUnknown
	}
}

func binaryOp(op string) (cfg.BinaryOp, error) {
	switch op {
	case "add":
		return cfg.OpAdd, nil
	case "sub":
		return cfg.OpSub, nil
	case "mul":
		return cfg.OpMul, nil
	case "eq":
		return cfg.OpEq, nil
	case "lt":
		return cfg.OpLt, nil
	default:
		return "", fmt.Errorf("unknown binary operator %q", op)
	}
}

// parseType reads the compact type notation: uintN, bool, address, bytesN,
// bytes, string.
func parseType(s string) (sema.Type, error) {
	switch {
	case s == "bool":
		return &sema.Bool{}, nil
	case s == "address":
		return &sema.Address{}, nil
	case s == "bytes":
		return &sema.DynamicBytes{}, nil
	case s == "string":
		return &sema.String{}, nil
	case strings.HasPrefix(s, "uint"):
		bits, err := strconv.Atoi(s[4:])
		if err != nil || bits <= 0 || bits > 256 {
			return nil, fmt.Errorf("bad integer type %q", s)
		}
		return &sema.Uint{Bits: bits}, nil
	case strings.HasPrefix(s, "bytes"):
		n, err := strconv.Atoi(s[5:])
		if err != nil || n <= 0 || n > 32 {
			return nil, fmt.Errorf("bad bytes type %q", s)
		}
		return &sema.Bytes{Len: n}, nil
	default:
		return nil, fmt.Errorf("unknown type %q", s)
	}
}
