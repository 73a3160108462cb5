package sema

// The namespace is the output of semantic analysis: the global function
// table plus per-contract bookkeeping. The backend treats it as read-only,
// except that transformation passes mutate the CFGs it points at.

// Parameter is a resolved function parameter or return value.
type Parameter struct {
	Name string
	Type Type
}

// Function is one resolved function. Accounts is nil for functions on
// targets without an account model.
type Function struct {
	Name        string
	Constructor bool
	Params      []Parameter
	Returns     []Parameter
	Accounts    *AccountSpec
}

// Contract groups the functions of one contract. Functions holds indices
// into the namespace's global function table; AllFunctions maps a function
// index to the index of its CFG in the contract's CFG list, which is owned
// by the codegen layer.
type Contract struct {
	Name         string
	Functions    []int
	AllFunctions map[int]int
}

// Namespace is the semantic universe of one compilation.
type Namespace struct {
	Functions []*Function
	Contracts []*Contract

	// AddressLength is the byte width of an address on the selected target.
	AddressLength int
}

// FunctionByName finds a contract function by name, returning its index in
// the global function table.
func (ns *Namespace) FunctionByName(contract *Contract, name string) (int, bool) {
	for _, fnNo := range contract.Functions {
		if ns.Functions[fnNo].Name == name {
			return fnNo, true
		}
	}
	return 0, false
}

// Constructor returns the index of the contract's constructor, if any.
func (ns *Namespace) Constructor(contract *Contract) (int, bool) {
	for _, fnNo := range contract.Functions {
		if ns.Functions[fnNo].Constructor {
			return fnNo, true
		}
	}
	return 0, false
}
