package sema

import "basalt/internal/diag"

// Reserved account names. Neither resolves to a position in the caller's
// own account list: the data account is the address already supplied to a
// call, and the system account is the zero address.
const (
	DataAccount   = "dataAccount"
	SystemAccount = "systemProgram"
)

// Account carries the signer/writable flags recorded for one required
// account during semantic analysis.
type Account struct {
	IsSigner bool
	IsWriter bool
}

// AccountSpec is the insertion-ordered set of accounts a function requires.
// The insertion order becomes the positional layout of the account list
// passed to the function, so it is a correctness invariant.
type AccountSpec struct {
	names   []string
	entries map[string]Account
}

func NewAccountSpec() *AccountSpec {
	return &AccountSpec{entries: make(map[string]Account)}
}

// Add records an account, keeping insertion order. Adding an existing name
// overwrites its flags without changing its position.
func (s *AccountSpec) Add(name string, account Account) {
	if _, ok := s.entries[name]; !ok {
		s.names = append(s.names, name)
	}
	s.entries[name] = account
}

func (s *AccountSpec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the account names in declaration order. The returned slice
// is owned by the spec and must not be mutated.
func (s *AccountSpec) Names() []string {
	if s == nil {
		return nil
	}
	return s.names
}

func (s *AccountSpec) Get(name string) (Account, bool) {
	if s == nil {
		return Account{}, false
	}
	account, ok := s.entries[name]
	return account, ok
}

func (s *AccountSpec) IndexOf(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for i, n := range s.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// MustIndexOf resolves a name to its position. The analysis phase guarantees
// every referenced account exists, so a miss is an internal compiler error.
func (s *AccountSpec) MustIndexOf(name string) int {
	index, ok := s.IndexOf(name)
	if !ok {
		diag.ICE("account %q is not present in the function's account spec", name)
	}
	return index
}
