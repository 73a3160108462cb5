package diag

import "fmt"

// CompilerError is a fatal compile-time condition. The backend raises these
// through panics: nothing the compiler genuinely cannot do is recoverable
// mid-emission, and the driver converts the panic back into an error at the
// compilation boundary (see Recover).
type CompilerError struct {
	Code    string
	Target  string // target name for capability errors, empty otherwise
	Message string
}

func (e *CompilerError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Target, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ICE aborts compilation with an internal compiler error. Used for
// conditions a prior phase is responsible for ruling out, such as account
// names missing from a correctly-built spec.
func ICE(format string, args ...any) {
	panic(&CompilerError{
		Code:    ErrorInternal,
		Message: fmt.Sprintf(format, args...),
	})
}

// Unsupported aborts compilation because the target lacks a capability.
// Emitting code that implies a capability the execution environment does
// not have would be a miscompilation, so this is fatal at build time.
func Unsupported(target, capability string) {
	panic(&CompilerError{
		Code:    ErrorUnsupported,
		Target:  target,
		Message: capability + " is not implemented for this target",
	})
}

// UnsupportedHash aborts compilation for a hash algorithm the target's host
// environment cannot compute.
func UnsupportedHash(target, algo string) {
	panic(&CompilerError{
		Code:    ErrorUnsupportedHash,
		Target:  target,
		Message: "hash algorithm " + algo + " is not available on this target",
	})
}

// Recover converts a CompilerError panic into an ordinary error. Deferred
// at the driver's compilation boundary; unrelated panics are re-raised.
func Recover(err *error) {
	switch r := recover().(type) {
	case nil:
	case *CompilerError:
		*err = r
	default:
		panic(r)
	}
}
