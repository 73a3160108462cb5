package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats compiler errors for terminal output.
type Reporter struct {
	// Path of the input being compiled, shown in the error header.
	Path string
}

func NewReporter(path string) *Reporter {
	return &Reporter{Path: path}
}

// FormatError renders one error in the toolchain's standard shape:
//
//	error[B0100]: storage_push is not implemented for this target
//	  ┌─ contract.json (stylus)
//	  = note: The selected target does not implement this capability
func (r *Reporter) FormatError(err error) string {
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	ce, ok := err.(*CompilerError)
	if !ok {
		return fmt.Sprintf("%s: %s\n", red("error"), err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s: %s\n", red("error"), bold("["+ce.Code+"]"), ce.Message)

	origin := r.Path
	if ce.Target != "" {
		origin = fmt.Sprintf("%s (%s)", origin, ce.Target)
	}
	fmt.Fprintf(&b, "  ┌─ %s\n", origin)
	fmt.Fprintf(&b, "  = note: %s\n", GetErrorDescription(ce.Code))

	return b.String()
}
