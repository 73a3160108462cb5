package diag

// Error codes for the basalt backend.
// These codes are used in error messages and documentation to provide
// consistent error identification across the toolchain.
//
// Error code ranges:
// B0001-B0099: Internal compiler errors
// B0100-B0199: Capability errors (target cannot express the operation)
// B0200-B0299: Driver/input errors

const (
	// B0001: Internal invariant violated
	ErrorInternal = "B0001"

	// B0100: Target does not implement the requested capability
	ErrorUnsupported = "B0100"

	// B0101: Target does not support the requested hash algorithm
	ErrorUnsupportedHash = "B0101"

	// B0200: Malformed input bundle
	ErrorBadInput = "B0200"

	// B0201: Unknown target name
	ErrorUnknownTarget = "B0201"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorInternal:
		return "An internal compiler invariant was violated"
	case ErrorUnsupported:
		return "The selected target does not implement this capability"
	case ErrorUnsupportedHash:
		return "The selected target does not support this hash algorithm"
	case ErrorBadInput:
		return "The input bundle is malformed"
	case ErrorUnknownTarget:
		return "The requested target is not supported"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "B0001" && code < "B0100":
		return "Internal"
	case code >= "B0100" && code < "B0200":
		return "Capability"
	case code >= "B0200" && code < "B0300":
		return "Driver"
	default:
		return "Unknown"
	}
}
