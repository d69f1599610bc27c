package protocol

const (
	// Argument/shape validation.
	ErrValidation = "E_VALIDATION"

	// Identity lacks access to the target calendar or resource.
	ErrPermissionDenied = "E_PERMISSION_DENIED"

	// Referenced entity absent.
	ErrNotFound = "E_NOT_FOUND"

	// Overlapping event, double-booked slot, duplicate draft entry.
	ErrConflict = "E_CONFLICT"

	// Movement without a valid path or with an unreachable segment.
	ErrInvalidPath = "E_INVALID_PATH"

	// Operation after a terminal state (e.g. second draft submit).
	ErrAlreadyFinalized = "E_ALREADY_FINALIZED"

	// Unexpected internal fault; fatal to the current run.
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrValidation:       {},
	ErrPermissionDenied: {},
	ErrNotFound:         {},
	ErrConflict:         {},
	ErrInvalidPath:      {},
	ErrAlreadyFinalized: {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
