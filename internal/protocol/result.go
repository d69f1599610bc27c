package protocol

// Result statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusError   = "ERROR"
)

// Result is the structured outcome of a single world operation.
// SUCCESS means the described mutation (if any) committed; FAILURE means
// validation rejected the operation with no mutation; ERROR means an
// unexpected internal fault with no mutation.
type Result struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

func Success(message string, data map[string]any) Result {
	return Result{Status: StatusSuccess, Message: message, Data: data}
}

func Failure(code, message string) Result {
	if !IsKnownCode(code) {
		code = ErrInternal
	}
	return Result{Status: StatusFailure, Message: message, ErrorCode: code}
}

func Errorf(message string) Result {
	return Result{Status: StatusError, Message: message, ErrorCode: ErrInternal}
}

func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }
