package core

// Error codes for domain errors surfaced to clients.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeStoreFailure = "store_failure"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeKicked       = "session_replaced"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
