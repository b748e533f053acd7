package domain

import "errors"

type ErrorCode string

const (
	CodeInvalidItem     ErrorCode = "INVALID_ITEM"
	CodeEmptyBatch      ErrorCode = "EMPTY_BATCH"
	CodeCreateFailed    ErrorCode = "CREATE_FAILED"
	CodeJoinFailed      ErrorCode = "JOIN_FAILED"
	CodeSaveFailed      ErrorCode = "SAVE_FAILED"
	CodeLoadFailed      ErrorCode = "LOAD_FAILED"
	CodeCompareFailed   ErrorCode = "COMPARE_FAILED"
	CodeMergeFailed     ErrorCode = "MERGE_FAILED"
	CodeSubmitFailed    ErrorCode = "SUBMIT_FAILED"
	CodeTargetInactive  ErrorCode = "TARGET_INACTIVE"
	CodeSessionInactive ErrorCode = "SESSION_INACTIVE"
	CodeSessionFinal    ErrorCode = "SESSION_FINAL"
	CodeNoItems         ErrorCode = "NO_ITEMS"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeDecodeError     ErrorCode = "DECODE_ERROR"
)

// ErrorKind groups codes by how the caller recovers from them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindTransport     ErrorKind = "transport"
	KindStateConflict ErrorKind = "state_conflict"
)

// Kind classifies the code. Unknown codes are treated as transport failures
// so they always reach the user with a retry affordance.
func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case CodeInvalidItem, CodeEmptyBatch:
		return KindValidation
	case CodeTargetInactive, CodeSessionInactive, CodeSessionFinal, CodeNoItems:
		return KindStateConflict
	default:
		return KindTransport
	}
}

type SessionError struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return string(e.Code) + ": " + e.Op + ": " + msg
	}
	return string(e.Code) + ": " + msg
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Fail tags err with code for operation op. An error that already carries a
// SessionError keeps its original code.
func Fail(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SessionError
	if errors.As(err, &se) {
		return err
	}
	return &SessionError{Code: code, Op: op, Err: err}
}

// Conflict builds a state-conflict guard error.
func Conflict(code ErrorCode, op, message string) error {
	return &SessionError{Code: code, Op: op, Message: message}
}

// CodeOf returns the code carried by err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
