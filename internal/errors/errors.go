package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrUnparseableDate = &AppError{Code: "PARSE_001", Message: "no date or time found in fragment"}
	ErrAmbiguousTime   = &AppError{Code: "PARSE_002", Message: "time is ambiguous without am/pm"}
	ErrPastDate        = &AppError{Code: "PARSE_003", Message: "date is in the past"}
	ErrAmbiguousDate   = &AppError{Code: "PARSE_004", Message: "date is ambiguous"}

	ErrMissingStartTime = &AppError{Code: "EXTRACT_001", Message: "no resolvable start time"}
	ErrEmptySentence    = &AppError{Code: "EXTRACT_002", Message: "empty sentence"}

	ErrDirectoryNotFound = &AppError{Code: "DIR_001", Message: "name directory not found"}
	ErrDirectoryInvalid  = &AppError{Code: "DIR_002", Message: "name directory malformed"}

	ErrPatternsNotFound = &AppError{Code: "PATTERN_001", Message: "pattern file not found"}
	ErrPatternsInvalid  = &AppError{Code: "PATTERN_002", Message: "pattern file malformed"}

	ErrEventNotFound   = &AppError{Code: "CAL_001", Message: "no matching event found"}
	ErrEventConflict   = &AppError{Code: "CAL_002", Message: "event conflicts with existing schedule"}
	ErrNotConnected    = &AppError{Code: "GATEWAY_001", Message: "google calendar not connected"}
	ErrGatewayRequest  = &AppError{Code: "GATEWAY_002", Message: "google calendar request failed"}
	ErrGatewayThrottle = &AppError{Code: "GATEWAY_003", Message: "google calendar rate limited"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
