package errors

import (
	"fmt"
	"os"
)

// Standard error codes
const (
	ErrInvalidRequest      = 400
	ErrUnauthorized        = 401
	ErrForbidden           = 403
	ErrNotFound            = 404
	ErrConflict            = 409
	ErrInternalServerError = 500
	ErrServiceUnavailable  = 503

	// Protocol configuration errors (1000-1009)
	ErrPoolCreationNotAllowed = 1000
	ErrDepositNotAllowed      = 1001
	ErrWithdrawNotAllowed     = 1002
	ErrPlaysNotAllowed        = 1003
	ErrConfigOutOfBounds      = 1004

	// Bet/wager validation errors (1010-1019)
	ErrInvalidBetShape   = 1010
	ErrInvalidBetWeights = 1011
	ErrWagerTooLow       = 1012
	ErrHouseEdgeTooHigh  = 1013
	ErrMaxPayoutExceeded = 1014
	ErrCreatorFeeTooHigh = 1015
	ErrSeedTooLong       = 1016
	ErrMetadataTooLong   = 1017

	// Authorization errors (1020-1029)
	ErrOracleUnauthorized = 1020
	ErrOwnerUnauthorized  = 1021
	ErrNotWhitelisted     = 1022

	// Game state errors (1030-1039)
	ErrResultNotRequested = 1030
	ErrGameInProgress     = 1031
	ErrNotReadyToClaim    = 1032
	ErrGameNotExpired     = 1033
	ErrSeedHashMismatch   = 1034

	// Arithmetic errors (1040-1049)
	ErrMathOverflow = 1040

	// Record/custody errors (1050-1059)
	ErrPoolNotFound      = 1050
	ErrPlayerNotFound    = 1051
	ErrGameNotFound      = 1052
	ErrInsufficientFunds = 1053
	ErrPoolExists        = 1054
	ErrStoreError        = 1055
)

// Kind groups error codes into the settlement error taxonomy.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindArithmetic    Kind = "arithmetic"
	KindInternal      Kind = "internal"
)

// AppError represents a custom application error
type AppError struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	DebugMessage string `json:"debug_message,omitempty"`
	Err          error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.DebugMessage != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.DebugMessage)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy group for the error code.
func (e *AppError) Kind() Kind {
	return KindOf(e.Code)
}

// KindOf maps an error code to its taxonomy group.
func KindOf(code int) Kind {
	switch {
	case code >= 1000 && code <= 1009:
		return KindConfiguration
	case code >= 1010 && code <= 1019, code == ErrInvalidRequest:
		return KindValidation
	case code >= 1020 && code <= 1029, code == ErrUnauthorized, code == ErrForbidden:
		return KindAuthorization
	case code >= 1030 && code <= 1039:
		return KindState
	case code >= 1040 && code <= 1049:
		return KindArithmetic
	default:
		return KindInternal
	}
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDebug creates a new AppError with a debug message
func NewWithDebug(code int, message string, debugMessage string) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		DebugMessage: debugMessage,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Response returns a map suitable for JSON response
func (e *AppError) Response() map[string]interface{} {
	response := map[string]interface{}{
		"code":    e.Code,
		"kind":    e.Kind(),
		"message": e.Message,
	}

	// Include debug message in development environment
	env := os.Getenv("APP_ENV")
	if (env == "dev" || env == "development") && e.DebugMessage != "" {
		response["debug_message"] = e.DebugMessage
	}

	return response
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode extracts error code from an error
func GetCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternalServerError
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code int) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// HTTPStatusFromCode maps error codes to HTTP status codes
func HTTPStatusFromCode(code int) int {
	switch code {
	case ErrInvalidRequest:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrForbidden:
		return 403
	case ErrNotFound:
		return 404
	case ErrConflict:
		return 409
	case ErrServiceUnavailable:
		return 503
	case ErrPoolNotFound, ErrPlayerNotFound, ErrGameNotFound:
		return 404
	case ErrInsufficientFunds:
		return 400
	case ErrPoolExists:
		return 409
	}
	switch KindOf(code) {
	case KindConfiguration, KindAuthorization:
		return 403
	case KindValidation, KindArithmetic:
		return 400
	case KindState:
		return 409
	default:
		return 500
	}
}
