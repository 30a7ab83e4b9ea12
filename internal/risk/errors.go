package risk

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode classifies a risk computation failure.
type ErrorCode string

const (
	CodeInvalidPrice     ErrorCode = "INVALID_PRICE"
	CodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	CodeMissingWeight    ErrorCode = "MISSING_WEIGHT"
	CodeNumerical        ErrorCode = "NUMERICAL"
	CodeEmptyTail        ErrorCode = "EMPTY_TAIL"
	CodeInvalidLevel     ErrorCode = "INVALID_LEVEL"
)

// Error is returned by every operation in this package. Match it with
// errors.Is against the Err* sentinels, which compare by Code only.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Details map[string]any
}

var (
	ErrInvalidPrice     = &Error{Code: CodeInvalidPrice}
	ErrInsufficientData = &Error{Code: CodeInsufficientData}
	ErrMissingWeight    = &Error{Code: CodeMissingWeight}
	ErrNumerical        = &Error{Code: CodeNumerical}
	ErrEmptyTail        = &Error{Code: CodeEmptyTail}
	ErrInvalidLevel     = &Error{Code: CodeInvalidLevel}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// With attaches a detail key/value and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

func invalidPrice(op, ticker string, date string, price float64) *Error {
	return newError(CodeInvalidPrice, op, "price %v is not a positive finite number", price).
		With("ticker", ticker).
		With("date", date)
}

func insufficientData(op string, required, provided int) *Error {
	return newError(CodeInsufficientData, op, "need at least %d observations, got %d", required, provided).
		With("required", required).
		With("provided", provided)
}

func missingWeight(op, ticker string) *Error {
	return newError(CodeMissingWeight, op, "no weight for instrument %q", ticker).
		With("ticker", ticker)
}

func invalidLevel(op string, level float64) *Error {
	return newError(CodeInvalidLevel, op, "confidence level %v must lie strictly between 0 and 1", level).
		With("level", level)
}
