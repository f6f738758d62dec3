package ledger

import (
	"errors"
	"fmt"
)

// Error codes. Every rejection the ledger reports carries one of these.
const (
	CodeInvalidPeriod            = "INVALID_PERIOD"
	CodeDuplicateGeneration      = "DUPLICATE_GENERATION"
	CodeFeeNotFound              = "FEE_NOT_FOUND"
	CodeOverpaymentRejected      = "OVERPAYMENT_REJECTED"
	CodeAlreadyPaid              = "ALREADY_PAID"
	CodeAmbiguousMatch           = "AMBIGUOUS_MATCH"
	CodeFeeMismatch              = "FEE_MISMATCH"
	CodeAlreadyMatched           = "ALREADY_MATCHED"
	CodeStorageFailure           = "STORAGE_FAILURE"
	CodeInvalidAmount            = "INVALID_AMOUNT"
	CodeInvalidInput             = "INVALID_INPUT"
	CodePropertyNotFound         = "PROPERTY_NOT_FOUND"
	CodeBillingPeriodNotFound    = "BILLING_PERIOD_NOT_FOUND"
	CodeUnmatchedPaymentNotFound = "UNMATCHED_PAYMENT_NOT_FOUND"
	CodeInvalidStatement         = "INVALID_STATEMENT"
	CodeStatementImportNotFound  = "STATEMENT_IMPORT_NOT_FOUND"
)

// Error is a typed ledger failure. Two errors are equal under errors.Is when
// their codes match, so callers test against the sentinels below. AlreadyPaid
// is the zero-remainder case of OverpaymentRejected and matches both.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == CodeAlreadyPaid && t.Code == CodeOverpaymentRejected {
		return true
	}
	return t.Code == e.Code
}

var (
	ErrInvalidPeriod            = &Error{Code: CodeInvalidPeriod, Message: "invalid billing period"}
	ErrDuplicateGeneration      = &Error{Code: CodeDuplicateGeneration, Message: "fees already generated for billing period"}
	ErrFeeNotFound              = &Error{Code: CodeFeeNotFound, Message: "fee not found"}
	ErrOverpaymentRejected      = &Error{Code: CodeOverpaymentRejected, Message: "payment exceeds remaining balance"}
	ErrAlreadyPaid              = &Error{Code: CodeAlreadyPaid, Message: "fee is already paid"}
	ErrAmbiguousMatch           = &Error{Code: CodeAmbiguousMatch, Message: "a property must be chosen to confirm a match"}
	ErrFeeMismatch              = &Error{Code: CodeFeeMismatch, Message: "fee does not belong to property"}
	ErrAlreadyMatched           = &Error{Code: CodeAlreadyMatched, Message: "payment is already matched"}
	ErrStorageFailure           = &Error{Code: CodeStorageFailure, Message: "storage failure"}
	ErrInvalidAmount            = &Error{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrInvalidInput             = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrPropertyNotFound         = &Error{Code: CodePropertyNotFound, Message: "property not found"}
	ErrBillingPeriodNotFound    = &Error{Code: CodeBillingPeriodNotFound, Message: "billing period not found"}
	ErrUnmatchedPaymentNotFound = &Error{Code: CodeUnmatchedPaymentNotFound, Message: "unmatched payment not found"}
	ErrInvalidStatement         = &Error{Code: CodeInvalidStatement, Message: "invalid bank statement"}
	ErrStatementImportNotFound  = &Error{Code: CodeStatementImportNotFound, Message: "statement import not found"}
)

// Errorf derives an error of the same kind as base with a specific message.
func Errorf(base *Error, format string, args ...any) *Error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// StorageFailure wraps an infrastructure error. Ledger errors pass through untouched.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	return &Error{Code: CodeStorageFailure, Message: op + " failed", Err: err}
}

// CodeOf returns the ledger code of err, or CodeStorageFailure for foreign errors.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return CodeStorageFailure
}
