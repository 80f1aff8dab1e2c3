// Package apperr defines the stable machine-readable error taxonomy exposed
// at the HTTP boundary. Every request-level failure carries a `code` string
// plus a short/long human message pair.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes.
const (
	CodePaginationLimit     = "#paginationLimitError"
	CodePaginationStartWith = "#paginationStartWithError"
	CodeConfiguration       = "#configurationError"
	CodeUpstreamOnChain     = "#upstreamOnChainError"
	CodeUpstreamOffChain    = "#upstreamOffChainError"
	CodeNotFound            = "#notFound"
	CodeAddressChecksum     = "#addressChecksumError"
	CodeDataInvalid         = "#dataInvalid"
	CodeMissingVersion      = "#missingDataFormatVersion"
)

// Error is a coded, HTTP-mappable error.
type Error struct {
	Code   string
	Short  string
	Long   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Short, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Short)
}

func (e *Error) Unwrap() error { return e.Err }

// As extracts a coded error from err's chain.
func As(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// PaginationLimit reports an unusable limit query parameter.
func PaginationLimit(long string) *Error {
	return &Error{
		Code:   CodePaginationLimit,
		Short:  "Limit validation failed",
		Long:   long,
		Status: http.StatusUnprocessableEntity,
	}
}

// PaginationStartWith reports a cursor that does not exist in the collection.
func PaginationStartWith(long string) *Error {
	return &Error{
		Code:   CodePaginationStartWith,
		Short:  "Cannot find startWith in the collection",
		Long:   long,
		Status: http.StatusNotFound,
	}
}

// Configuration reports an unrecoverable configuration problem, such as an
// unresolvable schema model.
func Configuration(long string, cause error) *Error {
	return &Error{
		Code:   CodeConfiguration,
		Short:  "Service misconfigured",
		Long:   long,
		Status: http.StatusInternalServerError,
		Err:    cause,
	}
}

// NotFound reports a record that is absent from the directory.
func NotFound(long string) *Error {
	return &Error{
		Code:   CodeNotFound,
		Short:  "Record not found",
		Long:   long,
		Status: http.StatusNotFound,
	}
}

// AddressChecksum reports a record address that fails the ledger checksum.
func AddressChecksum(long string) *Error {
	return &Error{
		Code:   CodeAddressChecksum,
		Short:  "Invalid record address",
		Long:   long,
		Status: http.StatusUnprocessableEntity,
	}
}

// UpstreamOnChain reports an unreachable ledger dependency.
func UpstreamOnChain(long string, cause error) *Error {
	return &Error{
		Code:   CodeUpstreamOnChain,
		Short:  "Unable to reach the ledger",
		Long:   long,
		Status: http.StatusBadGateway,
		Err:    cause,
	}
}

// UpstreamOffChain reports an unreachable off-chain storage dependency.
func UpstreamOffChain(long string, cause error) *Error {
	return &Error{
		Code:   CodeUpstreamOffChain,
		Short:  "Unable to reach off-chain storage",
		Long:   long,
		Status: http.StatusBadGateway,
		Err:    cause,
	}
}

// DataInvalid reports a record whose resolved data fails schema validation.
func DataInvalid(long string, cause error) *Error {
	return &Error{
		Code:   CodeDataInvalid,
		Short:  "Upstream data validation failed",
		Long:   long,
		Status: http.StatusUnprocessableEntity,
		Err:    cause,
	}
}
