package invoiceerrors

import (
	"fmt"
	"net/http"

	"go-timeclock/internal/shared/apperror"
)

var (
	ErrNoEntryIDs = apperror.New(
		apperror.CodeInvalidInput,
		"entry_ids is required",
		http.StatusBadRequest,
	)
	ErrTooManyEntryIDs = apperror.New(
		apperror.CodeInvalidInput,
		"an invoice may cover at most 100 entries",
		http.StatusBadRequest,
	)
	ErrInvalidEntryID = apperror.New(
		apperror.CodeInvalidInput,
		"entry_ids contains an invalid id",
		http.StatusBadRequest,
	)
	ErrDuplicateEntryID = apperror.New(
		apperror.CodeInvalidInput,
		"entry_ids contains a duplicate id",
		http.StatusBadRequest,
	)
	ErrInvoiceNotFound = apperror.New(
		apperror.CodeNotFound,
		"invoice not found",
		http.StatusNotFound,
	)
)

// RateMismatch rejects a batch whose client-supplied rate disagrees with the
// rate on one of the billed jobs.
func RateMismatch(jobID string, jobRate, requestedRate float64) *apperror.AppError {
	return &apperror.AppError{
		Code:       apperror.CodeFailedPrecondition,
		Message:    fmt.Sprintf("job %s bills at %.2f, not the requested %.2f", jobID, jobRate, requestedRate),
		HTTPStatus: http.StatusConflict,
	}
}

// EntryNotBillable carries the offending entry id so the caller can fix the
// batch instead of guessing.
func EntryNotBillable(entryID, reason string) *apperror.AppError {
	return &apperror.AppError{
		Code:       apperror.CodeFailedPrecondition,
		Message:    "entry " + entryID + " cannot be invoiced: " + reason,
		HTTPStatus: http.StatusConflict,
	}
}
