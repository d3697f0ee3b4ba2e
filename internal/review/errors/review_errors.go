package reviewerrors

import (
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
		"a bulk approval may cover at most 500 entries",
		http.StatusBadRequest,
	)
	ErrInvalidEntryID = apperror.New(
		apperror.CodeInvalidInput,
		"entry_ids contains an invalid id",
		http.StatusBadRequest,
	)
)
