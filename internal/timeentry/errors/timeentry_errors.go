package entryerrors

import (
	"net/http"

	"go-timeclock/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid user id",
		http.StatusBadRequest,
	)
	ErrInvalidJobID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid job id",
		http.StatusBadRequest,
	)
	ErrInvalidEntryID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid entry id",
		http.StatusBadRequest,
	)
	ErrMissingCoordinates = apperror.New(
		apperror.CodeInvalidInput,
		"lat and lng are required",
		http.StatusBadRequest,
	)
	ErrJobNotFound = apperror.New(
		apperror.CodeNotFound,
		"job not found",
		http.StatusNotFound,
	)
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"time entry not found",
		http.StatusNotFound,
	)
	ErrNotAssigned = apperror.New(
		apperror.CodeForbidden,
		"you are not assigned to this job",
		http.StatusForbidden,
	)
	ErrAssignmentWindowInactive = apperror.New(
		apperror.CodeFailedPrecondition,
		"your assignment to this job is not active today",
		http.StatusConflict,
	)
	ErrAlreadyClockedIn = apperror.New(
		apperror.CodeFailedPrecondition,
		"already clocked in, clock out of the open entry first",
		http.StatusConflict,
	)
	ErrNotEntryOwner = apperror.New(
		apperror.CodeForbidden,
		"time entry belongs to another worker",
		http.StatusForbidden,
	)
	ErrEntryLocked = apperror.New(
		apperror.CodeFailedPrecondition,
		"entry is approved or invoiced and can no longer be edited",
		http.StatusConflict,
	)
	ErrForceRequiresAdmin = apperror.New(
		apperror.CodeForbidden,
		"force edit requires an admin role",
		http.StatusForbidden,
	)
)
