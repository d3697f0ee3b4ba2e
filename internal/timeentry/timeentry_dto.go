package timeentry

import (
	"time"

	entryerrors "go-timeclock/internal/timeentry/errors"
)

// ClockPayload is the raw mobile request body. Older client builds shipped
// several key spellings for the same fields; this struct accepts them all and
// normalizeClockPayload is the single place the legacy shapes are folded into
// the canonical requests. Nothing downstream branches on which shape arrived.
type ClockPayload struct {
	Lat      *float64 `json:"lat"`
	Latitude *float64 `json:"latitude"`

	Lng       *float64 `json:"lng"`
	Longitude *float64 `json:"longitude"`
	Lon       *float64 `json:"lon"`

	Accuracy *float64 `json:"accuracy"`
	Acc      *float64 `json:"acc"`

	JobID       string `json:"job_id"`
	JobIDLegacy string `json:"jobId"`

	EntryID       string `json:"entry_id"`
	EntryIDLegacy string `json:"entryId"`

	ClientEventID       string `json:"client_event_id"`
	ClientEventIDLegacy string `json:"clientEventId"`
	EventIDLegacy       string `json:"eventId"`

	DeviceID       *string `json:"device_id"`
	DeviceIDLegacy *string `json:"deviceId"`
}

type ClockInRequest struct {
	JobID         string
	Lat           float64
	Lng           float64
	Accuracy      *float64
	ClientEventID string
	DeviceID      *string
}

type ClockOutRequest struct {
	EntryID       string
	Lat           float64
	Lng           float64
	Accuracy      *float64
	ClientEventID string // optional on clock-out
	DeviceID      *string
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// NormalizeClockIn is the read boundary for clock-in payloads.
func NormalizeClockIn(p ClockPayload) (ClockInRequest, error) {
	lat := firstFloat(p.Lat, p.Latitude)
	lng := firstFloat(p.Lng, p.Longitude, p.Lon)
	if lat == nil || lng == nil {
		return ClockInRequest{}, entryerrors.ErrMissingCoordinates
	}

	return ClockInRequest{
		JobID:         firstString(p.JobID, p.JobIDLegacy),
		Lat:           *lat,
		Lng:           *lng,
		Accuracy:      firstFloat(p.Accuracy, p.Acc),
		ClientEventID: firstString(p.ClientEventID, p.ClientEventIDLegacy, p.EventIDLegacy),
		DeviceID:      firstStringPtr(p.DeviceID, p.DeviceIDLegacy),
	}, nil
}

// NormalizeClockOut is the read boundary for clock-out payloads.
func NormalizeClockOut(p ClockPayload) (ClockOutRequest, error) {
	lat := firstFloat(p.Lat, p.Latitude)
	lng := firstFloat(p.Lng, p.Longitude, p.Lon)
	if lat == nil || lng == nil {
		return ClockOutRequest{}, entryerrors.ErrMissingCoordinates
	}

	return ClockOutRequest{
		EntryID:       firstString(p.EntryID, p.EntryIDLegacy),
		Lat:           *lat,
		Lng:           *lng,
		Accuracy:      firstFloat(p.Accuracy, p.Acc),
		ClientEventID: firstString(p.ClientEventID, p.ClientEventIDLegacy, p.EventIDLegacy),
		DeviceID:      firstStringPtr(p.DeviceID, p.DeviceIDLegacy),
	}, nil
}

func firstStringPtr(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

type UpdateEntryRequest struct {
	ClockInAt  *string `json:"clock_in_at"`
	ClockOutAt *string `json:"clock_out_at"`
	Force      bool    `json:"force"`
}

type ClockInResponse struct {
	EntryID       string `json:"entry_id"`
	Status        string `json:"status"`
	ClockInAt     string `json:"clock_in_at"`
	GeofenceValid bool   `json:"geofence_valid"`
}

type ClockOutResponse struct {
	Ok         bool   `json:"ok"`
	EntryID    string `json:"entry_id"`
	Status     string `json:"status"`
	ClockOutAt string `json:"clock_out_at,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

type TimeEntryResponse struct {
	ID                    string   `json:"id"`
	CompanyID             string   `json:"company_id"`
	UserID                string   `json:"user_id"`
	JobID                 string   `json:"job_id"`
	Status                string   `json:"status"`
	ClockInAt             string   `json:"clock_in_at"`
	ClockOutAt            *string  `json:"clock_out_at,omitempty"`
	ClockInGeofenceValid  bool     `json:"clock_in_geofence_valid"`
	ClockOutGeofenceValid *bool    `json:"clock_out_geofence_valid,omitempty"`
	ExceptionTags         []string `json:"exception_tags"`
	Approved              bool     `json:"approved"`
	ApprovedBy            *string  `json:"approved_by,omitempty"`
	ApprovedAt            *string  `json:"approved_at,omitempty"`
	InvoiceID             *string  `json:"invoice_id,omitempty"`
	InvoicedAt            *string  `json:"invoiced_at,omitempty"`
}

func mapToResponse(e TimeEntry) TimeEntryResponse {
	resp := TimeEntryResponse{
		ID:                   e.ID.String(),
		CompanyID:            e.CompanyID.String(),
		UserID:               e.UserID.String(),
		JobID:                e.JobID.String(),
		Status:               e.Status,
		ClockInAt:            e.ClockInAt.Format(time.RFC3339),
		ClockInGeofenceValid: e.ClockInGeofenceValid,
		ExceptionTags:        e.ExceptionTags,
		Approved:             e.Approved,
	}
	if resp.ExceptionTags == nil {
		resp.ExceptionTags = []string{}
	}
	if e.ClockOutAt != nil {
		v := e.ClockOutAt.Format(time.RFC3339)
		resp.ClockOutAt = &v
	}
	resp.ClockOutGeofenceValid = e.ClockOutGeofenceValid
	if e.ApprovedBy != nil {
		v := e.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if e.ApprovedAt != nil {
		v := e.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if e.InvoiceID != nil {
		v := e.InvoiceID.String()
		resp.InvoiceID = &v
	}
	if e.InvoicedAt != nil {
		v := e.InvoicedAt.Format(time.RFC3339)
		resp.InvoicedAt = &v
	}
	return resp
}
