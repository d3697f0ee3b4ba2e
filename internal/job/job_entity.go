package job

import (
	"github.com/google/uuid"

	"go-timeclock/internal/geofence"
)

// Job is owned by the company management system; this service only reads it.
type Job struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID `gorm:"column:company_id;type:uuid;not null;index" json:"company_id"`
	Name            string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Lat             float64   `gorm:"column:lat;not null" json:"lat"`
	Lng             float64   `gorm:"column:lng;not null" json:"lng"`
	GeofenceRadiusM *float64  `gorm:"column:geofence_radius_m" json:"geofence_radius_m,omitempty"`
	HourlyRate      *float64  `gorm:"column:hourly_rate" json:"hourly_rate,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// Fence returns the job's geofence in evaluator terms.
func (j Job) Fence() geofence.Fence {
	return geofence.Fence{
		Center:       geofence.Point{Lat: j.Lat, Lng: j.Lng},
		RadiusMeters: j.GeofenceRadiusM,
	}
}
