package types

import (
	"errors"
	"time"
)

var ErrAlertNotFound = errors.New("alert not found")

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusFulfilled AlertStatus = "fulfilled"
	AlertStatusCancelled AlertStatus = "cancelled"
	AlertStatusExpired   AlertStatus = "expired"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusFulfilled, AlertStatusCancelled, AlertStatusExpired:
		return true
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// TTL is how long an alert of this urgency stays active before the
// expiry sweep closes it.
func (u UrgencyLevel) TTL() time.Duration {
	switch u {
	case UrgencyCritical:
		return 2 * time.Hour
	case UrgencyHigh:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type Alert struct {
	ID           string       `db:"id" json:"id"`
	HospitalID   string       `db:"hospital_id" json:"hospitalId"`
	BloodType    BloodType    `db:"blood_type" json:"bloodType"`
	UnitsNeeded  int          `db:"units_needed" json:"unitsNeeded"`
	UrgencyLevel UrgencyLevel `db:"urgency_level" json:"urgencyLevel"`
	Description  *string      `db:"description" json:"description,omitempty"`
	RadiusKm     float64      `db:"radius_km" json:"radiusKm"`
	Latitude     *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64     `db:"longitude" json:"longitude,omitempty"`
	Status       AlertStatus  `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	ExpiresAt    *time.Time   `db:"expires_at" json:"expiresAt,omitempty"`
}

// AlertView is an alert annotated with the raising hospital's name.
type AlertView struct {
	Alert
	HospitalName *string `db:"hospital_name" json:"hospitalName,omitempty"`
}

type CreateAlertInput struct {
	BloodType    BloodType    `json:"bloodType" form:"bloodType"`
	UnitsNeeded  int          `json:"unitsNeeded" form:"unitsNeeded"`
	UrgencyLevel UrgencyLevel `json:"urgencyLevel" form:"urgencyLevel"`
	Description  *string      `json:"description" form:"description"`
	RadiusKm     float64      `json:"radiusKm" form:"radiusKm"`
}

// AlertFilter scopes alert counts. Zero fields are ignored.
type AlertFilter struct {
	HospitalID string
	BloodType  BloodType
	Status     AlertStatus
}
