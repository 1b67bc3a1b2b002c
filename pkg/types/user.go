package types

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type Role string

const (
	RoleDonor         Role = "donor"
	RoleHospitalStaff Role = "hospital_staff"
	RoleAdmin         Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleHospitalStaff, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            string     `db:"name" json:"name"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	Role            Role       `db:"role" json:"role"`
	BloodType       *BloodType `db:"blood_type" json:"bloodType,omitempty"`
	City            *string    `db:"city" json:"city,omitempty"`
	Latitude        *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64   `db:"longitude" json:"longitude,omitempty"`
	HospitalName    *string    `db:"hospital_name" json:"hospitalName,omitempty"`
	HospitalAddress *string    `db:"hospital_address" json:"hospitalAddress,omitempty"`
	LastDonationAt  *time.Time `db:"last_donation_at" json:"lastDonationAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Location returns the user's registered point, or nil when either
// coordinate is missing.
func (u *User) Location() *Point {
	if u.Latitude == nil || u.Longitude == nil {
		return nil
	}
	return &Point{Lat: *u.Latitude, Lon: *u.Longitude}
}

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
