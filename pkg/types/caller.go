package types

import (
	"fmt"
	"time"
)

// Caller is the resolved identity behind a request. The set of
// implementations is closed: Donor, HospitalStaff and Admin.
type Caller interface {
	CallerID() string
	CallerRole() Role
	sealed()
}

type Donor struct {
	ID             string
	Name           string
	Email          string
	BloodType      BloodType
	Location       *Point
	LastDonationAt *time.Time
}

type HospitalStaff struct {
	ID           string
	HospitalName string
	Location     *Point
}

type Admin struct {
	ID string
}

func (d Donor) CallerID() string         { return d.ID }
func (d Donor) CallerRole() Role         { return RoleDonor }
func (Donor) sealed()                    {}
func (h HospitalStaff) CallerID() string { return h.ID }
func (h HospitalStaff) CallerRole() Role { return RoleHospitalStaff }
func (HospitalStaff) sealed()            {}
func (a Admin) CallerID() string         { return a.ID }
func (a Admin) CallerRole() Role         { return RoleAdmin }
func (Admin) sealed()                    {}

// CallerFromUser builds the caller variant matching the user's role.
func CallerFromUser(u *User) (Caller, error) {
	switch u.Role {
	case RoleDonor:
		d := Donor{ID: u.ID, Name: u.Name, Email: u.Email, Location: u.Location(), LastDonationAt: u.LastDonationAt}
		if u.BloodType != nil {
			d.BloodType = *u.BloodType
		}
		return d, nil
	case RoleHospitalStaff:
		h := HospitalStaff{ID: u.ID, Location: u.Location()}
		if u.HospitalName != nil {
			h.HospitalName = *u.HospitalName
		}
		return h, nil
	case RoleAdmin:
		return Admin{ID: u.ID}, nil
	}
	return nil, fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
}
