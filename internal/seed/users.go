// Package seed loads a fixed set of demo accounts around lower Manhattan.
package seed

import (
	"context"
	"fmt"
	"time"

	"bloodalert/internal/utils"
	"bloodalert/pkg/types"
)

type UserUpserter interface {
	Upsert(ctx context.Context, user *types.User) error
}

type userSeed struct {
	ID        string
	Email     string
	Name      string
	Role      types.Role
	BloodType types.BloodType
	City      string
	Lat, Lon  float64
	Hospital  string
}

// Demo accounts. The hospital sits at 40.7128,-74.0060; donor A is an O+
// donor a few km away, donor B an A+ donor nearby and donor C an O+ donor
// roughly 500 km north.
var demoUsers = []userSeed{
	{ID: "hosp_mercy_general_000001", Email: "staff+seed@mercy.example", Name: "Mercy Dispatch", Role: types.RoleHospitalStaff,
		City: "New York", Lat: 40.7128, Lon: -74.0060, Hospital: "Mercy General"},
	{ID: "donor_ava_williams_000001", Email: "ava.williams+seed@example.com", Name: "Ava Williams", Role: types.RoleDonor,
		BloodType: types.BloodTypeOPos, City: "New York", Lat: 40.7306, Lon: -73.9866},
	{ID: "donor_liam_johnson_000002", Email: "liam.johnson+seed@example.com", Name: "Liam Johnson", Role: types.RoleDonor,
		BloodType: types.BloodTypeAPos, City: "New York", Lat: 40.7580, Lon: -73.9855},
	{ID: "donor_noah_brown_00000003", Email: "noah.brown+seed@example.com", Name: "Noah Brown", Role: types.RoleDonor,
		BloodType: types.BloodTypeOPos, City: "Plattsburgh", Lat: 45.2, Lon: -74.0060},
	{ID: "admin_seed_00000000000001", Email: "admin+seed@example.com", Name: "Seed Admin", Role: types.RoleAdmin},
}

func (s userSeed) user(now time.Time) *types.User {
	u := &types.User{
		ID:        s.ID,
		Email:     s.Email,
		Name:      s.Name,
		Role:      s.Role,
		City:      utils.TrimmedPtr(&s.City),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.Role != types.RoleAdmin {
		u.Latitude = utils.Float64Ptr(s.Lat)
		u.Longitude = utils.Float64Ptr(s.Lon)
	}
	if s.BloodType != "" {
		bt := s.BloodType
		u.BloodType = &bt
	}
	if s.Hospital != "" {
		u.HospitalName = utils.StringPtr(s.Hospital)
	}
	return u
}

// SeedUsers upserts the demo accounts and returns how many were written.
// Running it again refreshes the same rows.
func SeedUsers(ctx context.Context, users UserUpserter) (int, error) {
	now := time.Now()
	for _, s := range demoUsers {
		if err := users.Upsert(ctx, s.user(now)); err != nil {
			return 0, fmt.Errorf("failed to seed user %s: %w", s.ID, err)
		}
	}
	return len(demoUsers), nil
}
