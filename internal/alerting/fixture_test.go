package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bloodalert/internal/notify"
	"bloodalert/internal/store/storetest"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
)

// clock advances a second on every read so creation order is strict.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu   sync.Mutex
	fail bool
	to   []string
}

func (s *recordingSink) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("provider unavailable")
	}
	s.to = append(s.to, msg.To)
	return nil
}

type failingDonors struct {
	*storetest.Users
}

func (failingDonors) Donors(context.Context) ([]*types.User, error) {
	return nil, errors.New("donor query timed out")
}

type fixture struct {
	mem    *storetest.Memory
	clock  *clock
	sink   *recordingSink
	hook   *test.Hook
	coord  *Coordinator
	ledger *Ledger
	stats  *StatsAggregator

	hospital types.HospitalStaff
	donorA   types.Donor
	donorB   types.Donor
	donorC   types.Donor
	admin    types.Admin
}

func btPtr(bt types.BloodType) *types.BloodType { return &bt }

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		mem:   storetest.New(),
		clock: &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		sink:  &recordingSink{},
	}

	logger, hook := test.NewNullLogger()
	f.hook = hook

	users := []*types.User{
		{ID: "hospital-h", Email: "staff@mercy.example", Name: "Mercy Staff", Role: types.RoleHospitalStaff,
			HospitalName: utils.StringPtr("Mercy General"),
			Latitude:     utils.Float64Ptr(40.7128), Longitude: utils.Float64Ptr(-74.0060)},
		{ID: "hospital-k", Email: "staff@kings.example", Name: "Kings Staff", Role: types.RoleHospitalStaff,
			HospitalName: utils.StringPtr("Kings County"),
			Latitude:     utils.Float64Ptr(40.6551), Longitude: utils.Float64Ptr(-73.9442)},
		{ID: "donor-a", Email: "a@example.com", Name: "Donor A", Phone: utils.StringPtr("555-0101"), Role: types.RoleDonor,
			BloodType: btPtr(types.BloodTypeOPos),
			Latitude:  utils.Float64Ptr(40.7306), Longitude: utils.Float64Ptr(-73.9866)},
		{ID: "donor-b", Email: "b@example.com", Name: "Donor B", Role: types.RoleDonor,
			BloodType: btPtr(types.BloodTypeAPos),
			Latitude:  utils.Float64Ptr(40.7580), Longitude: utils.Float64Ptr(-73.9855)},
		{ID: "donor-c", Email: "c@example.com", Name: "Donor C", Role: types.RoleDonor,
			BloodType: btPtr(types.BloodTypeOPos),
			Latitude:  utils.Float64Ptr(45.2), Longitude: utils.Float64Ptr(-74.0060)},
		{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: types.RoleAdmin},
	}
	callers := make(map[string]types.Caller, len(users))
	for _, u := range users {
		f.mem.AddUser(u)
		c, err := types.CallerFromUser(u)
		if err != nil {
			t.Fatal(err)
		}
		callers[u.ID] = c
	}
	f.hospital = callers["hospital-h"].(types.HospitalStaff)
	f.donorA = callers["donor-a"].(types.Donor)
	f.donorB = callers["donor-b"].(types.Donor)
	f.donorC = callers["donor-c"].(types.Donor)
	f.admin = callers["admin-1"].(types.Admin)

	o := Options{Now: f.clock.Now}
	for _, fn := range opts {
		fn(&o)
	}

	dispatcher := notify.NewDispatcher(f.sink, f.mem.Notifications(), logger)
	f.coord = NewCoordinator(f.mem.Alerts(), f.mem.Users(), f.mem.Notifications(), dispatcher, logger, o)
	f.ledger = NewLedger(f.mem.Alerts(), f.mem.Responses(), logger, f.clock.Now)
	f.stats = NewStatsAggregator(f.mem.Alerts(), f.mem.Responses())

	return f
}

func (f *fixture) otherHospital() types.HospitalStaff {
	return types.HospitalStaff{ID: "hospital-k", HospitalName: "Kings County", Location: &types.Point{Lat: 40.6551, Lon: -73.9442}}
}

func oPosAlert() types.CreateAlertInput {
	return types.CreateAlertInput{
		BloodType:    types.BloodTypeOPos,
		UnitsNeeded:  3,
		UrgencyLevel: types.UrgencyHigh,
		RadiusKm:     30,
	}
}

func (f *fixture) mustCreate(t *testing.T, caller types.Caller, in types.CreateAlertInput) *types.Alert {
	t.Helper()
	alert, err := f.coord.CreateAlert(context.Background(), caller, in)
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}
	return alert
}
