// Package storetest provides an in-memory stand-in for the Postgres
// repositories, with the same uniqueness, foreign key and ordering
// behaviour, for use in tests.
package storetest

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"bloodalert/internal/store"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"
)

type Memory struct {
	mu            sync.Mutex
	users         []*types.User
	alerts        []*types.Alert
	responses     []*types.Response
	notifications []*types.Notification

	// Err, when set, is returned by every call.
	Err error
}

func New() *Memory {
	return &Memory{}
}

func (m *Memory) Users() *Users                 { return &Users{m} }
func (m *Memory) Alerts() *Alerts               { return &Alerts{m} }
func (m *Memory) Responses() *Responses         { return &Responses{m} }
func (m *Memory) Notifications() *Notifications { return &Notifications{m} }

// AddUser stores u, replacing a user with the same id.
func (m *Memory) AddUser(u *types.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	for i, existing := range m.users {
		if existing.ID == u.ID {
			m.users[i] = u
			return
		}
	}
	m.users = append(m.users, u)
}

func (m *Memory) userLocked(id string) *types.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *Memory) alertLocked(id string) *types.Alert {
	for _, a := range m.alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *Memory) viewLocked(a *types.Alert) *types.AlertView {
	v := &types.AlertView{Alert: *a}
	if h := m.userLocked(a.HospitalID); h != nil {
		v.HospitalName = h.HospitalName
	}
	return v
}

type Users struct{ m *Memory }

func (s *Users) User(_ context.Context, userID string) (*types.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	u := s.m.userLocked(userID)
	if u == nil {
		return nil, types.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Users) UserByEmail(_ context.Context, email string) (*types.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	for _, u := range s.m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (s *Users) UpdateLocation(_ context.Context, userID string, point types.Point) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return s.m.Err
	}
	u := s.m.userLocked(userID)
	if u == nil {
		return types.ErrUserNotFound
	}
	u.Latitude = utils.Float64Ptr(point.Lat)
	u.Longitude = utils.Float64Ptr(point.Lon)
	u.UpdatedAt = time.Now()
	return nil
}

// Create rejects a second account for the same email, case-insensitively.
func (s *Users) Create(_ context.Context, user *types.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return s.m.Err
	}
	for _, u := range s.m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrEmailTaken
		}
	}
	cp := *user
	s.m.users = append(s.m.users, &cp)
	return nil
}

func (s *Users) Donors(_ context.Context) ([]*types.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	out := make([]*types.User, 0)
	for _, u := range s.m.users {
		if u.Role == types.RoleDonor {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type Alerts struct{ m *Memory }

func (s *Alerts) Create(_ context.Context, alert *types.Alert) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return s.m.Err
	}
	if alert.ID == "" {
		alert.ID = utils.NanoID()
	}
	if s.m.alertLocked(alert.ID) != nil {
		return errors.New("duplicate alert id")
	}
	cp := *alert
	s.m.alerts = append(s.m.alerts, &cp)
	return nil
}

func (s *Alerts) Alert(_ context.Context, alertID string) (*types.AlertView, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	a := s.m.alertLocked(alertID)
	if a == nil {
		return nil, types.ErrAlertNotFound
	}
	return s.m.viewLocked(a), nil
}

func (s *Alerts) list(keep func(*types.Alert) bool) ([]*types.AlertView, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	out := make([]*types.AlertView, 0)
	for _, a := range s.m.alerts {
		if keep(a) {
			out = append(out, s.m.viewLocked(a))
		}
	}
	slices.SortStableFunc(out, func(a, b *types.AlertView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Alerts) AlertsByHospital(_ context.Context, hospitalID string) ([]*types.AlertView, error) {
	return s.list(func(a *types.Alert) bool { return a.HospitalID == hospitalID })
}

func (s *Alerts) ActiveAlertsByBloodType(_ context.Context, bloodType types.BloodType) ([]*types.AlertView, error) {
	return s.list(func(a *types.Alert) bool {
		return a.BloodType == bloodType && a.Status == types.AlertStatusActive
	})
}

func (s *Alerts) AllAlerts(_ context.Context) ([]*types.AlertView, error) {
	return s.list(func(*types.Alert) bool { return true })
}

func (s *Alerts) TransitionStatus(_ context.Context, alertID string, from, to types.AlertStatus) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return false, s.m.Err
	}
	a := s.m.alertLocked(alertID)
	if a == nil || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (s *Alerts) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return 0, s.m.Err
	}
	var n int64
	for _, a := range s.m.alerts {
		if a.Status == types.AlertStatusActive && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.Status = types.AlertStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *Alerts) CountAlerts(_ context.Context, filter types.AlertFilter) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return 0, s.m.Err
	}
	var n int
	for _, a := range s.m.alerts {
		if filter.HospitalID != "" && a.HospitalID != filter.HospitalID {
			continue
		}
		if filter.BloodType != "" && a.BloodType != filter.BloodType {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		n++
	}
	return n, nil
}

type Responses struct{ m *Memory }

func (s *Responses) Upsert(_ context.Context, response *types.Response) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return s.m.Err
	}
	if s.m.alertLocked(response.AlertID) == nil {
		return types.ErrAlertNotFound
	}
	if response.ID == "" {
		response.ID = utils.NanoID()
	}

	for _, existing := range s.m.responses {
		if existing.AlertID == response.AlertID && existing.DonorID == response.DonorID {
			existing.Response = response.Response
			existing.Message = response.Message
			existing.RespondedAt = response.RespondedAt
			response.ID = existing.ID
			return nil
		}
	}

	cp := *response
	s.m.responses = append(s.m.responses, &cp)
	return nil
}

func (s *Responses) ResponsesByAlert(_ context.Context, alertID string) ([]*types.ResponseView, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	out := make([]*types.ResponseView, 0)
	for _, r := range s.m.responses {
		if r.AlertID != alertID {
			continue
		}
		v := &types.ResponseView{Response: *r}
		if u := s.m.userLocked(r.DonorID); u != nil {
			v.DonorName = u.Name
			v.DonorEmail = u.Email
			v.DonorPhone = u.Phone
		}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b *types.ResponseView) int {
		if c := b.RespondedAt.Compare(a.RespondedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Responses) CountResponses(_ context.Context, filter types.ResponseFilter) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return 0, s.m.Err
	}
	var n int
	for _, r := range s.m.responses {
		if filter.HospitalID != "" {
			a := s.m.alertLocked(r.AlertID)
			if a == nil || a.HospitalID != filter.HospitalID {
				continue
			}
		}
		if filter.DonorID != "" && r.DonorID != filter.DonorID {
			continue
		}
		if filter.Response != "" && r.Response != filter.Response {
			continue
		}
		n++
	}
	return n, nil
}

// All returns a copy of every stored response.
func (s *Responses) All() []types.Response {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := make([]types.Response, len(s.m.responses))
	for i, r := range s.m.responses {
		out[i] = *r
	}
	return out
}

type Notifications struct{ m *Memory }

func (s *Notifications) Create(_ context.Context, n *types.Notification) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return s.m.Err
	}
	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	cp := *n
	s.m.notifications = append(s.m.notifications, &cp)
	return nil
}

func (s *Notifications) Notifications(_ context.Context, filter types.NotificationFilter) ([]*types.Notification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.m.Err != nil {
		return nil, s.m.Err
	}
	out := make([]*types.Notification, 0)
	for _, n := range s.m.notifications {
		if filter.RecipientID != "" && n.RecipientID != filter.RecipientID {
			continue
		}
		if filter.HospitalID != "" {
			a := s.m.alertLocked(n.AlertID)
			if a == nil || a.HospitalID != filter.HospitalID {
				continue
			}
		}
		if filter.Since != nil && n.SentAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !n.SentAt.Before(*filter.Until) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *types.Notification) int {
		if c := b.SentAt.Compare(a.SentAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
