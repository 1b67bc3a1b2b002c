package seed

import (
	"context"
	"errors"
	"testing"

	"bloodalert/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	users map[string]*types.User
	err   error
}

func (r *recorder) Upsert(_ context.Context, u *types.User) error {
	if r.err != nil {
		return r.err
	}
	r.users[u.ID] = u
	return nil
}

func TestSeedUsersIsRepeatable(t *testing.T) {
	r := &recorder{users: map[string]*types.User{}}

	n, err := SeedUsers(context.Background(), r)
	require.NoError(t, err)
	_, err = SeedUsers(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, len(demoUsers), n)
	assert.Len(t, r.users, len(demoUsers))

	for _, u := range r.users {
		_, err := types.CallerFromUser(u)
		assert.NoError(t, err, u.ID)
		if u.Role == types.RoleDonor {
			require.NotNil(t, u.BloodType, u.ID)
			assert.NotNil(t, u.Location(), u.ID)
		}
	}

	hospital := r.users["hosp_mercy_general_000001"]
	require.NotNil(t, hospital.HospitalName)
	assert.Equal(t, "Mercy General", *hospital.HospitalName)
	assert.Nil(t, r.users["admin_seed_00000000000001"].Location())
}

func TestSeedUsersStopsOnError(t *testing.T) {
	r := &recorder{users: map[string]*types.User{}, err: errors.New("connection refused")}

	_, err := SeedUsers(context.Background(), r)
	assert.ErrorContains(t, err, "connection refused")
}
