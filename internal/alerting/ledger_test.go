package alerting

import (
	"context"
	"sync"
	"testing"

	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResponseReplacesEarlierAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())

	first, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{Response: types.ResponseAvailable})
	require.NoError(t, err)

	second, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{
		Response: types.ResponseNotAvailable,
		Message:  utils.StringPtr(" out of town "),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	responses, err := f.ledger.ListResponses(ctx, f.hospital, alert.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, types.ResponseNotAvailable, responses[0].Response.Response)
	assert.Equal(t, "out of town", utils.PtrString(responses[0].Message))
	assert.Equal(t, second.RespondedAt, responses[0].RespondedAt)
	assert.Equal(t, "Donor A", responses[0].DonorName)
	assert.Equal(t, "555-0101", utils.PtrString(responses[0].DonorPhone))
}

func TestRecordResponseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())

	in := types.RecordResponseInput{Response: types.ResponseAvailable}
	_, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, in)
	require.NoError(t, err)
	latest, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, in)
	require.NoError(t, err)

	all := f.mem.Responses().All()
	require.Len(t, all, 1)
	assert.Equal(t, types.ResponseAvailable, all[0].Response)
	assert.Equal(t, latest.RespondedAt, all[0].RespondedAt)
}

func TestRecordResponseConcurrentSubmissionsKeepOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		value := types.ResponseAvailable
		if i%2 == 1 {
			value = types.ResponseNotAvailable
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{Response: value})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.mem.Responses().All(), 1)
}

func TestRecordResponseErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())

	var authErr *types.AuthorizationError
	_, err := f.ledger.RecordResponse(ctx, f.hospital, alert.ID, types.RecordResponseInput{Response: types.ResponseAvailable})
	require.ErrorAs(t, err, &authErr)
	_, err = f.ledger.RecordResponse(ctx, f.admin, alert.ID, types.RecordResponseInput{Response: types.ResponseAvailable})
	require.ErrorAs(t, err, &authErr)

	var nfErr *types.NotFoundError
	_, err = f.ledger.RecordResponse(ctx, f.donorA, "missing", types.RecordResponseInput{Response: types.ResponseAvailable})
	require.ErrorAs(t, err, &nfErr)

	var vErr *types.ValidationError
	_, err = f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{Response: "maybe"})
	require.ErrorAs(t, err, &vErr)

	assert.Empty(t, f.mem.Responses().All())
}

func TestRecordResponseAcceptsClosedAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())
	_, err := f.coord.UpdateStatus(ctx, f.hospital, alert.ID, types.AlertStatusFulfilled)
	require.NoError(t, err)

	_, err = f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{Response: types.ResponseAvailable})
	assert.NoError(t, err)
}

func TestListResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alert := f.mustCreate(t, f.hospital, oPosAlert())

	_, err := f.ledger.RecordResponse(ctx, f.donorA, alert.ID, types.RecordResponseInput{Response: types.ResponseAvailable})
	require.NoError(t, err)
	_, err = f.ledger.RecordResponse(ctx, f.donorC, alert.ID, types.RecordResponseInput{Response: types.ResponseNotAvailable})
	require.NoError(t, err)

	responses, err := f.ledger.ListResponses(ctx, f.hospital, alert.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "donor-c", responses[0].DonorID)
	assert.Equal(t, "donor-a", responses[1].DonorID)

	asAdmin, err := f.ledger.ListResponses(ctx, f.admin, alert.ID)
	require.NoError(t, err)
	assert.Len(t, asAdmin, 2)

	var authErr *types.AuthorizationError
	_, err = f.ledger.ListResponses(ctx, f.donorA, alert.ID)
	require.ErrorAs(t, err, &authErr)
	_, err = f.ledger.ListResponses(ctx, f.otherHospital(), alert.ID)
	require.ErrorAs(t, err, &authErr)

	var nfErr *types.NotFoundError
	_, err = f.ledger.ListResponses(ctx, f.hospital, "missing")
	require.ErrorAs(t, err, &nfErr)
}
