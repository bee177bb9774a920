package dummydb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybow/backend/core/diagnosis"
	dummydb "github.com/buddybow/backend/storage/database/dummy"
)

func TestQueryOutstandingRequestsOrdering(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewDiagnosisRepository(db)
	ctx := context.Background()

	newRequest := func(id string, lastCheckedAt *time.Time) diagnosis.Request {
		return diagnosis.Request{
			ID:            id,
			UserID:        "user-7",
			URL:           "https://diag.example/" + id,
			Status:        diagnosis.StatusPending,
			LastCheckedAt: lastCheckedAt,
			CreatedAt:     time.Now().UTC(),
		}
	}

	hourAgo := time.Now().UTC().Add(-time.Hour)
	minuteAgo := time.Now().UTC().Add(-time.Minute)
	for _, req := range []diagnosis.Request{
		newRequest("recent", &minuteAgo),
		newRequest("never-a", nil),
		newRequest("old", &hourAgo),
		newRequest("never-b", nil),
	} {
		_, err := repo.CreateRequest(ctx, req)
		require.NoError(t, err)
	}

	got, err := repo.QueryOutstandingRequests(ctx, []diagnosis.Status{diagnosis.StatusPending}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 4)

	// never-checked rows first, then oldest last-checked first
	assert.ElementsMatch(t, []string{"never-a", "never-b"}, []string{got[0].ID, got[1].ID})
	assert.Equal(t, "old", got[2].ID)
	assert.Equal(t, "recent", got[3].ID)

	// the limit applies after ordering
	got, err = repo.QueryOutstandingRequests(ctx, []diagnosis.Status{diagnosis.StatusPending}, 0, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].LastCheckedAt)
	assert.Nil(t, got[1].LastCheckedAt)
}
