package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/audit"
	"netgate/internal/gateway"
	"netgate/internal/validator"
)

func sampleDecision(kind string, forwarded bool) gateway.Decision {
	return gateway.Decision{
		ID:                 uuid.New().String(),
		EventKind:          kind,
		Model:              "dcim.device",
		DeviceID:           42,
		Device:             "edge-router-01",
		ValidationRequired: kind == "created",
		Forwarded:          forwarded,
		Delivered:          forwarded,
		Reason:             "integration fixture",
		CreatedAt:          time.Now().UTC(),
	}
}

func TestPostgresStoreRecordAndRecent(t *testing.T) {
	infra := SetupTestInfra(t)
	store := audit.NewPostgresStore(infra.PostgresDB)
	ctx := context.Background()

	d := sampleDecision("created", true)
	d.Outcome = &validator.Outcome{Succeeded: true, StatusCode: 200, Message: "ok"}
	require.NoError(t, store.Record(ctx, d))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, d.ID, got[0].ID)
	assert.Equal(t, "created", got[0].EventKind)
	assert.Equal(t, int64(42), got[0].DeviceID)
	assert.True(t, got[0].ValidationRequired)
	require.NotNil(t, got[0].Outcome)
	assert.True(t, got[0].Outcome.Succeeded)
	assert.Equal(t, 200, got[0].Outcome.StatusCode)
}

func TestPostgresStoreNilOutcome(t *testing.T) {
	infra := SetupTestInfra(t)
	store := audit.NewPostgresStore(infra.PostgresDB)
	ctx := context.Background()

	d := sampleDecision("updated", true)
	require.NoError(t, store.Record(ctx, d))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Outcome)
}

func TestPostgresStoreRecentOrderAndLimit(t *testing.T) {
	infra := SetupTestInfra(t)
	store := audit.NewPostgresStore(infra.PostgresDB)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		d := sampleDecision("created", false)
		d.Reason = fmt.Sprintf("fixture %d", i)
		d.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, d.ID)
		require.NoError(t, store.Record(ctx, d))
	}

	got, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, ids[4], got[0].ID, "newest decision first")
	assert.Equal(t, ids[3], got[1].ID)
	assert.Equal(t, ids[2], got[2].ID)
}
