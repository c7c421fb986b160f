package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/models"
)

func TestLocalVersions(t *testing.T) {
	v := NewLocalVersions()
	ctx := context.Background()

	v.PublishStanding(testTID, models.Entry{UserID: "u1"})
	v.PublishStanding(testTID, models.Entry{UserID: "u1"})
	v.PublishStanding("tournament_2023-11-15", models.Entry{UserID: "u1"})

	got, err := v.GetLeaderboardVersion(ctx, testTID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	v.Forget(testTID)
	got, err = v.GetLeaderboardVersion(ctx, testTID)
	require.NoError(t, err)
	assert.Zero(t, got)
}
