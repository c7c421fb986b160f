package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeCompositeScore(t *testing.T) {
	early := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC).Unix()
	late := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC).Unix()

	// equal scores: the earlier entrant ranks higher
	assert.Greater(t, ComputeCompositeScore(500, early), ComputeCompositeScore(500, late))

	// a higher score always wins regardless of entry time
	assert.Greater(t, ComputeCompositeScore(501, late), ComputeCompositeScore(500, early))

	assert.Equal(t, int64(500), ExtractBaseScore(ComputeCompositeScore(500, late)))
	assert.Equal(t, int64(0), ExtractBaseScore(ComputeCompositeScore(0, early)))
}

func TestKeys(t *testing.T) {
	id := "tournament_2024-05-01"
	assert.Equal(t, "leaderboard:tournament_2024-05-01:scores", ScoresKey(id))
	assert.Equal(t, "leaderboard:tournament_2024-05-01:names", NamesKey(id))
	assert.Equal(t, "leaderboard:tournament_2024-05-01:version", VersionKey(id))
}
