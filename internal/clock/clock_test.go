package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTournamentID(t *testing.T) {
	c := New()

	lastMoment := time.Date(2024, 3, 9, 23, 59, 59, 999_000_000, time.UTC)
	firstMoment := time.Date(2024, 3, 10, 0, 0, 0, 1_000_000, time.UTC)

	assert.Equal(t, "tournament_2024-03-09", c.CurrentTournamentID(lastMoment))
	assert.Equal(t, "tournament_2024-03-10", c.CurrentTournamentID(firstMoment))

	// non-UTC instants resolve by their UTC date
	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, "tournament_2024-03-09", c.CurrentTournamentID(time.Date(2024, 3, 10, 8, 0, 0, 0, tokyo)))
}

func TestWindowFor(t *testing.T) {
	c := New()

	start, end, err := c.WindowFor("tournament_2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999_999_999, time.UTC), end)

	for _, bad := range []string{"", "2024-02-29", "tournament_", "tournament_2024-13-01", "tournament_tomorrow"} {
		_, _, err := c.WindowFor(bad)
		assert.ErrorIs(t, err, ErrInvalidTournamentID, bad)
	}
}

func TestTimeRemaining(t *testing.T) {
	c := New()

	noon := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "11:59:59", FormatRemaining(c.TimeRemaining(noon)))

	almostMidnight := time.Date(2024, 3, 9, 23, 59, 59, 999_999_999, time.UTC)
	assert.Equal(t, time.Duration(0), c.TimeRemaining(almostMidnight))

	left, err := c.TimeRemainingFor("tournament_2024-03-08", noon)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), left)

	_, err = c.TimeRemainingFor("nope", noon)
	assert.ErrorIs(t, err, ErrInvalidTournamentID)
}

func TestIsOpen(t *testing.T) {
	c := New()
	id := "tournament_2024-03-09"

	assert.True(t, c.IsOpen(id, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.IsOpen(id, time.Date(2024, 3, 9, 23, 59, 59, 999_999_999, time.UTC)))
	assert.False(t, c.IsOpen(id, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.IsOpen(id, time.Date(2024, 3, 8, 23, 59, 59, 0, time.UTC)))
	assert.False(t, c.IsOpen("garbage", time.Now()))
}

func TestPreviousTournamentID(t *testing.T) {
	c := New()
	assert.Equal(t, "tournament_2024-02-29", c.PreviousTournamentID(time.Date(2024, 3, 1, 0, 0, 5, 0, time.UTC)))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatRemaining(-time.Second))
	assert.Equal(t, "00:00:00", FormatRemaining(999*time.Millisecond))
	assert.Equal(t, "01:02:03", FormatRemaining(time.Hour+2*time.Minute+3*time.Second+500*time.Millisecond))
	assert.Equal(t, "23:59:59", FormatRemaining(24*time.Hour-time.Nanosecond))
}

func TestNewWithNow(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 6, 0, 0, 0, time.UTC)
	c := NewWithNow(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
