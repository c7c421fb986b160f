// Package clock derives daily tournament identity and windows from wall-clock time.
// There is no stored "current tournament": every caller resolves it from its own now.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	idPrefix   = "tournament_"
	dateLayout = "2006-01-02"
)

// ErrInvalidTournamentID is returned for ids not produced by TournamentID
var ErrInvalidTournamentID = errors.New("invalid tournament id")

// Clock maps instants to daily tournaments in a fixed reference zone
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a UTC tournament clock backed by time.Now
func New() *Clock {
	return &Clock{loc: time.UTC, now: time.Now}
}

// NewWithNow creates a UTC clock with an injectable time source
func NewWithNow(now func() time.Time) *Clock {
	return &Clock{loc: time.UTC, now: now}
}

// Now returns the clock's current time
func (c *Clock) Now() time.Time {
	return c.now()
}

// CurrentTournamentID returns the id of the tournament active at now
func (c *Clock) CurrentTournamentID(now time.Time) string {
	return idPrefix + now.In(c.loc).Format(dateLayout)
}

// WindowFor returns the inclusive [start, end] bounds of tournament id
func (c *Clock) WindowFor(id string) (time.Time, time.Time, error) {
	date, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTournamentID, id)
	}
	start, err := time.ParseInLocation(dateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTournamentID, id)
	}
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end, nil
}

// TimeRemaining returns the time left in the tournament active at now.
// It never goes negative.
func (c *Clock) TimeRemaining(now time.Time) time.Duration {
	_, end, _ := c.WindowFor(c.CurrentTournamentID(now))
	return remaining(end, now)
}

// TimeRemainingFor is TimeRemaining for an explicit tournament; a finished
// tournament reports zero.
func (c *Clock) TimeRemainingFor(id string, now time.Time) (time.Duration, error) {
	_, end, err := c.WindowFor(id)
	if err != nil {
		return 0, err
	}
	return remaining(end, now), nil
}

// IsOpen reports whether now falls inside tournament id's window
func (c *Clock) IsOpen(id string, now time.Time) bool {
	start, end, err := c.WindowFor(id)
	if err != nil {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// PreviousTournamentID returns the id of the day before the one active at now
func (c *Clock) PreviousTournamentID(now time.Time) string {
	return c.CurrentTournamentID(now.In(c.loc).AddDate(0, 0, -1))
}

func remaining(end, now time.Time) time.Duration {
	d := end.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FormatRemaining renders d as HH:MM:SS, truncating fractional seconds
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
