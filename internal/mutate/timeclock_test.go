package mutate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/washpos/internal/domain"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return ts
}

func TestClockIn(t *testing.T) {
	entries, entry, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "2024-03-01", entry.Date)
	assert.Equal(t, "08:00:00", entry.Time)
	assert.Equal(t, domain.ActionIn, entry.Action)
	assert.False(t, entry.IsSaved)
	assert.Equal(t, entry, entries[0])
}

func TestClockInTwiceFails(t *testing.T) {
	entries, _, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)

	_, _, err = ClockIn(entries, "Maria", at(t, "2024-03-01 09:00:00"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualError(t, err, "Maria is already clocked in")
}

func TestClockInRequiresEmployee(t *testing.T) {
	_, _, err := ClockIn(nil, "  ", at(t, "2024-03-01 08:00:00"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClockOutWithoutClockInFails(t *testing.T) {
	_, _, err := ClockOut(nil, "Maria", at(t, "2024-03-01 17:00:00"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClockOutClosesShift(t *testing.T) {
	entries, _, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)
	entries, out, err := ClockOut(entries, "Maria", at(t, "2024-03-01 16:30:00"))
	require.NoError(t, err)

	assert.Equal(t, domain.ActionOut, out.Action)
	assert.Len(t, entries, 2)
	assert.Nil(t, OpenClockIn(entries, "Maria", "2024-03-01"))

	// A new shift can start after the first one closed.
	_, _, err = ClockIn(entries, "Maria", at(t, "2024-03-01 18:00:00"))
	assert.NoError(t, err)
}

func TestClockInDoesNotModifyInput(t *testing.T) {
	first, _, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)
	snapshot := append([]domain.TimeEntry(nil), first...)

	_, _, err = ClockIn(first, "Luis", at(t, "2024-03-01 08:05:00"))
	require.NoError(t, err)
	assert.Equal(t, snapshot, first)
}

func TestClockInRepeatedAttemptKeepsID(t *testing.T) {
	_, first, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)
	_, retry, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:02:00"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)

	entries, _, err := ClockIn(nil, "Maria", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)
	entries, out, err := ClockOut(entries, "Maria", at(t, "2024-03-01 12:00:00"))
	require.NoError(t, err)
	_, second, err := ClockIn(entries, "Maria", at(t, "2024-03-01 13:00:00"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, out.ID)
	assert.NotEqual(t, first.ID, second.ID)

	_, other, err := ClockIn(nil, "Luis", at(t, "2024-03-01 08:00:00"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestOpenClockInIsPerDate(t *testing.T) {
	entries, _, err := ClockIn(nil, "Maria", at(t, "2024-03-01 22:00:00"))
	require.NoError(t, err)

	assert.NotNil(t, OpenClockIn(entries, "Maria", "2024-03-01"))
	assert.Nil(t, OpenClockIn(entries, "Maria", "2024-03-02"))
	assert.Nil(t, OpenClockIn(entries, "Luis", "2024-03-01"))
}

func TestSetServerID(t *testing.T) {
	entries := []domain.TimeEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out := SetServerID(entries, []string{"a", "c"}, 42)

	require.NotNil(t, out[0].ServerID)
	assert.Equal(t, int64(42), *out[0].ServerID)
	assert.Nil(t, out[1].ServerID)
	assert.Equal(t, int64(42), *out[2].ServerID)
	assert.Nil(t, entries[0].ServerID)
}
