package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/washpos/internal/domain"
)

func entry(id, employee, date, tm string, action domain.Action) domain.TimeEntry {
	return domain.TimeEntry{ID: id, EmployeeName: employee, Date: date, Time: tm, Action: action}
}

func TestPairShifts(t *testing.T) {
	entries := []domain.TimeEntry{
		entry("3", "Maria", "2024-03-01", "16:00:00", domain.ActionOut),
		entry("1", "Maria", "2024-03-01", "08:00:00", domain.ActionIn),
		entry("2", "Luis", "2024-03-01", "09:00:00", domain.ActionIn),
		entry("4", "Luis", "2024-03-01", "13:00:00", domain.ActionOut),
		entry("5", "Luis", "2024-03-01", "14:00:00", domain.ActionIn),
	}

	shifts := PairShifts(entries)
	require.Len(t, shifts, 3)

	assert.Equal(t, "Luis", shifts[0].EmployeeName)
	assert.Equal(t, "2", shifts[0].ClockIn.ID)
	require.NotNil(t, shifts[0].ClockOut)
	assert.Equal(t, "4", shifts[0].ClockOut.ID)
	assert.InDelta(t, 4.0, shifts[0].Hours(), 0.001)

	assert.Equal(t, "5", shifts[1].ClockIn.ID)
	assert.True(t, shifts[1].Open())

	assert.Equal(t, "Maria", shifts[2].EmployeeName)
	assert.Equal(t, "1", shifts[2].ClockIn.ID)
	assert.Equal(t, "3", shifts[2].ClockOut.ID)
}

func TestPairShiftsSkipsStrayClockOut(t *testing.T) {
	entries := []domain.TimeEntry{
		entry("1", "Maria", "2024-03-01", "07:00:00", domain.ActionOut),
		entry("2", "Maria", "2024-03-01", "08:00:00", domain.ActionIn),
		entry("3", "Maria", "2024-03-01", "12:00:00", domain.ActionOut),
	}

	shifts := PairShifts(entries)
	require.Len(t, shifts, 1)
	assert.Equal(t, "2", shifts[0].ClockIn.ID)
	assert.Equal(t, "3", shifts[0].ClockOut.ID)
}

func TestPairShiftsEmpty(t *testing.T) {
	assert.Empty(t, PairShifts(nil))
}
