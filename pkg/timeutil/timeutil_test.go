package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", Date(2024, 3, 15, nil), Date(2024, 3, 15, nil).Add(23 * time.Hour), 0},
		{"next day", Date(2024, 3, 15, nil), Date(2024, 3, 16, nil), 1},
		{"across month", Date(2024, 2, 28, nil), Date(2024, 3, 1, nil), 2},
		{"backwards", Date(2024, 3, 16, nil), Date(2024, 3, 15, nil), -1},
		{"across year", Date(2023, 12, 31, nil), Date(2024, 1, 1, nil), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b))
		})
	}
}

func TestDaysBetween_IgnoresDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-10 is the spring-forward day in New York.
	a := Date(2024, 3, 9, loc)
	b := Date(2024, 3, 11, loc)
	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestDateDiff(t *testing.T) {
	d, err := DateDiff("2024-03-15", "2024-03-17")
	require.NoError(t, err)
	assert.Equal(t, 2, d)

	_, err = DateDiff("garbage", "2024-03-17")
	assert.Error(t, err)
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(Date(2024, 3, 15, nil).Add(10 * time.Hour))
	assert.Equal(t, "2024-03-15", Today(c))

	c.AddDays(1)
	assert.Equal(t, "2024-03-16", Today(c))

	c.Set(Date(2025, 1, 1, nil))
	assert.Equal(t, "2025-01-01", Today(c))
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("2024-02-29"))
	assert.False(t, IsValidDate("2023-02-29"))
	assert.False(t, IsValidDate("2024-3-1"))
	assert.False(t, IsValidDate(""))
}

func TestSystemClock_Location(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	c := NewSystemClock(loc)
	assert.Equal(t, loc, c.Now().Location())
	assert.Equal(t, time.UTC, NewSystemClock(nil).Now().Location())
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}
