package ledger

import (
	"errors"
	"testing"

	"task-tracker-api/internal/apperr"

	"github.com/stretchr/testify/require"
)

func TestAddHours_AccumulatesSameDay(t *testing.T) {
	raw, err := AddHours(Empty, "2024-01-01", 1.5)
	require.NoError(t, err)
	raw, err = AddHours(raw, "2024-01-01", 1.0)
	require.NoError(t, err)

	require.Equal(t, 2.5, TotalHours(raw))
	require.Equal(t, 2.5, HoursOnDate(raw, "2024-01-01"))
	require.Equal(t, `{"2024-01-01":2.5}`, raw)
}

func TestAddHours_OrderDoesNotMatter(t *testing.T) {
	deltas := []struct {
		date  string
		hours float64
	}{
		{"2024-01-02", 0.25},
		{"2024-01-01", 1.5},
		{"2024-01-02", 3},
		{"2024-01-01", 0.75},
		{"2024-01-03", 2},
	}

	forward := Empty
	for _, d := range deltas {
		var err error
		forward, err = AddHours(forward, d.date, d.hours)
		require.NoError(t, err)
	}
	backward := Empty
	for i := len(deltas) - 1; i >= 0; i-- {
		var err error
		backward, err = AddHours(backward, deltas[i].date, deltas[i].hours)
		require.NoError(t, err)
	}

	require.Equal(t, forward, backward)
	require.Equal(t, 7.5, TotalHours(forward))
	require.Equal(t, 2.25, HoursOnDate(forward, "2024-01-01"))
	require.Equal(t, 3.25, HoursOnDate(forward, "2024-01-02"))
}

func TestAddHours_RejectsNegativeAndBadDate(t *testing.T) {
	_, err := AddHours(Empty, "2024-01-01", -1)
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = AddHours(Empty, "01/01/2024", 1)
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAddHours_RejectsSubHundredthDelta(t *testing.T) {
	raw := Empty
	for i := 0; i < 3; i++ {
		_, err := AddHours(raw, "2024-01-01", 0.004)
		require.True(t, errors.Is(err, apperr.ErrInvalidInput))
	}
	require.Equal(t, Empty, raw)

	_, err := AddHours(raw, "2024-01-01", 1.255)
	require.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAddHours_TotalIsSumOfDeltas(t *testing.T) {
	deltas := []float64{0.01, 0.1, 0.2, 0.33, 1.07, 2.99, 0.01}
	raw := Empty
	var want float64
	for _, d := range deltas {
		var err error
		raw, err = AddHours(raw, "2024-01-01", d)
		require.NoError(t, err)
		want += d
	}
	require.Equal(t, Round(want), TotalHours(raw))
	require.Equal(t, 4.71, TotalHours(raw))
}

func TestPrecise(t *testing.T) {
	for _, v := range []float64{0, 0.01, 0.1, 0.3, 2.5, 7.75, 1234.56} {
		require.True(t, Precise(v), "%v", v)
	}
	for _, v := range []float64{0.004, 0.005, 1.255, 0.333} {
		require.False(t, Precise(v), "%v", v)
	}
}

func TestAdd_DoesNotMutateReceiver(t *testing.T) {
	base := Ledger{"2024-01-01": 1}
	next, err := base.Add("2024-01-01", 2)
	require.NoError(t, err)
	require.Equal(t, 1.0, base["2024-01-01"])
	require.Equal(t, 3.0, next["2024-01-01"])
}

func TestParse_Lenient(t *testing.T) {
	require.Empty(t, Parse(""))
	require.Empty(t, Parse("not json"))
	require.Empty(t, Parse(`["2024-01-01", 2]`))

	l := Parse(`{"2024-01-01": 2, "2024-01-02": "1.5", "garbage": 4, "2024-01-03": -3, "2024-01-04": true}`)
	require.Equal(t, Ledger{"2024-01-01": 2, "2024-01-02": 1.5}, l)
}

func TestHoursInRange(t *testing.T) {
	raw := `{"2024-01-01":1,"2024-01-02":2,"2024-01-05":4,"2024-02-01":8}`

	require.Equal(t, 3.0, HoursInRange(raw, "2024-01-01", "2024-01-02"))
	require.Equal(t, 7.0, HoursInRange(raw, "2024-01-01", "2024-01-31"))
	require.Equal(t, 8.0, HoursInRange(raw, "2024-02-01", "2024-02-01"))
	require.Equal(t, 0.0, HoursInRange(raw, "2024-01-31", "2024-01-01"))
	require.Equal(t, 0.0, HoursInRange(raw, "bad", "2024-01-31"))
}

func TestHoursOnDate_Missing(t *testing.T) {
	require.Equal(t, 0.0, HoursOnDate(`{"2024-01-01":1}`, "2024-01-02"))
	require.Equal(t, 0.0, HoursOnDate(Empty, "2024-01-02"))
}

func TestString_Canonical(t *testing.T) {
	a := Ledger{"2024-01-02": 1, "2024-01-01": 2}
	b := Parse(`{"2024-01-01":2,"2024-01-02":1}`)
	require.Equal(t, a.String(), b.String())
	require.Equal(t, Empty, Ledger{}.String())
	require.Equal(t, Empty, Ledger(nil).String())
}
