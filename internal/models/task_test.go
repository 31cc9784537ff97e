package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendLog_KeepsPriorEntries(t *testing.T) {
	first := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(90 * time.Minute)

	log := AppendLog("", first, "kicked off")
	log = AppendLog(log, second, "waiting on review")
	log = AppendLog(log, second, "   ")

	require.Equal(t, []string{
		"[2024-01-01 09:00:00] kicked off",
		"[2024-01-01 10:30:00] waiting on review",
	}, LogEntries(log))
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []TaskStatus{StatusDone, StatusCancel, StatusStop} {
		require.True(t, s.IsClosed(), s)
		require.False(t, s.CanBeDelayed(), s)
	}
	for _, s := range []TaskStatus{StatusYetToStart, StatusInProgress, StatusHold, StatusReOpened} {
		require.False(t, s.IsClosed(), s)
		require.True(t, s.CanBeDelayed(), s)
	}
	require.False(t, StatusDelayed.CanBeDelayed())
	require.False(t, TaskStatus("todo").IsValid())
}

func TestSyncDerived(t *testing.T) {
	task := &Task{DailyHours: `{"2024-01-01":1.5,"2024-01-02":2}`, ActualHours: 99}
	task.SyncDerived()
	require.Equal(t, 3.5, task.ActualHours)

	broken := &Task{DailyHours: "{oops"}
	broken.SyncDerived()
	require.Equal(t, "{}", broken.DailyHours)
	require.Zero(t, broken.ActualHours)
}

func TestClone_CopiesSupporters(t *testing.T) {
	orig := &Task{ID: "a", Supporters: []string{"u-1"}}
	c := orig.Clone()
	c.Supporters[0] = "u-2"
	require.Equal(t, "u-1", orig.Supporters[0])
	require.True(t, orig.HasSupporter("u-1"))
	require.False(t, orig.IsSupportTask())
}
