package delayed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/models"
	"task-tracker-api/internal/repository"
	"task-tracker-api/internal/testutil"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T, today time.Time) (*Detector, repository.TaskRepository) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo := repository.NewTaskRepository(db)
	logger, _ := logtest.NewNullLogger()
	manager := lifecycle.NewManager(repo, lifecycle.WithClock(testutil.FixedClock(today)), lifecycle.WithLogger(logger))
	return NewDetector(manager, logger), repo
}

func seed(t *testing.T, repo repository.TaskRepository, tasks ...*models.Task) {
	t.Helper()
	for _, task := range tasks {
		_, err := repo.Create(context.Background(), task)
		require.NoError(t, err)
	}
}

func TestScan(t *testing.T) {
	today := testutil.Date(2024, time.March, 10)
	tasks := []*models.Task{
		testutil.NewTask("1", "T1", models.StatusInProgress, "2024-03-09"),
		testutil.NewTask("2", "T2", models.StatusInProgress, "2024-03-10"),
		testutil.NewTask("3", "T3", models.StatusYetToStart, "2024-03-11"),
		testutil.NewTask("4", "T4", models.StatusDone, "2024-01-01"),
		testutil.NewTask("5", "T5", models.StatusDelayed, "2024-01-01"),
		testutil.NewTask("6", "T6", models.StatusHold, "not-a-date"),
		testutil.NewTask("7", "T7", models.StatusReOpened, "2023-12-31"),
		testutil.NewTask("8", "T8", models.StatusCancel, "2024-03-01"),
		testutil.NewTask("9", "T9", models.StatusStop, "2024-03-01"),
		nil,
	}

	eligible := Scan(tasks, today)

	var codes []string
	for _, e := range eligible {
		codes = append(codes, e.TaskID)
	}
	require.Equal(t, []string{"T1", "T7"}, codes)
}

func TestScan_DueTodayIsNotDelayed(t *testing.T) {
	// late evening on the due date is still on time
	today := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)
	task := testutil.NewTask("1", "T1", models.StatusYetToStart, "2024-03-10")
	require.Empty(t, Scan([]*models.Task{task}, today))
	require.Len(t, Scan([]*models.Task{task}, today.Add(time.Minute)), 1)
}

func TestRun_HoldPromotedDoneUntouched(t *testing.T) {
	detector, repo := newDetector(t, testutil.Date(2024, time.March, 10))
	seed(t, repo,
		testutil.NewTask("a", "TSK-A", models.StatusHold, "2024-03-05"),
		testutil.NewTask("b", "TSK-B", models.StatusDone, "2024-03-05"),
	)

	res, err := detector.Run(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, 1, res.PromotedCount)
	require.Equal(t, []string{"TSK-A"}, res.PromotedTaskIDs)
	require.Empty(t, res.Failed)

	a, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, models.StatusDelayed, a.Status)
	require.Equal(t, 2, a.Version)

	b, err := repo.Get(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, b.Status)
	require.Equal(t, 1, b.Version)
}

func TestRun_Idempotent(t *testing.T) {
	detector, repo := newDetector(t, testutil.Date(2024, time.March, 10))
	seed(t, repo,
		testutil.NewTask("a", "TSK-A", models.StatusInProgress, "2024-03-01"),
		testutil.NewTask("b", "TSK-B", models.StatusYetToStart, "2024-02-01"),
	)

	first, err := detector.Run(context.Background(), SystemActor)
	require.NoError(t, err)
	require.Equal(t, 2, first.PromotedCount)

	second, err := detector.Run(context.Background(), SystemActor)
	require.NoError(t, err)
	require.Zero(t, second.PromotedCount)
	require.Empty(t, second.Failed)
}

func TestApply_FailureDoesNotStopBatch(t *testing.T) {
	detector, repo := newDetector(t, testutil.Date(2024, time.March, 10))
	seed(t, repo,
		testutil.NewTask("a", "TSK-A", models.StatusInProgress, "2024-03-01"),
		testutil.NewTask("b", "TSK-B", models.StatusInProgress, "2024-03-01"),
	)
	ghost := testutil.NewTask("ghost", "TSK-GHOST", models.StatusInProgress, "2024-03-01")
	stale := testutil.NewTask("b", "TSK-B", models.StatusInProgress, "2024-03-01")
	stale.Version = 7
	a, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)

	res := detector.Apply(context.Background(), SystemActor, []*models.Task{ghost, stale, a})
	require.Equal(t, 1, res.PromotedCount)
	require.Equal(t, []string{"TSK-A"}, res.PromotedTaskIDs)
	require.Len(t, res.Failed, 2)
	require.Equal(t, "TSK-GHOST", res.Failed[0].TaskID)
	require.Equal(t, "TSK-B", res.Failed[1].TaskID)
}

func TestScheduler_RunsUntilStopped(t *testing.T) {
	detector, repo := newDetector(t, testutil.Date(2024, time.March, 10))
	seed(t, repo, testutil.NewTask("a", "TSK-A", models.StatusInProgress, "2024-03-01"))

	var promoted atomic.Int32
	s := NewScheduler(detector, 10*time.Millisecond, nil, func(res *SweepResult) {
		promoted.Add(int32(res.PromotedCount))
	})
	s.Start(context.Background())

	require.Eventually(t, func() bool { return promoted.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	a, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, models.StatusDelayed, a.Status)
}

func TestScheduler_DisabledInterval(t *testing.T) {
	detector, _ := newDetector(t, testutil.Date(2024, time.March, 10))
	s := NewScheduler(detector, 0, nil, nil)
	s.Start(context.Background())
	s.Stop()
}
