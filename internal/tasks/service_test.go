package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldops-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateTask_AppliesDefaultsAndAssigns(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	view, err := svc.CreateTask(ctx, TaskDraft{
		Title:       "Pitch 6x12 marquee",
		DueDate:     day(2025, 6, 12, 8),
		AssigneeIDs: []string{"u-ben", "u-cara", "u-ben", " "},
	}, "u-ana")
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	require.Equal(t, models.StatusPending, view.Status)
	require.Equal(t, models.PriorityMedium, view.Priority)
	require.Equal(t, models.TypeGeneral, view.Type)
	require.Nil(t, view.CompletedAt)
	require.Nil(t, view.CompletedBy)
	require.Equal(t, []string{"u-ben", "u-cara"}, view.AssigneeIDs)
	require.Equal(t, "Ana Field", view.CreatedBy.DisplayName)
	require.Equal(t, "Ben Crew", view.Assignees[0].DisplayName)
	require.Equal(t, "Cara Lead", view.Assignees[1].DisplayName)

	got, err := svc.GetTask(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, view.AssigneeIDs, got.AssigneeIDs)
}

func TestCreateTask_MarqueeScenario(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	due := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	view, err := svc.CreateTask(ctx, TaskDraft{Title: "Deliver marquee", DueDate: &due, Type: "marquee"}, "u-ana")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, view.Status)
	require.Equal(t, models.PriorityMedium, view.Priority)
	require.Equal(t, models.TypeMarquee, view.Type)

	completed, err := svc.ListTasks(ctx, TaskFilters{Status: "completed"})
	require.NoError(t, err)
	require.Empty(t, completed)
}

func TestCreateTask_ValidationWritesNothing(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, TaskDraft{Title: "No date"}, "u-ana")
	require.ErrorIs(t, err, ErrValidation)

	all, err := svc.ListTasks(ctx, TaskFilters{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestUpdateTask_CompleteWithoutTimestamp(t *testing.T) {
	svc, _, _, clock := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Service toilets", Type: "toilet", DueDate: day(2025, 6, 10, 12)}, "u-ana")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	done, err := svc.UpdateStatus(ctx, created.ID, "completed", "u-ben")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.True(t, clock.Now().Equal(*done.CompletedAt))
	require.NotNil(t, done.CompletedBy)
	require.Equal(t, "u-ben", done.CompletedBy.ID)
	require.Equal(t, "Ben Crew", done.CompletedBy.DisplayName)
}

func TestUpdateTask_LeavingCompletedClearsMetadata(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Collect generator", Status: "completed", DueDate: day(2025, 6, 9, 12)}, "u-ana")
	require.NoError(t, err)
	require.NotNil(t, created.CompletedAt)
	require.Equal(t, "u-ana", created.CompletedBy.ID)

	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	reopened, err := svc.UpdateTask(ctx, created.ID, TaskPatch{Status: ptr("in_progress"), CompletedAt: &at}, "u-ben")
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, reopened.Status)
	require.Nil(t, reopened.CompletedAt)
	require.Nil(t, reopened.CompletedBy)

	stored, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, stored.CompletedAt)
	require.Nil(t, stored.CompletedBy)
}

func TestUpdateTask_AssigneeSetReplace(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Load truck", DueDate: day(2025, 6, 11, 7), AssigneeIDs: []string{"u-ben"}}, "u-ana")
	require.NoError(t, err)

	// A patch without assignees leaves the set alone.
	view, err := svc.UpdateTask(ctx, created.ID, TaskPatch{Notes: ptr("bring straps")}, "u-ana")
	require.NoError(t, err)
	require.Equal(t, []string{"u-ben"}, view.AssigneeIDs)

	ids := []string{"u-cara", "u-dan"}
	for range 2 {
		view, err = svc.UpdateTask(ctx, created.ID, TaskPatch{AssigneeIDs: &ids}, "u-ana")
		require.NoError(t, err)
		require.Equal(t, ids, view.AssigneeIDs)
	}

	empty := []string{}
	view, err = svc.UpdateTask(ctx, created.ID, TaskPatch{AssigneeIDs: &empty}, "u-ana")
	require.NoError(t, err)
	require.Empty(t, view.AssigneeIDs)
	require.Empty(t, view.Assignees)
}

func TestUpdateTask_Errors(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.UpdateTask(ctx, "missing", TaskPatch{Title: ptr("x")}, "u-ana")
	require.ErrorIs(t, err, ErrNotFound)

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Load truck", DueDate: day(2025, 6, 11, 7)}, "u-ana")
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, created.ID, TaskPatch{Status: ptr("archived")}, "u-ana")
	require.ErrorIs(t, err, ErrValidation)
	var txErr *TransactionError
	require.False(t, errors.As(err, &txErr))
}

func TestUpdateTask_RollsBackWhenAssignmentInsertFails(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Pitch marquee", DueDate: day(2025, 6, 12, 8), AssigneeIDs: []string{"u-ben"}}, "u-ana")
	require.NoError(t, err)

	errInsert := errors.New("insert refused")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_assignments", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "task_assignments" {
			_ = tx.AddError(errInsert)
		}
	}))

	ids := []string{"u-cara"}
	_, err = svc.UpdateTask(ctx, created.ID, TaskPatch{Title: ptr("Renamed"), Status: ptr("completed"), AssigneeIDs: &ids}, "u-ana")
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, "update", txErr.Op)
	require.ErrorIs(t, err, errInsert)

	got, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Pitch marquee", got.Title)
	require.Equal(t, models.StatusPending, got.Status)
	require.Nil(t, got.CompletedAt)
	require.Equal(t, []string{"u-ben"}, got.AssigneeIDs)
}

func TestCreateTask_RollsBackWhenAssignmentInsertFails(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()

	errInsert := errors.New("insert refused")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_assignments", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "task_assignments" {
			_ = tx.AddError(errInsert)
		}
	}))

	_, err := svc.CreateTask(ctx, TaskDraft{Title: "Pitch marquee", DueDate: day(2025, 6, 12, 8), AssigneeIDs: []string{"u-ben", "u-cara"}}, "u-ana")
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, "create", txErr.Op)
	require.ErrorIs(t, err, errInsert)

	var taskRows, assignmentRows int64
	require.NoError(t, db.Model(&models.Task{}).Count(&taskRows).Error)
	require.NoError(t, db.Model(&models.Assignment{}).Count(&assignmentRows).Error)
	require.Zero(t, taskRows)
	require.Zero(t, assignmentRows)
}

func TestDeleteTask_RollsBackWhenTaskDeleteFails(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Strike marquee", DueDate: day(2025, 6, 14, 18), AssigneeIDs: []string{"u-ben", "u-cara"}}, "u-ana")
	require.NoError(t, err)

	errDelete := errors.New("delete refused")
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_task_delete", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "tasks" {
			_ = tx.AddError(errDelete)
		}
	}))

	err = svc.DeleteTask(ctx, created.ID)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, "delete", txErr.Op)
	require.ErrorIs(t, err, errDelete)

	got, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"u-ben", "u-cara"}, got.AssigneeIDs)

	var rows int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("task_id = ?", created.ID).Count(&rows).Error)
	require.EqualValues(t, 2, rows)
}

func TestDeleteTask_RemovesAssignments(t *testing.T) {
	svc, db, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "Strike marquee", DueDate: day(2025, 6, 14, 18), AssigneeIDs: []string{"u-ben", "u-cara"}}, "u-ana")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, created.ID))

	got, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	var rows int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("task_id = ?", created.ID).Count(&rows).Error)
	require.Zero(t, rows)

	require.ErrorIs(t, svc.DeleteTask(ctx, created.ID), ErrNotFound)
}

func TestListTasks_FiltersAndOrder(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	mk := func(title, typ, status string, due *time.Time) {
		_, err := svc.CreateTask(ctx, TaskDraft{Title: title, Type: typ, Status: status, DueDate: due}, "u-ana")
		require.NoError(t, err)
	}
	mk("late", "equipment", "pending", day(2025, 6, 20, 9))
	mk("early", "marquee", "in_progress", day(2025, 6, 11, 9))
	mk("middle", "marquee", "pending", day(2025, 6, 15, 9))

	all, err := svc.ListTasks(ctx, TaskFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"early", "middle", "late"}, titles(all))

	pending, err := svc.ListTasks(ctx, TaskFilters{Status: "Pending"})
	require.NoError(t, err)
	require.Equal(t, []string{"middle", "late"}, titles(pending))
	for _, v := range pending {
		require.Equal(t, models.StatusPending, v.Status)
	}

	inProgress, err := svc.ListTasks(ctx, TaskFilters{Status: "inProgress"})
	require.NoError(t, err)
	require.Equal(t, []string{"early"}, titles(inProgress))

	ranged, err := svc.ListTasks(ctx, TaskFilters{Type: "marquee", StartDate: day(2025, 6, 11, 9), EndDate: day(2025, 6, 15, 9)})
	require.NoError(t, err)
	require.Equal(t, []string{"early", "middle"}, titles(ranged))

	_, err = svc.ListTasks(ctx, TaskFilters{Priority: "meh"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListTasks(ctx, TaskFilters{StartDate: day(2025, 6, 15, 0), EndDate: day(2025, 6, 14, 0)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetTaskStats_BucketsAndDayBoundaries(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	svc, _, _, clock := setupService(t, WithLocation(loc))
	ctx := context.Background()

	// 15:00 UTC on the 10th is 01:00 on the 11th in loc.
	midnight := time.Date(2025, 6, 11, 0, 0, 0, 0, loc)
	require.True(t, clock.Now().After(midnight))

	mk := func(title, status string, due time.Time) {
		_, err := svc.CreateTask(ctx, TaskDraft{Title: title, Status: status, Priority: "high", DueDate: &due}, "u-ana")
		require.NoError(t, err)
	}
	mk("overdue", "pending", midnight.Add(-time.Second))
	mk("at midnight", "pending", midnight)
	mk("end of day", "delayed", midnight.Add(24*time.Hour-time.Second))
	mk("next midnight", "pending", midnight.Add(24*time.Hour))
	mk("done today", "completed", midnight.Add(3*time.Hour))

	stats, err := svc.GetTaskStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, stats.TotalTasks)
	require.EqualValues(t, 1, stats.OverdueTasks)
	require.EqualValues(t, 2, stats.TodayTasks)
	require.EqualValues(t, 1, stats.UpcomingTasks)

	all, err := svc.ListTasks(ctx, TaskFilters{})
	require.NoError(t, err)
	require.EqualValues(t, len(all), stats.TotalTasks)

	require.Equal(t, map[string]int64{"pending": 3, "in_progress": 0, "completed": 1, "delayed": 1}, stats.ByStatus)
	require.Equal(t, map[string]int64{"low": 0, "medium": 0, "high": 5, "urgent": 0}, stats.ByPriority)
	require.Len(t, stats.ByType, len(models.TaskTypes()))
	require.EqualValues(t, 5, stats.ByType["general"])
	require.Zero(t, stats.ByType["marquee"])
}

func TestGetTaskStats_EmptyStore(t *testing.T) {
	svc, _, _, _ := setupService(t)

	stats, err := svc.GetTaskStats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.TotalTasks)
	require.Len(t, stats.ByStatus, 4)
	for _, n := range stats.ByStatus {
		require.Zero(t, n)
	}
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// Clocks go forward on 30 March 2025.
	start, end := DayBounds(time.Date(2025, 3, 30, 12, 0, 0, 0, loc), loc)
	require.Equal(t, time.Date(2025, 3, 30, 0, 0, 0, 0, loc), start)
	require.Equal(t, 23*time.Hour, end.Sub(start))
}

func titles(views []TaskView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Title)
	}
	return out
}
