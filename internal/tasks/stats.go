package tasks

import (
	"context"
	"fmt"
	"time"

	"fieldops-api/internal/models"
	"fieldops-api/internal/store"

	"gorm.io/gorm"
)

// StatsSummary is a dashboard snapshot. Every enum value has a bucket, zero
// included. Each non-completed task is in exactly one of Overdue, Today and
// Upcoming.
type StatsSummary struct {
	TotalTasks    int64            `json:"totalTasks"`
	TodayTasks    int64            `json:"todayTasks"`
	UpcomingTasks int64            `json:"upcomingTasks"`
	OverdueTasks  int64            `json:"overdueTasks"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByType        map[string]int64 `json:"byType"`
	ByPriority    map[string]int64 `json:"byPriority"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

// GetTaskStats computes the summary as of now, reading inside one transaction
// so the counts agree with each other.
func (s *Service) GetTaskStats(ctx context.Context) (*StatsSummary, error) {
	now := s.now()
	start, end := DayBounds(now, s.location)

	summary := &StatsSummary{
		ByStatus:    zeroBuckets(models.TaskStatuses()),
		ByType:      zeroBuckets(models.TaskTypes()),
		ByPriority:  zeroBuckets(models.TaskPriorities()),
		GeneratedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)

		var err error
		if summary.TotalTasks, err = tasks.Count(ctx); err != nil {
			return err
		}
		if summary.OverdueTasks, err = tasks.CountOpenDue(ctx, nil, &start); err != nil {
			return err
		}
		if summary.TodayTasks, err = tasks.CountOpenDue(ctx, &start, &end); err != nil {
			return err
		}
		if summary.UpcomingTasks, err = tasks.CountOpenDue(ctx, &end, nil); err != nil {
			return err
		}

		groups := []struct {
			column  string
			buckets map[string]int64
		}{
			{"status", summary.ByStatus},
			{"type", summary.ByType},
			{"priority", summary.ByPriority},
		}
		for _, g := range groups {
			if err := fillBuckets(ctx, tasks, g.column, g.buckets); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute task stats: %w", err)
	}
	return summary, nil
}

// DayBounds returns local midnight of t's calendar day in loc and the
// following midnight. DST days are 23 or 25 hours long.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func zeroBuckets[E fmt.Stringer](values []E) map[string]int64 {
	buckets := make(map[string]int64, len(values))
	for _, v := range values {
		buckets[v.String()] = 0
	}
	return buckets
}

func fillBuckets(ctx context.Context, tasks *store.TaskStore, column string, buckets map[string]int64) error {
	counts, err := tasks.CountBy(ctx, column)
	if err != nil {
		return err
	}
	for name, n := range counts {
		if _, known := buckets[name]; known {
			buckets[name] = n
		}
	}
	return nil
}
