package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a task row does not exist.
var ErrNotFound = errors.New("task not found")

// TaskFilters narrows a task listing. Nil fields are not applied; due date
// bounds are inclusive.
type TaskFilters struct {
	Type     *models.TaskType
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	DueFrom  *time.Time
	DueTo    *time.Time
}

// TaskStore persists tasks. Use WithTx to bind it to a transaction.
type TaskStore struct {
	db *gorm.DB
}

// NewTaskStore creates a new task store.
func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// WithTx returns a store that runs every statement on tx.
func (s *TaskStore) WithTx(tx *gorm.DB) *TaskStore {
	return &TaskStore{db: tx}
}

// Create inserts a task row. Assignments are written by the ledger, never here.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	normalizeTimes(task)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update writes every mutable column of task, including cleared ones.
// ID, creator and creation time are never rewritten.
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	normalizeTimes(task)
	result := s.db.WithContext(ctx).
		Model(task).
		Select("*").
		Omit("id", "created_at", "created_by", clause.Associations).
		Updates(task)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the task row.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID loads a task with its current assignments.
func (s *TaskStore) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignments", orderAssignments).
		First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// Find lists tasks matching f ordered by due date ascending.
func (s *TaskStore) Find(ctx context.Context, f TaskFilters) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Model(&models.Task{})
	if f.Type != nil {
		query = query.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		query = query.Where("priority = ?", *f.Priority)
	}
	if f.DueFrom != nil {
		query = query.Where("due_date >= ?", f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		query = query.Where("due_date <= ?", f.DueTo.UTC())
	}

	tasks := make([]models.Task, 0)
	err := query.
		Preload("Assignments", orderAssignments).
		Order("due_date asc, created_at asc, id asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, nil
}

// Count returns the number of task rows.
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Task{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return total, nil
}

// groupable lists the columns CountBy accepts.
var groupable = map[string]bool{"status": true, "type": true, "priority": true}

// CountBy returns task counts grouped by one of the enum columns.
func (s *TaskStore) CountBy(ctx context.Context, column string) (map[string]int64, error) {
	if !groupable[column] {
		return nil, fmt.Errorf("cannot group tasks by %q", column)
	}

	type row struct {
		Value string
		Count int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by %s: %w", column, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Value] = r.Count
	}
	return counts, nil
}

// CountOpenDue counts non-completed tasks due in the half-open range [from, to).
// A nil bound leaves that side open.
func (s *TaskStore) CountOpenDue(ctx context.Context, from, to *time.Time) (int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("status <> ?", models.StatusCompleted)
	if from != nil {
		query = query.Where("due_date >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("due_date < ?", to.UTC())
	}

	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count open tasks: %w", err)
	}
	return n, nil
}

func orderAssignments(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// normalizeTimes stores instants in UTC so lexical comparisons in SQLite
// match chronological order.
func normalizeTimes(task *models.Task) {
	task.DueDate = task.DueDate.UTC()
	if task.CompletedAt != nil {
		t := task.CompletedAt.UTC()
		task.CompletedAt = &t
	}
}
