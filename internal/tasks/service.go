package tasks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fieldops-api/internal/identity"
	"fieldops-api/internal/models"
	"fieldops-api/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLookupConcurrency bounds parallel identity lookups when no option is given.
const DefaultLookupConcurrency = 8

// Service runs the task lifecycle and read paths. Every mutation is a single
// transaction; reads are enriched after the database work is done.
type Service struct {
	db       *gorm.DB
	tasks    *store.TaskStore
	ledger   *store.AssignmentLedger
	enricher *Enricher
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
	limit    int
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone used for calendar-day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLookupConcurrency bounds concurrent identity lookups during enrichment.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewService wires the stores and enricher around db. dir may be nil, in
// which case every actor renders as UnknownUser.
func NewService(db *gorm.DB, dir identity.Directory, opts ...Option) *Service {
	s := &Service{
		db:       db,
		tasks:    store.NewTaskStore(db),
		ledger:   store.NewAssignmentLedger(db),
		location: time.Local,
		now:      time.Now,
		logger:   slog.Default(),
		limit:    DefaultLookupConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enricher = NewEnricher(dir, s.limit, s.logger)
	return s
}

// Location returns the zone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.location
}

// CreateTask validates the draft, then inserts the task and its assignments
// in one transaction.
func (s *Service) CreateTask(ctx context.Context, draft TaskDraft, creatorID string) (*TaskView, error) {
	now := s.now()
	task, err := newTask(draft, creatorID, now)
	if err != nil {
		return nil, err
	}
	task.ID = uuid.NewString()
	task.CreatedAt = now.UTC()
	task.UpdatedAt = now.UTC()

	var saved *models.Task
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}
		if _, err := s.ledger.WithTx(tx).Replace(ctx, task.ID, draft.AssigneeIDs); err != nil {
			return err
		}
		saved, err = s.tasks.WithTx(tx).FindByID(ctx, task.ID)
		return err
	})
	if err != nil {
		s.logger.Error("create task failed", "error", err)
		return nil, mutationError("create", err)
	}

	s.logger.Info("task created", "task_id", saved.ID, "created_by", saved.CreatedBy, "status", saved.Status.String())
	view := s.enricher.EnrichOne(ctx, *saved)
	return &view, nil
}

// UpdateTask applies patch on behalf of actorID. The task row and, when the
// patch names assignees, the assignment set change together or not at all.
func (s *Service) UpdateTask(ctx context.Context, id string, patch TaskPatch, actorID string) (*TaskView, error) {
	now := s.now()

	var saved *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		task, err := tasks.FindByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := applyPatch(task, patch, actorID, now); err != nil {
			return err
		}
		task.UpdatedAt = now.UTC()
		if err := tasks.Update(ctx, task); err != nil {
			return notFound(err)
		}
		if patch.AssigneeIDs != nil {
			if _, err := s.ledger.WithTx(tx).Replace(ctx, task.ID, *patch.AssigneeIDs); err != nil {
				return err
			}
		}
		saved, err = tasks.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
			s.logger.Error("update task failed", "task_id", id, "error", err)
		}
		return nil, mutationError("update", err)
	}

	s.logger.Info("task updated", "task_id", id, "actor_id", actorID, "status", saved.Status.String())
	view := s.enricher.EnrichOne(ctx, *saved)
	return &view, nil
}

// UpdateStatus is UpdateTask with only the status set.
func (s *Service) UpdateStatus(ctx context.Context, id, status, actorID string) (*TaskView, error) {
	return s.UpdateTask(ctx, id, TaskPatch{Status: &status}, actorID)
}

// DeleteTask removes the task and its assignments in one transaction.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.tasks.WithTx(tx).FindByID(ctx, id); err != nil {
			return notFound(err)
		}
		if err := s.ledger.WithTx(tx).DeleteForTask(ctx, id); err != nil {
			return err
		}
		return notFound(s.tasks.WithTx(tx).Delete(ctx, id))
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("delete task failed", "task_id", id, "error", err)
		}
		return mutationError("delete", err)
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// TaskFilters narrows ListTasks. Blank strings and nil dates are not applied;
// date bounds are inclusive.
type TaskFilters struct {
	Type      string
	Status    string
	Priority  string
	StartDate *time.Time
	EndDate   *time.Time
}

// ListTasks returns the matching tasks ordered by due date, enriched.
func (s *Service) ListTasks(ctx context.Context, filters TaskFilters) ([]TaskView, error) {
	f, err := filters.resolve()
	if err != nil {
		return nil, err
	}
	found, err := s.tasks.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, found), nil
}

// GetTask returns the enriched task, or nil without error when it does not exist.
func (s *Service) GetTask(ctx context.Context, id string) (*TaskView, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := s.enricher.EnrichOne(ctx, *task)
	return &view, nil
}

func (f TaskFilters) resolve() (store.TaskFilters, error) {
	var out store.TaskFilters
	if strings.TrimSpace(f.Type) != "" {
		v, err := models.ParseTaskType(f.Type)
		if err != nil {
			return out, invalid("type", "%q is not a task type", f.Type)
		}
		out.Type = &v
	}
	if strings.TrimSpace(f.Status) != "" {
		v, err := models.ParseTaskStatus(f.Status)
		if err != nil {
			return out, invalid("status", "%q is not a task status", f.Status)
		}
		out.Status = &v
	}
	if strings.TrimSpace(f.Priority) != "" {
		v, err := models.ParseTaskPriority(f.Priority)
		if err != nil {
			return out, invalid("priority", "%q is not a task priority", f.Priority)
		}
		out.Priority = &v
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return out, invalid("endDate", "is before startDate")
	}
	out.DueFrom = f.StartDate
	out.DueTo = f.EndDate
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
