package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fieldops-api/internal/identity"
	"fieldops-api/internal/models"

	"golang.org/x/sync/errgroup"
)

// UnknownUser labels an actor whose identity could not be resolved.
const UnknownUser = "Unknown User"

// ActorRef is an actor id with its resolved display data.
type ActorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// TaskView is the display-ready projection of a task. It is rebuilt on every
// read and never persisted. AssigneeIDs carries the raw ids so clients can send
// them back unchanged in an update; Assignees carries the same ids, resolved.
type TaskView struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Type            models.TaskType     `json:"type"`
	Status          models.TaskStatus   `json:"status"`
	Priority        models.TaskPriority `json:"priority"`
	DueDate         time.Time           `json:"dueDate"`
	Location        string              `json:"location"`
	Notes           string              `json:"notes"`
	EventID         *string             `json:"eventId,omitempty"`
	InventoryItemID *string             `json:"inventoryItemId,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	CreatedBy       ActorRef            `json:"createdBy"`
	CompletedBy     *ActorRef           `json:"completedBy,omitempty"`
	AssigneeIDs     []string            `json:"assigneeIds"`
	Assignees       []ActorRef          `json:"assignees"`
}

// Enricher attaches display names to the actor ids of a batch of tasks.
// It keeps no state between calls.
type Enricher struct {
	dir    identity.Directory
	limit  int
	logger *slog.Logger
}

// NewEnricher creates an enricher issuing at most limit concurrent lookups.
func NewEnricher(dir identity.Directory, limit int, logger *slog.Logger) *Enricher {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{dir: dir, limit: limit, logger: logger}
}

// Enrich resolves every distinct actor id referenced by tasks once and builds
// the views. A failed lookup degrades that actor to UnknownUser; it never
// fails the batch.
func (e *Enricher) Enrich(ctx context.Context, tasks []models.Task) []TaskView {
	names := e.resolve(ctx, collectActorIDs(tasks))

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, buildView(&tasks[i], names))
	}
	return views
}

// EnrichOne is Enrich for a single task.
func (e *Enricher) EnrichOne(ctx context.Context, task models.Task) TaskView {
	return e.Enrich(ctx, []models.Task{task})[0]
}

func (e *Enricher) resolve(ctx context.Context, ids []string) map[string]ActorRef {
	resolved := make(map[string]ActorRef, len(ids))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.limit)
	for _, id := range ids {
		g.Go(func() error {
			ref := e.lookup(ctx, id)
			mu.Lock()
			resolved[id] = ref
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return resolved
}

func (e *Enricher) lookup(ctx context.Context, id string) ActorRef {
	unknown := ActorRef{ID: id, DisplayName: UnknownUser}
	if e.dir == nil {
		return unknown
	}
	who, err := e.dir.Resolve(ctx, id)
	if err != nil {
		e.logger.Warn("identity lookup failed", "actor_id", id, "error", err)
		return unknown
	}
	if who.DisplayName == "" {
		who.DisplayName = UnknownUser
	}
	return ActorRef{ID: id, DisplayName: who.DisplayName, Email: who.Email}
}

// collectActorIDs returns the distinct assignee, creator and completer ids of
// the batch in first-seen order.
func collectActorIDs(tasks []models.Task) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range tasks {
		add(tasks[i].CreatedBy)
		if tasks[i].CompletedBy != nil {
			add(*tasks[i].CompletedBy)
		}
		for _, a := range tasks[i].Assignments {
			add(a.ActorID)
		}
	}
	return ids
}

func buildView(t *models.Task, names map[string]ActorRef) TaskView {
	ref := func(id string) ActorRef {
		if r, ok := names[id]; ok {
			return r
		}
		return ActorRef{ID: id, DisplayName: UnknownUser}
	}

	view := TaskView{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Type:            t.Type,
		Status:          t.Status,
		Priority:        t.Priority,
		DueDate:         t.DueDate,
		Location:        t.Location,
		Notes:           t.Notes,
		EventID:         t.EventID,
		InventoryItemID: t.InventoryItemID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
		CreatedBy:       ref(t.CreatedBy),
		AssigneeIDs:     t.AssigneeIDs(),
		Assignees:       make([]ActorRef, 0, len(t.Assignments)),
	}
	if t.CompletedBy != nil {
		r := ref(*t.CompletedBy)
		view.CompletedBy = &r
	}
	for _, id := range view.AssigneeIDs {
		view.Assignees = append(view.Assignees, ref(id))
	}
	return view
}
