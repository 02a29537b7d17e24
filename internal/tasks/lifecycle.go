package tasks

import (
	"strings"
	"time"

	"fieldops-api/internal/models"
)

// TaskDraft is the input of CreateTask. Enum fields are external strings in
// any casing; blank means "use the default".
type TaskDraft struct {
	Title           string
	Description     string
	Type            string
	Status          string
	Priority        string
	DueDate         *time.Time
	Location        string
	Notes           string
	EventID         string
	InventoryItemID string
	CompletedAt     *time.Time
	AssigneeIDs     []string
}

// TaskPatch is the input of UpdateTask. Only non-nil fields are applied.
// EventID and InventoryItemID set to "" clear the reference. A non-nil
// AssigneeIDs replaces the whole assignment set (an empty slice clears it).
type TaskPatch struct {
	Title           *string
	Description     *string
	Type            *string
	Status          *string
	Priority        *string
	DueDate         *time.Time
	Location        *string
	Notes           *string
	EventID         *string
	InventoryItemID *string
	CompletedAt     *time.Time
	AssigneeIDs     *[]string
}

// newTask validates d and builds the row to insert. Assignments are left to the ledger.
func newTask(d TaskDraft, creatorID string, now time.Time) (*models.Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if d.DueDate == nil || d.DueDate.IsZero() {
		return nil, invalid("dueDate", "is required")
	}
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, invalid("createdBy", "is required")
	}

	typ := models.TypeGeneral
	if strings.TrimSpace(d.Type) != "" {
		v, err := models.ParseTaskType(d.Type)
		if err != nil {
			return nil, invalid("type", "%q is not a task type", d.Type)
		}
		typ = v
	}
	status := models.StatusPending
	if strings.TrimSpace(d.Status) != "" {
		v, err := models.ParseTaskStatus(d.Status)
		if err != nil {
			return nil, invalid("status", "%q is not a task status", d.Status)
		}
		status = v
	}
	priority := models.PriorityMedium
	if strings.TrimSpace(d.Priority) != "" {
		v, err := models.ParseTaskPriority(d.Priority)
		if err != nil {
			return nil, invalid("priority", "%q is not a task priority", d.Priority)
		}
		priority = v
	}

	task := &models.Task{
		Title:           title,
		Description:     d.Description,
		Type:            typ,
		Status:          status,
		Priority:        priority,
		DueDate:         *d.DueDate,
		Location:        d.Location,
		Notes:           d.Notes,
		EventID:         optionalRef(d.EventID),
		InventoryItemID: optionalRef(d.InventoryItemID),
		CreatedBy:       creatorID,
	}
	settleCompletion(task, false, d.CompletedAt, creatorID, now)
	return task, nil
}

// applyPatch mutates task in place. Every field is validated before anything
// is written, so a rejected patch leaves task untouched.
func applyPatch(task *models.Task, p TaskPatch, actorID string, now time.Time) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return invalid("actorId", "is required")
	}

	var (
		title    string
		typ      models.TaskType
		status   models.TaskStatus
		priority models.TaskPriority
		err      error
	)
	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
		if title == "" {
			return invalid("title", "cannot be empty")
		}
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return invalid("dueDate", "cannot be empty")
	}
	if p.Type != nil {
		if typ, err = models.ParseTaskType(*p.Type); err != nil {
			return invalid("type", "%q is not a task type", *p.Type)
		}
	}
	if p.Status != nil {
		if status, err = models.ParseTaskStatus(*p.Status); err != nil {
			return invalid("status", "%q is not a task status", *p.Status)
		}
	}
	if p.Priority != nil {
		if priority, err = models.ParseTaskPriority(*p.Priority); err != nil {
			return invalid("priority", "%q is not a task priority", *p.Priority)
		}
	}

	wasCompleted := task.IsCompleted()

	if p.Title != nil {
		task.Title = title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Type != nil {
		task.Type = typ
	}
	if p.Status != nil {
		task.Status = status
	}
	if p.Priority != nil {
		task.Priority = priority
	}
	if p.DueDate != nil {
		task.DueDate = *p.DueDate
	}
	if p.Location != nil {
		task.Location = *p.Location
	}
	if p.Notes != nil {
		task.Notes = *p.Notes
	}
	if p.EventID != nil {
		task.EventID = optionalRef(*p.EventID)
	}
	if p.InventoryItemID != nil {
		task.InventoryItemID = optionalRef(*p.InventoryItemID)
	}

	settleCompletion(task, wasCompleted, p.CompletedAt, actorID, now)
	return nil
}

// settleCompletion is the only place completion metadata is written.
// CompletedAt and CompletedBy are set exactly when the task is completed:
//   - entering completed stamps the explicit time (or now) and the actor;
//   - leaving completed clears both, whatever the caller supplied;
//   - staying completed keeps the completer and accepts an explicit new time.
func settleCompletion(task *models.Task, wasCompleted bool, explicitAt *time.Time, actorID string, now time.Time) {
	if !task.IsCompleted() {
		task.CompletedAt = nil
		task.CompletedBy = nil
		return
	}

	if !wasCompleted || task.CompletedAt == nil || task.CompletedBy == nil {
		at := now
		if explicitAt != nil && !explicitAt.IsZero() {
			at = *explicitAt
		}
		by := actorID
		task.CompletedAt = &at
		task.CompletedBy = &by
		return
	}

	if explicitAt != nil && !explicitAt.IsZero() {
		at := *explicitAt
		task.CompletedAt = &at
	}
}

func optionalRef(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
