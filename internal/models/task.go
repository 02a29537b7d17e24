package models

import (
	"time"
)

// Task is a unit of schedulable field work (marquee setup, toilet servicing, deliveries...)
type Task struct {
	ID              string       `json:"id" gorm:"primaryKey;size:36"`
	Title           string       `json:"title" gorm:"size:255;not null"`
	Description     string       `json:"description" gorm:"type:text"`
	Type            TaskType     `json:"type" gorm:"type:varchar(16);not null;index"`
	Status          TaskStatus   `json:"status" gorm:"type:varchar(16);not null;index"`
	Priority        TaskPriority `json:"priority" gorm:"type:varchar(16);not null;index"`
	DueDate         time.Time    `json:"dueDate" gorm:"column:due_date;not null;index"`
	Location        string       `json:"location"`
	Notes           string       `json:"notes" gorm:"type:text"`
	EventID         *string      `json:"eventId,omitempty" gorm:"column:event_id;size:64;index"`
	InventoryItemID *string      `json:"inventoryItemId,omitempty" gorm:"column:inventory_item_id;size:64;index"`
	CreatedBy       string       `json:"createdBy" gorm:"column:created_by;size:128;not null;index"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty" gorm:"column:completed_at"`
	CompletedBy     *string      `json:"completedBy,omitempty" gorm:"column:completed_by;size:128"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	Assignments     []Assignment `json:"assignments,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// IsCompleted reports whether the task is in the completed state.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// AssigneeIDs returns the assigned actor ids in assignment order.
func (t *Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.ActorID)
	}
	return ids
}
