package models

import "time"

// Assignment links a task to a staff member. It has no lifecycle of its own and
// is removed together with its task.
type Assignment struct {
	TaskID    string    `json:"taskId" gorm:"primaryKey;size:36"`
	ActorID   string    `json:"actorId" gorm:"primaryKey;size:128;index"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for Assignment Model
func (Assignment) TableName() string {
	return "task_assignments"
}
