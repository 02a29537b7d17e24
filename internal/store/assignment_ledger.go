package store

import (
	"context"
	"fmt"
	"strings"

	"fieldops-api/internal/models"

	"gorm.io/gorm"
)

// AssignmentLedger maintains the task <-> actor relation with set semantics.
type AssignmentLedger struct {
	db *gorm.DB
}

// NewAssignmentLedger creates a new ledger.
func NewAssignmentLedger(db *gorm.DB) *AssignmentLedger {
	return &AssignmentLedger{db: db}
}

// WithTx returns a ledger that runs every statement on tx.
func (l *AssignmentLedger) WithTx(tx *gorm.DB) *AssignmentLedger {
	return &AssignmentLedger{db: tx}
}

// Replace makes actorIDs the complete assignment set of taskID: every existing
// row is deleted and one row per distinct id inserted. Delete and insert run in
// one transaction (a savepoint when the ledger is already bound to one).
func (l *AssignmentLedger) Replace(ctx context.Context, taskID string, actorIDs []string) ([]models.Assignment, error) {
	ids := DedupeActorIDs(actorIDs)
	rows := make([]models.Assignment, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, models.Assignment{TaskID: taskID, ActorID: id, Position: i})
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Assignment{}).Error; err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert assignments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteForTask removes every assignment row of taskID.
func (l *AssignmentLedger) DeleteForTask(ctx context.Context, taskID string) error {
	if err := l.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.Assignment{}).Error; err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

// ActorIDs returns who is currently assigned to taskID, in assignment order.
func (l *AssignmentLedger) ActorIDs(ctx context.Context, taskID string) ([]string, error) {
	ids := make([]string, 0)
	err := l.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("task_id = ?", taskID).
		Order("position asc").
		Pluck("actor_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return ids, nil
}

// DedupeActorIDs trims ids, drops blanks and keeps the first occurrence of each.
func DedupeActorIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
