package identity

import (
	"context"
	"errors"
	"fmt"

	"fieldops-api/internal/models"

	"gorm.io/gorm"
)

// UserDirectory resolves actors from the local users table.
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates a directory backed by the users table.
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// Resolve implements Directory.
func (d *UserDirectory) Resolve(ctx context.Context, actorID string) (Identity, error) {
	var u models.User
	if err := d.db.WithContext(ctx).First(&u, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, &LookupError{ActorID: actorID, Err: ErrNotFound}
		}
		return Identity{}, &LookupError{ActorID: actorID, Err: err}
	}
	return fromUser(u), nil
}

// List implements Lister.
func (d *UserDirectory) List(ctx context.Context) ([]Identity, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Order("username asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]Identity, 0, len(users))
	for _, u := range users {
		out = append(out, fromUser(u))
	}
	return out, nil
}

func fromUser(u models.User) Identity {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return Identity{ID: u.ID, DisplayName: name, Email: u.Email}
}
