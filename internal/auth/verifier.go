package auth

import (
	"context"

	"fieldops-api/internal/models"
)

// Principal is the caller identified by a bearer token. UserID is the actor
// id recorded on tasks, so it must come from the same id space the identity
// directory resolves.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// TokenVerifier turns a bearer token into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// JWTVerifier verifies tokens issued by GenerateToken for local accounts.
type JWTVerifier struct{}

// Verify implements TokenVerifier.
func (JWTVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	claims, err := ValidateToken(token)
	if err != nil {
		return nil, err
	}
	role := claims.Role
	if role == "" {
		role = models.RoleStaff
	}
	return &Principal{UserID: claims.UserID, Username: claims.Username, Role: role}, nil
}
