package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appauth "fieldops-api/internal/auth"
	"fieldops-api/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirebaseDirectory resolves actors (Firebase UIDs) through Firebase Auth.
type FirebaseDirectory struct {
	client *auth.Client
}

// NewFirebaseDirectory initialises a Firebase app from a service account file.
func NewFirebaseDirectory(ctx context.Context, credentialsPath string) (*FirebaseDirectory, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
	}
	return &FirebaseDirectory{client: client}, nil
}

// Resolve implements Directory.
func (d *FirebaseDirectory) Resolve(ctx context.Context, actorID string) (Identity, error) {
	rec, err := d.client.GetUser(ctx, actorID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return Identity{}, &LookupError{ActorID: actorID, Err: ErrNotFound}
		}
		return Identity{}, &LookupError{ActorID: actorID, Err: err}
	}
	return fromRecord(rec), nil
}

// List implements Lister by paging through every Firebase user.
func (d *FirebaseDirectory) List(ctx context.Context) ([]Identity, error) {
	var out []Identity
	it := d.client.Users(ctx, "")
	for {
		u, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list firebase users: %w", err)
		}
		out = append(out, fromRecord(u.UserRecord))
	}
	return out, nil
}

// fromRecord falls back to the email, then the UID, when no display name is set.
func fromRecord(rec *auth.UserRecord) Identity {
	if rec == nil || rec.UserInfo == nil {
		return Identity{}
	}
	name := rec.DisplayName
	if name == "" {
		name = rec.Email
	}
	if name == "" {
		name = rec.UID
	}
	return Identity{ID: rec.UID, DisplayName: name, Email: rec.Email}
}

// Verify implements auth.TokenVerifier for Firebase ID tokens. The Firebase
// UID becomes the actor id, the same id Resolve and List work with.
func (d *FirebaseDirectory) Verify(ctx context.Context, idToken string) (*appauth.Principal, error) {
	tok, err := d.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify firebase token: %w", err)
	}
	return principalFromToken(tok), nil
}

// principalFromToken reads the role from the "role" custom claim; anything
// else is treated as staff.
func principalFromToken(tok *auth.Token) *appauth.Principal {
	p := &appauth.Principal{UserID: tok.UID, Role: models.RoleStaff}
	if role, ok := tok.Claims["role"].(string); ok && models.ValidRole(strings.ToLower(role)) {
		p.Role = strings.ToLower(role)
	}
	for _, key := range []string{"name", "email"} {
		if v, ok := tok.Claims[key].(string); ok && v != "" {
			p.Username = v
			break
		}
	}
	if p.Username == "" {
		p.Username = tok.UID
	}
	return p
}
