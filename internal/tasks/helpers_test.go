package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldops-api/internal/identity"
	"fieldops-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeDirectory resolves ids from a fixed map and counts every call.
type fakeDirectory struct {
	mu     sync.Mutex
	people map[string]identity.Identity
	fail   map[string]error
	calls  map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		people: map[string]identity.Identity{
			"u-ana":  {ID: "u-ana", DisplayName: "Ana Field", Email: "ana@example.com"},
			"u-ben":  {ID: "u-ben", DisplayName: "Ben Crew"},
			"u-cara": {ID: "u-cara", DisplayName: "Cara Lead"},
			"u-dan":  {ID: "u-dan", DisplayName: ""},
		},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

func (d *fakeDirectory) Resolve(_ context.Context, id string) (identity.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[id]++
	if err, ok := d.fail[id]; ok {
		return identity.Identity{}, &identity.LookupError{ActorID: id, Err: err}
	}
	who, ok := d.people[id]
	if !ok {
		return identity.Identity{}, &identity.LookupError{ActorID: id, Err: identity.ErrNotFound}
	}
	return who, nil
}

func (d *fakeDirectory) callsFor(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[id]
}

var errDirectoryDown = errors.New("directory unavailable")

// fixedClock returns a clock that reports t until advanced.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupService(t *testing.T, opts ...Option) (*Service, *gorm.DB, *fakeDirectory, *fixedClock) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	dir := newFakeDirectory()
	clock := &fixedClock{t: time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithLocation(time.UTC)}, opts...)
	return NewService(db, dir, opts...), db, dir, clock
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}
