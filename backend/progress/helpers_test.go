package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeRemote stores maps per email and merges pushes the way the server does.
type fakeRemote struct {
	mu         sync.Mutex
	stored     map[string]CompletionMap
	fetchErr   error
	failPushes int
	fetches    int
	attempts   int
	accepted   []CompletionMap
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{stored: make(map[string]CompletionMap)}
}

var errOffline = errors.New("offline")

func (r *fakeRemote) Fetch(_ context.Context, email string) (CompletionMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if m, ok := r.stored[email]; ok {
		return m.Clone(), nil
	}
	return CompletionMap{}, nil
}

func (r *fakeRemote) Push(_ context.Context, email string, m CompletionMap) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.failPushes > 0 {
		r.failPushes--
		return false
	}
	r.stored[email] = Merge(r.stored[email], m)
	r.accepted = append(r.accepted, m.Clone())
	return true
}

func (r *fakeRemote) Stored(email string) CompletionMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored[email].Clone()
}

func (r *fakeRemote) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *fakeRemote) Accepted() []CompletionMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CompletionMap(nil), r.accepted...)
}

// failingBackend rejects every write and read.
type failingBackend struct{}

var errDisk = errors.New("disk full")

func (failingBackend) Get(string) (string, bool, error) { return "", false, errDisk }
func (failingBackend) Set(string, string) error         { return errDisk }

var epoch = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func newTestEngine(remote RemoteStore, opts ...EngineOption) (*Engine, *fakeClock) {
	clock := newFakeClock(epoch)
	store := NewLocalStore(NewMemoryBackend(), "test")
	opts = append([]EngineOption{WithClock(clock)}, opts...)
	return NewEngine(store, remote, opts...), clock
}

func signedIn(email string) Identity {
	return Identity{Authenticated: true, Email: email}
}
