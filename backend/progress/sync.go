package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPushFailed means every push attempt was rejected or unreachable.
var ErrPushFailed = errors.New("push progress failed")

// Status is the sync state surfaced to the UI. It never blocks anything.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

// Clock supplies time and backoff waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy bounds push retries. Attempt n waits n*BackoffStep before the next.
type RetryPolicy struct {
	MaxRetries  int
	BackoffStep time.Duration
}

// DefaultRetryPolicy makes three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BackoffStep: time.Second}
}

// Backoff is the wait after failed attempt n (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffStep
}

// Engine reconciles a LocalStore with a RemoteStore. The local store is only
// ever written through the engine; the remote store is shared with other
// devices and relies on the monotonic merge instead of locks.
type Engine struct {
	local    *LocalStore
	remote   RemoteStore
	clock    Clock
	retry    RetryPolicy
	logger   *zap.Logger
	onStatus func(Status)

	localMu sync.Mutex

	mu       sync.Mutex
	email    string
	status   Status
	inflight int
	failed   bool

	wg sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithRetryPolicy(p RetryPolicy) EngineOption {
	return func(e *Engine) {
		e.retry = p
	}
}

func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStatusListener registers fn to be called on every status change.
func WithStatusListener(fn func(Status)) EngineOption {
	return func(e *Engine) {
		e.onStatus = fn
	}
}

// NewEngine creates an engine in the idle state with no identity.
func NewEngine(local *LocalStore, remote RemoteStore, opts ...EngineOption) *Engine {
	e := &Engine{
		local:  local,
		remote: remote,
		clock:  SystemClock(),
		retry:  DefaultRetryPolicy(),
		logger: zap.NewNop(),
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Local returns the store the engine writes to.
func (e *Engine) Local() *LocalStore { return e.local }

// Clock returns the engine's clock.
func (e *Engine) Clock() Clock { return e.clock }

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Email returns the identity in use, or "" in local-only mode.
func (e *Engine) Email() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.email
}

// SetIdentity switches between local-only mode and synced mode.
func (e *Engine) SetIdentity(id Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id.Known() {
		e.email = NormalizeEmail(id.Email)
	} else {
		e.email = ""
	}
}

// Update applies fn to the local completion map and stores the result
// before returning it.
func (e *Engine) Update(fn func(CompletionMap) CompletionMap) CompletionMap {
	e.localMu.Lock()
	defer e.localMu.Unlock()
	next := fn(e.local.Completion())
	e.local.SetCompletion(next)
	return next.Clone()
}

// Bootstrap runs the one-time merge for a newly known identity: the local
// and remote maps are OR-merged, the result is written locally, and pushed
// (with retries) if local had completions the server lacked. A failed fetch
// leaves local state untouched and returns it with the error.
func (e *Engine) Bootstrap(ctx context.Context, id Identity) (CompletionMap, error) {
	e.SetIdentity(id)
	email := e.Email()
	if email == "" {
		return e.local.Completion(), nil
	}

	e.setStatus(StatusSyncing)
	remote, err := e.remote.Fetch(ctx, email)
	if err != nil {
		e.logger.Warn("bootstrap fetch failed, staying local", zap.String("email", email), zap.Error(err))
		e.setStatus(StatusError)
		return e.local.Completion(), err
	}

	var needsPush bool
	merged := e.Update(func(local CompletionMap) CompletionMap {
		needsPush = HasUnsynced(local, remote)
		return Merge(local, remote)
	})

	if needsPush && !e.pushWithRetry(ctx, email, merged) {
		e.setStatus(StatusError)
		return merged, ErrPushFailed
	}

	e.logger.Info("bootstrap merge done",
		zap.String("email", email),
		zap.Int("keys", len(merged)),
		zap.Bool("pushed", needsPush),
	)
	e.setStatus(StatusSynced)
	return merged, nil
}

// Push sends m to the server in the background with retries. It is a no-op
// in local-only mode. Use Wait to join outstanding pushes.
func (e *Engine) Push(ctx context.Context, m CompletionMap) {
	email := e.Email()
	if email == "" {
		return
	}

	e.mu.Lock()
	e.inflight++
	notify := e.transitionLocked(StatusSyncing)
	e.mu.Unlock()
	notify()

	payload := m.Clone()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ok := e.pushWithRetry(ctx, email, payload)
		e.finishPush(ok)
	}()
}

// Wait blocks until every push started by Push has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) pushWithRetry(ctx context.Context, email string, m CompletionMap) bool {
	for attempt := 1; ; attempt++ {
		if e.remote.Push(ctx, email, m) {
			return true
		}
		if attempt > e.retry.MaxRetries {
			e.logger.Warn("push gave up", zap.String("email", email), zap.Int("attempts", attempt))
			return false
		}

		wait := e.retry.Backoff(attempt)
		e.logger.Debug("push failed, retrying",
			zap.String("email", email),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
		)
		if err := e.clock.Sleep(ctx, wait); err != nil {
			return false
		}
	}
}

// finishPush settles the status once the last concurrent push is done. The
// decision and the store happen under one lock so a push started meanwhile
// keeps its syncing status.
func (e *Engine) finishPush(ok bool) {
	e.mu.Lock()
	e.inflight--
	if !ok {
		e.failed = true
	}
	if e.inflight > 0 {
		e.mu.Unlock()
		return
	}
	next := StatusSynced
	if e.failed {
		next = StatusError
	}
	e.failed = false
	notify := e.transitionLocked(next)
	e.mu.Unlock()

	notify()
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	notify := e.transitionLocked(s)
	e.mu.Unlock()

	notify()
}

// transitionLocked stores s and returns the listener call to make once mu is
// released. e.mu must be held.
func (e *Engine) transitionLocked(s Status) func() {
	changed := e.status != s
	e.status = s
	fn := e.onStatus
	if !changed || fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}
