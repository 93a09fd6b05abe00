package progress

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Backend persists string values by key. It is the per-profile storage the
// LocalStore sits on.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// MemoryBackend is a Backend that lives only as long as the process.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// LocalStore is the local cache of one feature's completion map and
// assessment results. Reads never fail: missing or corrupt data reads as
// empty. Writes update the in-memory snapshot first, so a failing backend
// only costs persistence across restarts.
type LocalStore struct {
	backend Backend
	ns      string
	logger  *zap.Logger

	mu          sync.Mutex
	completion  CompletionMap
	assessments TrackedAssessments
}

// LocalStoreOption configures a LocalStore.
type LocalStoreOption func(*LocalStore)

// WithStoreLogger sets the logger used to report backend failures.
func WithStoreLogger(logger *zap.Logger) LocalStoreOption {
	return func(s *LocalStore) {
		s.logger = logger
	}
}

// NewLocalStore creates a store whose entries are namespaced by ns, so two
// features sharing a backend never read each other's state.
func NewLocalStore(backend Backend, ns string, opts ...LocalStoreOption) *LocalStore {
	s := &LocalStore{
		backend: backend,
		ns:      ns,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) completionKey() string { return s.ns + ":progress" }
func (s *LocalStore) assessmentKey() string { return s.ns + ":assessments" }

// Completion returns a copy of the stored completion map.
func (s *LocalStore) Completion() CompletionMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completion == nil {
		s.completion = decodeCompletion(s.read(s.completionKey()))
	}
	return s.completion.Clone()
}

// SetCompletion replaces the stored completion map.
func (s *LocalStore) SetCompletion(m CompletionMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completion = m.Clone()
	s.write(s.completionKey(), s.completion)
}

// Assessments returns the stored assessments, migrated to the tracked shape.
func (s *LocalStore) Assessments() TrackedAssessments {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assessments == nil {
		s.assessments = MigrateRawAssessments(s.read(s.assessmentKey()))
	}
	return s.assessments.Clone()
}

// SetAssessments replaces the stored assessments.
func (s *LocalStore) SetAssessments(t TrackedAssessments) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = t.Clone()
	s.write(s.assessmentKey(), s.assessments)
}

func (s *LocalStore) read(key string) []byte {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn("local state read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return []byte(raw)
}

func (s *LocalStore) write(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("local state encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.backend.Set(key, string(data)); err != nil {
		s.logger.Warn("local state write failed", zap.String("key", key), zap.Error(err))
	}
}

// decodeCompletion keeps every boolean entry it can read and drops the rest.
func decodeCompletion(raw []byte) CompletionMap {
	out := CompletionMap{}
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return out
	}
	for k, v := range fields {
		var done bool
		if json.Unmarshal(v, &done) == nil {
			out[k] = done
		}
	}
	return out
}
