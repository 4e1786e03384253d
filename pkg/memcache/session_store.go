package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/metrics"
	"wayfarer/pkg/utils"
)

type SessionStore interface {
	// Create registers a fresh COLLECTING session and returns a copy of it.
	Create() domain.Session

	// Get returns a copy of the session, or utils.ErrSessionNotFound.
	Get(id string) (domain.Session, error)

	// WithSession runs fn with the session's lock held for its whole duration.
	// fn receives a private copy; the copy is committed only when fn returns nil.
	// A session whose state ends up RESET is destroyed.
	WithSession(ctx context.Context, id string, fn func(s *domain.Session) error) error

	Delete(id string) error

	// Sweep destroys sessions idle for longer than the TTL. Sessions locked by
	// an in-flight request are skipped.
	Sweep() int

	Len() int

	// Run sweeps every interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}

type record struct {
	mu      sync.Mutex
	session domain.Session
	deleted bool
}

type Sessions struct {
	mu      sync.RWMutex
	data    map[string]*record
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Sessions)

func WithClock(now func() time.Time) Option {
	return func(s *Sessions) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Sessions) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sessions) { s.metrics = m }
}

func NewSessions(ttl time.Duration, opts ...Option) *Sessions {
	s := &Sessions{
		data: make(map[string]*record),
		ttl:  ttl,
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) Create() domain.Session {
	sess := domain.NewSession(uuid.NewString(), s.now())

	s.mu.Lock()
	s.data[sess.ID] = &record{session: sess}
	n := len(s.data)
	s.mu.Unlock()

	s.metrics.SessionsActive(n)
	return sess.Clone()
}

func (s *Sessions) lookup(id string) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[id]
}

func (s *Sessions) Get(id string) (domain.Session, error) {
	rec := s.lookup(id)
	if rec == nil {
		return domain.Session{}, utils.ErrSessionNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return domain.Session{}, utils.ErrSessionNotFound
	}
	return rec.session.Clone(), nil
}

func (s *Sessions) WithSession(ctx context.Context, id string, fn func(s *domain.Session) error) error {
	rec := s.lookup(id)
	if rec == nil {
		return utils.ErrSessionNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return utils.ErrSessionNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	work := rec.session.Clone()
	err := fn(&work)
	rec.session.LastAccess = s.now()
	if err != nil {
		return err
	}
	work.LastAccess = rec.session.LastAccess
	rec.session = work

	if work.State == domain.StateReset {
		s.drop(id, rec)
	}
	return nil
}

func (s *Sessions) Delete(id string) error {
	rec := s.lookup(id)
	if rec == nil {
		return utils.ErrSessionNotFound
	}
	// waits for an in-flight request on the same session
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return utils.ErrSessionNotFound
	}
	s.drop(id, rec)
	return nil
}

// drop requires rec.mu held.
func (s *Sessions) drop(id string, rec *record) {
	rec.deleted = true
	s.mu.Lock()
	delete(s.data, id)
	n := len(s.data)
	s.mu.Unlock()
	s.metrics.SessionsActive(n)
}

func (s *Sessions) Sweep() int {
	now := s.now()
	swept := 0

	s.mu.Lock()
	for id, rec := range s.data {
		if !rec.mu.TryLock() {
			continue
		}
		if now.Sub(rec.session.LastAccess) > s.ttl {
			rec.deleted = true
			delete(s.data, id)
			swept++
		}
		rec.mu.Unlock()
	}
	n := len(s.data)
	s.mu.Unlock()

	if swept > 0 {
		s.log.Info("swept idle sessions", zap.Int("count", swept), zap.Int("remaining", n))
	}
	s.metrics.SessionsSwept(swept)
	s.metrics.SessionsActive(n)
	return swept
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
