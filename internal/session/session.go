package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

// Timeout bounds how long a pending verification can be completed.
const Timeout = 10 * time.Minute

// Store holds at most one pending verification per user. All operations on a
// key run under one lock, so consume is a single check-and-remove step.
type Store struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]domain.Session),
		timeout:  Timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// Start validates the team and replaces any pending session for userID.
func (s *Store) Start(userID string, mode domain.Mode, teammates []string) (domain.Session, error) {
	if err := validateTeam(userID, mode, teammates); err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Teammates: append([]string(nil), teammates...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.CreatedAt = s.now()
	s.sessions[userID] = sess
	return sess, nil
}

// Peek returns the live session for userID, evicting it if it has expired.
func (s *Store) Peek(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, false
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, userID)
		return domain.Session{}, false
	}
	return sess, true
}

// Consume removes the session for userID and returns it exactly once.
// An expired session is removed as well and reported as ErrSessionExpired.
func (s *Store) Consume(userID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, domain.ErrNoPendingSession
	}
	delete(s.sessions, userID)

	if s.expired(sess, s.now()) {
		return sess, domain.ErrSessionExpired
	}
	return sess, nil
}

// Sweep evicts every expired session and reports how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for userID, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, userID)
			n++
		}
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(evicted int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess domain.Session, now time.Time) bool {
	return now.Sub(sess.CreatedAt) > s.timeout
}

func validateTeam(userID string, mode domain.Mode, teammates []string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMode, mode)
	}
	if err := domain.ValidateIdentity(userID); err != nil {
		return err
	}
	if limit := mode.MaxTeammates(); len(teammates) > limit {
		return fmt.Errorf("%w: %s allows at most %d teammates, got %d",
			domain.ErrInvalidTeamComposition, mode, limit, len(teammates))
	}

	seen := make(map[string]struct{}, len(teammates))
	for _, id := range teammates {
		if err := domain.ValidateIdentity(id); err != nil {
			return err
		}
		if id == userID {
			return fmt.Errorf("%w: submitter listed as own teammate", domain.ErrInvalidTeamComposition)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: teammate %s listed twice", domain.ErrInvalidTeamComposition, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
