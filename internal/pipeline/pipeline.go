// Package pipeline runs the two-step win verification: a start request opens
// a pending session, a completion request with image proof turns it into a
// submission and updates the guild's counters in one transaction.
package pipeline

import (
	"context"
	"time"

	"github.com/maaaruch/tg-win-bot/internal/domain"
	"github.com/maaaruch/tg-win-bot/internal/logger"
	"github.com/maaaruch/tg-win-bot/internal/session"
)

// WinRecorder is the transactional write side of the aggregate store.
type WinRecorder interface {
	RecordWin(ctx context.Context, win domain.Win) (*domain.WinResult, error)
}

type Pipeline struct {
	sessions *session.Store
	store    WinRecorder
	log      *logger.Logger
	now      func() time.Time
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(sessions *session.Store, store WinRecorder, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		sessions: sessions,
		store:    store,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start opens (or replaces) the pending verification for user.
func (p *Pipeline) Start(user domain.Participant, mode domain.Mode, teammates []string) (domain.Session, error) {
	sess, err := p.sessions.Start(user.ID, mode, teammates)
	if err != nil {
		p.log.Debug("win start rejected", "user", user.ID, "mode", mode.String(), "error", err)
		return domain.Session{}, err
	}
	p.log.Info("win start accepted",
		"user", user.ID,
		"session", sess.ID,
		"mode", mode.String(),
		"teammates", len(teammates),
	)
	return sess, nil
}

type CompleteRequest struct {
	GuildID  string
	User     domain.Participant
	Evidence domain.Evidence
}

// Complete consumes the pending session and records the win. The session is
// gone after this call whatever the outcome, so a rejected proof means the
// user has to start over.
func (p *Pipeline) Complete(ctx context.Context, req CompleteRequest) (*domain.WinResult, error) {
	log := p.log.With("user", req.User.ID, "guild", req.GuildID)

	sess, err := p.sessions.Consume(req.User.ID)
	if err != nil {
		log.Debug("win completion rejected", "error", err)
		return nil, err
	}
	log = log.With("session", sess.ID, "mode", sess.Mode.String())

	if !req.Evidence.IsImage {
		log.Debug("win completion rejected", "error", domain.ErrMissingProof)
		return nil, domain.ErrMissingProof
	}

	now := p.now().UTC()
	win := domain.Win{
		Submission: domain.Submission{
			SessionID:  sess.ID,
			GuildID:    req.GuildID,
			AuthorID:   req.User.ID,
			AuthorName: req.User.Name,
			Mode:       sess.Mode,
			ProofRef:   req.Evidence.ProofRef,
			Teammates:  sess.Teammates,
			Verified:   true,
			VerifiedBy: req.User.ID,
			VerifiedAt: now,
			CreatedAt:  now,
		},
	}
	if sess.Mode.IsTeam() {
		participants := append([]string{req.User.ID}, sess.Teammates...)
		key, err := domain.TeamKey(participants)
		if err != nil {
			return nil, err
		}
		win.Submission.TeamKey = key
		win.Members = domain.NormalizeMembers(participants)
	}

	res, err := p.store.RecordWin(ctx, win)
	if err != nil {
		log.Error("record win failed", "error", err)
		return nil, err
	}

	log.Info("win recorded",
		"submission", res.Submission.ID,
		"total", res.User.Total,
		"team_key", win.Submission.TeamKey,
	)
	return res, nil
}

// Pending reports the live session for user, if any.
func (p *Pipeline) Pending(userID string) (domain.Session, bool) {
	return p.sessions.Peek(userID)
}
