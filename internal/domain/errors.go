package domain

import "errors"

var (
	ErrInvalidMode            = errors.New("invalid mode")
	ErrInvalidTeamComposition = errors.New("invalid team composition")
	ErrEmptyTeam              = errors.New("empty participant set")

	ErrNoPendingSession = errors.New("no pending session")
	ErrSessionExpired   = errors.New("session expired")

	ErrMissingProof = errors.New("missing image proof")

	ErrConflictExhausted = errors.New("storage conflict retries exhausted")
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindSession    Kind = "session"
	KindEvidence   Kind = "evidence"
	KindStorage    Kind = "storage"
)

// KindOf classifies err for reporting. Anything not recognised is a storage
// failure, since that is the only layer producing foreign errors.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidTeamComposition),
		errors.Is(err, ErrEmptyTeam):
		return KindValidation
	case errors.Is(err, ErrNoPendingSession), errors.Is(err, ErrSessionExpired):
		return KindSession
	case errors.Is(err, ErrMissingProof):
		return KindEvidence
	}
	return KindStorage
}
