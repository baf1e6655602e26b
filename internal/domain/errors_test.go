package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("%w: too many", ErrInvalidTeamComposition), KindValidation},
		{ErrInvalidMode, KindValidation},
		{ErrNoPendingSession, KindSession},
		{fmt.Errorf("complete: %w", ErrSessionExpired), KindSession},
		{ErrMissingProof, KindEvidence},
		{ErrConflictExhausted, KindStorage},
		{errors.New("disk I/O error"), KindStorage},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"solo": ModeSolo, " Duo ": ModeDuo, "SQUAD": ModeSquad} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("trio"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
