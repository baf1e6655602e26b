package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

// modeDeltas maps a mode onto the per-mode counter increments.
func modeDeltas(m domain.Mode) (solo, duo, squad int64, err error) {
	switch m {
	case domain.ModeSolo:
		return 1, 0, 0, nil
	case domain.ModeDuo:
		return 0, 1, 0, nil
	case domain.ModeSquad:
		return 0, 0, 1, nil
	}
	return 0, 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidMode, m)
}

// RecordWin appends the submission and bumps the author's counters and, for
// team modes, the team counter. Either everything is written or nothing is.
func (s *Store) RecordWin(ctx context.Context, win domain.Win) (*domain.WinResult, error) {
	var res *domain.WinResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, err := recordWin(ctx, tx, win)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func recordWin(ctx context.Context, tx *sql.Tx, win domain.Win) (*domain.WinResult, error) {
	sub := win.Submission
	solo, duo, squad, err := modeDeltas(sub.Mode)
	if err != nil {
		return nil, err
	}

	teammates := sub.Teammates
	if teammates == nil {
		teammates = []string{}
	}
	teammatesJSON, err := json.Marshal(teammates)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO submissions(session_id, guild_id, author_id, author_name, mode, proof_ref, teammates, team_key, verified, verified_by, verified_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, sub.SessionID, sub.GuildID, sub.AuthorID, sub.AuthorName, sub.Mode.String(), sub.ProofRef,
		string(teammatesJSON), sub.TeamKey, sub.Verified, sub.VerifiedBy, sub.VerifiedAt, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: session %s already recorded", domain.ErrNoPendingSession, sub.SessionID)
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	if sub.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	user := domain.UserStats{
		GuildID:   sub.GuildID,
		UserID:    sub.AuthorID,
		UserName:  sub.AuthorName,
		UpdatedAt: sub.VerifiedAt,
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO user_stats(guild_id, user_id, user_name, solo_wins, duo_wins, squad_wins, total_wins, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 1, ?)
ON CONFLICT(guild_id, user_id) DO UPDATE SET
    user_name  = excluded.user_name,
    solo_wins  = user_stats.solo_wins + excluded.solo_wins,
    duo_wins   = user_stats.duo_wins + excluded.duo_wins,
    squad_wins = user_stats.squad_wins + excluded.squad_wins,
    total_wins = user_stats.total_wins + 1,
    updated_at = excluded.updated_at
RETURNING solo_wins, duo_wins, squad_wins, total_wins
`, sub.GuildID, sub.AuthorID, sub.AuthorName, solo, duo, squad, sub.VerifiedAt).
		Scan(&user.Solo, &user.Duo, &user.Squad, &user.Total)
	if err != nil {
		return nil, fmt.Errorf("upsert user stats: %w", err)
	}

	out := &domain.WinResult{Submission: sub, User: user}
	if !sub.Mode.IsTeam() {
		return out, nil
	}

	membersJSON, err := json.Marshal(win.Members)
	if err != nil {
		return nil, err
	}
	team := domain.TeamStats{
		GuildID:   sub.GuildID,
		TeamKey:   sub.TeamKey,
		Members:   win.Members,
		Mode:      sub.Mode,
		LastWinAt: sub.VerifiedAt,
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO team_stats(guild_id, mode, team_key, members, win_count, last_win_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT(guild_id, mode, team_key) DO UPDATE SET
    win_count   = team_stats.win_count + 1,
    last_win_at = excluded.last_win_at
RETURNING win_count
`, sub.GuildID, sub.Mode.String(), sub.TeamKey, string(membersJSON), sub.VerifiedAt).Scan(&team.Count)
	if err != nil {
		return nil, fmt.Errorf("upsert team stats: %w", err)
	}
	out.Team = &team
	return out, nil
}
