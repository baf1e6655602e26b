package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

type ResetReport struct {
	Submissions int64
	Users       int64
	Teams       int64
}

// ResetGuild wipes the log and every aggregate derived from it for guildID.
func (s *Store) ResetGuild(ctx context.Context, guildID string) (ResetReport, error) {
	var rep ResetReport
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rep = ResetReport{}
		var err error
		if rep.Submissions, err = execCount(ctx, tx, `DELETE FROM submissions WHERE guild_id = ?`, guildID); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if rep.Users, err = execCount(ctx, tx, `DELETE FROM user_stats WHERE guild_id = ?`, guildID); err != nil {
			return fmt.Errorf("delete user stats: %w", err)
		}
		if rep.Teams, err = execCount(ctx, tx, `DELETE FROM team_stats WHERE guild_id = ?`, guildID); err != nil {
			return fmt.Errorf("delete team stats: %w", err)
		}
		return nil
	})
	return rep, err
}

// ResetUser removes a user's submissions together with their own counters
// and every team row they are a member of. Team rows are dropped rather than
// decremented: a team count without one of its members means nothing.
func (s *Store) ResetUser(ctx context.Context, guildID, userID string) (ResetReport, error) {
	var rep ResetReport
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rep = ResetReport{}
		var err error
		if rep.Submissions, err = execCount(ctx, tx,
			`DELETE FROM submissions WHERE guild_id = ? AND author_id = ?`, guildID, userID); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if rep.Users, err = execCount(ctx, tx,
			`DELETE FROM user_stats WHERE guild_id = ? AND user_id = ?`, guildID, userID); err != nil {
			return fmt.Errorf("delete user stats: %w", err)
		}

		ids, err := teamIDsWithMember(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			n, err := execCount(ctx, tx, `DELETE FROM team_stats WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete team stats: %w", err)
			}
			rep.Teams += n
		}
		return nil
	})
	return rep, err
}

func teamIDsWithMember(ctx context.Context, tx *sql.Tx, guildID, userID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, team_key FROM team_stats WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var (
			id  int64
			key string
		)
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		for _, member := range domain.SplitTeamKey(key) {
			if member == userID {
				ids = append(ids, id)
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func execCount(ctx context.Context, tx *sql.Tx, q string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
