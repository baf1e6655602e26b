package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

// ---------- User stats ----------

func counterColumn(c domain.Counter) (string, error) {
	switch c {
	case domain.CounterTotal:
		return "total_wins", nil
	case domain.CounterSolo:
		return "solo_wins", nil
	case domain.CounterDuo:
		return "duo_wins", nil
	case domain.CounterSquad:
		return "squad_wins", nil
	}
	return "", fmt.Errorf("unknown counter %d", int(c))
}

func (s *Store) GetUserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT guild_id, user_id, user_name, solo_wins, duo_wins, squad_wins, total_wins, updated_at
FROM user_stats
WHERE guild_id = ? AND user_id = ?
`, guildID, userID)

	var u domain.UserStats
	if err := row.Scan(&u.GuildID, &u.UserID, &u.UserName, &u.Solo, &u.Duo, &u.Squad, &u.Total, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TopUsers orders by the chosen counter, highest first. Ties keep the order
// in which users first reached the table.
func (s *Store) TopUsers(ctx context.Context, guildID string, by domain.Counter, limit int) ([]domain.UserStats, error) {
	col, err := counterColumn(by)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT guild_id, user_id, user_name, solo_wins, duo_wins, squad_wins, total_wins, updated_at
FROM user_stats
WHERE guild_id = ? AND `+col+` > 0
ORDER BY `+col+` DESC, id
LIMIT ?
`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserStats
	for rows.Next() {
		var u domain.UserStats
		if err := rows.Scan(&u.GuildID, &u.UserID, &u.UserName, &u.Solo, &u.Duo, &u.Squad, &u.Total, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Team stats ----------

func (s *Store) GetTeamStats(ctx context.Context, guildID string, mode domain.Mode, teamKey string) (*domain.TeamStats, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT guild_id, team_key, members, win_count, last_win_at
FROM team_stats
WHERE guild_id = ? AND mode = ? AND team_key = ?
`, guildID, mode.String(), teamKey)

	t, err := scanTeam(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Mode = mode
	return t, nil
}

func (s *Store) TopTeams(ctx context.Context, guildID string, mode domain.Mode, limit int) ([]domain.TeamStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT guild_id, team_key, members, win_count, last_win_at
FROM team_stats
WHERE guild_id = ? AND mode = ?
ORDER BY win_count DESC, id
LIMIT ?
`, guildID, mode.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TeamStats
	for rows.Next() {
		t, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, err
		}
		t.Mode = mode
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTeam(scan func(dest ...any) error) (*domain.TeamStats, error) {
	var (
		t       domain.TeamStats
		members string
		lastWin sql.NullTime
	)
	if err := scan(&t.GuildID, &t.TeamKey, &members, &t.Count, &lastWin); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &t.Members); err != nil {
		return nil, fmt.Errorf("decode team members: %w", err)
	}
	if lastWin.Valid {
		t.LastWinAt = lastWin.Time
	}
	return &t, nil
}
