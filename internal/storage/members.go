package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

// ---------- Members ----------

func (s *Store) UpsertMember(ctx context.Context, m domain.Member) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO members(guild_id, user_id, user_name, display_name, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(guild_id, user_id) DO UPDATE SET
    user_name    = excluded.user_name,
    display_name = excluded.display_name,
    updated_at   = excluded.updated_at
`, m.GuildID, m.UserID, m.UserName, m.DisplayName, s.now().UTC())
	return err
}

// FindMemberByUserName resolves an @username (with or without the @).
func (s *Store) FindMemberByUserName(ctx context.Context, guildID, userName string) (*domain.Member, error) {
	userName = strings.TrimPrefix(strings.TrimSpace(userName), "@")
	if userName == "" {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
SELECT guild_id, user_id, user_name, display_name
FROM members
WHERE guild_id = ? AND user_name = ? COLLATE NOCASE
ORDER BY updated_at DESC
LIMIT 1
`, guildID, userName)

	var m domain.Member
	if err := row.Scan(&m.GuildID, &m.UserID, &m.UserName, &m.DisplayName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// MembersByID returns the known members among ids, keyed by user id.
func (s *Store) MembersByID(ctx context.Context, guildID string, ids []string) (map[string]domain.Member, error) {
	out := make(map[string]domain.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, guildID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx, `
SELECT guild_id, user_id, user_name, display_name
FROM members
WHERE guild_id = ? AND user_id IN (`+placeholders+`)
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.GuildID, &m.UserID, &m.UserName, &m.DisplayName); err != nil {
			return nil, err
		}
		out[m.UserID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Guild settings ----------

func (s *Store) GetGuildSettings(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT guild_id, language, updated_at FROM guild_settings WHERE guild_id = ?`, guildID)
	var g domain.GuildSettings
	if err := row.Scan(&g.GuildID, &g.Language, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *Store) SetGuildLanguage(ctx context.Context, guildID, language string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO guild_settings(guild_id, language, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(guild_id) DO UPDATE SET
    language   = excluded.language,
    updated_at = excluded.updated_at
`, guildID, language, s.now().UTC())
	return err
}
