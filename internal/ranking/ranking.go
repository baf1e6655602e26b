package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/maaaruch/tg-win-bot/internal/domain"
	"github.com/maaaruch/tg-win-bot/internal/storage"
)

// Limit is the number of rows a ranking shows.
const Limit = 10

type Store interface {
	GetUserStats(ctx context.Context, guildID, userID string) (*domain.UserStats, error)
	TopUsers(ctx context.Context, guildID string, by domain.Counter, limit int) ([]domain.UserStats, error)
	TopTeams(ctx context.Context, guildID string, mode domain.Mode, limit int) ([]domain.TeamStats, error)
	MembersByID(ctx context.Context, guildID string, ids []string) (map[string]domain.Member, error)
}

type UserEntry struct {
	Rank  int
	Name  string
	Value int64
}

type TeamEntry struct {
	Rank    int
	Members []string
	Count   int64
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// UserStats returns the counters of one user, all zero when they have none.
func (s *Service) UserStats(ctx context.Context, guildID string, user domain.Participant) (domain.UserStats, error) {
	st, err := s.store.GetUserStats(ctx, guildID, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.UserStats{GuildID: guildID, UserID: user.ID, UserName: user.Name}, nil
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return *st, nil
}

func (s *Service) Users(ctx context.Context, guildID string, by domain.Counter) ([]UserEntry, error) {
	rows, err := s.store.TopUsers(ctx, guildID, by, Limit)
	if err != nil {
		return nil, err
	}
	out := make([]UserEntry, 0, len(rows))
	for i, u := range rows {
		out = append(out, UserEntry{Rank: i + 1, Name: u.UserName, Value: by.Value(u)})
	}
	return out, nil
}

// Teams ranks duo or squad teams, rendering members through the directory.
func (s *Service) Teams(ctx context.Context, guildID string, mode domain.Mode) ([]TeamEntry, error) {
	if !mode.IsTeam() {
		return nil, fmt.Errorf("%w: team ranking needs duo or squad, got %s", domain.ErrInvalidMode, mode)
	}

	rows, err := s.store.TopTeams(ctx, guildID, mode, Limit)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, t := range rows {
		ids = append(ids, t.Members...)
	}
	known, err := s.store.MembersByID(ctx, guildID, domain.NormalizeMembers(ids))
	if err != nil {
		return nil, err
	}

	out := make([]TeamEntry, 0, len(rows))
	for i, t := range rows {
		names := make([]string, 0, len(t.Members))
		for _, id := range t.Members {
			if m, ok := known[id]; ok {
				names = append(names, m.Label())
			} else {
				names = append(names, id)
			}
		}
		out = append(out, TeamEntry{Rank: i + 1, Members: names, Count: t.Count})
	}
	return out, nil
}
