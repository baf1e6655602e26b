package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/maaaruch/tg-win-bot/internal/domain"
	"github.com/maaaruch/tg-win-bot/internal/logger"
	"github.com/maaaruch/tg-win-bot/internal/session"
	"github.com/maaaruch/tg-win-bot/internal/storage"
)

const guild = "g1"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	p     *Pipeline
	store *storage.Store
	db    *sql.DB
	clock *clock
}

func newFixture(t *testing.T, maxConns int) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite3", storage.DSN(filepath.Join(t.TempDir(), "test.db"), 5*time.Second))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(maxConns)

	store := storage.New(db, storage.WithMaxAttempts(10))
	if err := store.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sessions := session.NewStore(session.WithClock(c.Now))
	return &fixture{
		p:     New(sessions, store, logger.Nop(), WithClock(c.Now)),
		store: store,
		db:    db,
		clock: c,
	}
}

func (f *fixture) count(t *testing.T, q string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.db.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func user(id string) domain.Participant {
	return domain.Participant{ID: id, Name: "name_" + id}
}

func image(ref string) domain.Evidence {
	return domain.Evidence{IsImage: true, ProofRef: ref}
}

func (f *fixture) complete(id string, ev domain.Evidence) (*domain.WinResult, error) {
	return f.p.Complete(context.Background(), CompleteRequest{GuildID: guild, User: user(id), Evidence: ev})
}

func TestComplete_DuoScenario(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeDuo, []string{"U2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := f.complete("U1", image("photo-1"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if res.User.Duo != 1 || res.User.Total != 1 {
		t.Fatalf("unexpected user stats: %+v", res.User)
	}
	if res.Team == nil || res.Team.Count != 1 || res.Team.Mode != domain.ModeDuo {
		t.Fatalf("unexpected team stats: %+v", res.Team)
	}
	key, _ := domain.TeamKey([]string{"U2", "U1"})
	if res.Team.TeamKey != key {
		t.Fatalf("team key: got=%q want=%q", res.Team.TeamKey, key)
	}

	sub := res.Submission
	if !sub.Verified || sub.VerifiedBy != "U1" || sub.ProofRef != "photo-1" || sub.AuthorName != "name_U1" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if !sub.VerifiedAt.Equal(f.clock.Now()) {
		t.Fatalf("verified at %v, want %v", sub.VerifiedAt, f.clock.Now())
	}

	if _, ok := f.p.Pending("U1"); ok {
		t.Fatalf("session must be consumed")
	}
}

func TestComplete_SoloHasNoTeam(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeSolo, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := f.complete("U1", image("p"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Team != nil || res.Submission.TeamKey != "" {
		t.Fatalf("solo must not touch team stats: %+v", res)
	}
	if got := f.count(t, `SELECT COUNT(*) FROM team_stats`); got != 0 {
		t.Fatalf("expected no team rows, got %d", got)
	}
}

func TestComplete_DuoWithoutTeammatesCountsOneMemberTeam(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeDuo, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := f.complete("U1", image("p"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Team == nil || res.Team.TeamKey != "U1" || len(res.Team.Members) != 1 || res.Team.Count != 1 {
		t.Fatalf("expected a one-member duo team: %+v", res.Team)
	}
	if got := f.count(t, `SELECT COUNT(*) FROM team_stats WHERE mode = 'duo' AND team_key = 'U1'`); got != 1 {
		t.Fatalf("expected one team row, got %d", got)
	}
}

func TestComplete_NoPendingSession(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.complete("U1", image("p"))
	if !errors.Is(err, domain.ErrNoPendingSession) {
		t.Fatalf("expected ErrNoPendingSession, got %v", err)
	}
	if domain.KindOf(err) != domain.KindSession {
		t.Fatalf("expected session kind, got %s", domain.KindOf(err))
	}
}

func TestComplete_MissingProofConsumesSession(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeSolo, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := f.complete("U1", domain.Evidence{IsImage: false, ProofRef: "notes.txt"})
	if !errors.Is(err, domain.ErrMissingProof) {
		t.Fatalf("expected ErrMissingProof, got %v", err)
	}

	_, err = f.complete("U1", image("p"))
	if !errors.Is(err, domain.ErrNoPendingSession) {
		t.Fatalf("expected ErrNoPendingSession after failed proof, got %v", err)
	}
	if got := f.count(t, `SELECT COUNT(*) FROM submissions`); got != 0 {
		t.Fatalf("expected no submissions, got %d", got)
	}
}

func TestComplete_Expired(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeSolo, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(session.Timeout + time.Second)

	_, err := f.complete("U1", image("p"))
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, ok := f.p.Pending("U1"); ok {
		t.Fatalf("expired session must be gone")
	}
	if got := f.count(t, `SELECT COUNT(*) FROM user_stats`); got != 0 {
		t.Fatalf("expired completion must not touch aggregates, got %d rows", got)
	}
}

func TestStart_SecondReplacesFirst(t *testing.T) {
	f := newFixture(t, 1)

	if _, err := f.p.Start(user("U1"), domain.ModeSolo, nil); err != nil {
		t.Fatalf("Start(solo): %v", err)
	}
	if _, err := f.p.Start(user("U1"), domain.ModeSquad, []string{"U2", "U3"}); err != nil {
		t.Fatalf("Start(squad): %v", err)
	}

	res, err := f.complete("U1", image("p"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Submission.Mode != domain.ModeSquad || res.User.Squad != 1 || res.User.Solo != 0 {
		t.Fatalf("expected the second session to win: %+v", res)
	}
	if res.Team == nil || len(res.Team.Members) != 3 {
		t.Fatalf("unexpected team: %+v", res.Team)
	}
}

func TestStart_RejectsBadTeam(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.p.Start(user("U1"), domain.ModeDuo, []string{"U1"})
	if !errors.Is(err, domain.ErrInvalidTeamComposition) {
		t.Fatalf("expected ErrInvalidTeamComposition, got %v", err)
	}
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation kind, got %s", domain.KindOf(err))
	}
	if _, ok := f.p.Pending("U1"); ok {
		t.Fatalf("rejected start must not leave a session")
	}
}

func TestComplete_ConcurrentDuoPartners(t *testing.T) {
	f := newFixture(t, 4)

	if _, err := f.p.Start(user("U1"), domain.ModeDuo, []string{"U2"}); err != nil {
		t.Fatalf("Start(U1): %v", err)
	}
	if _, err := f.p.Start(user("U2"), domain.ModeDuo, []string{"U1"}); err != nil {
		t.Fatalf("Start(U2): %v", err)
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, id := range []string{"U1", "U2"} {
		id := id
		g.Go(func() error {
			_, err := f.complete(id, image("proof-"+id))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if got := f.count(t, `SELECT COUNT(*) FROM submissions`); got != 2 {
		t.Fatalf("expected 2 submissions, got %d", got)
	}
	if got := f.count(t, `SELECT COUNT(*) FROM team_stats`); got != 1 {
		t.Fatalf("expected 1 team row, got %d", got)
	}
	team, err := f.store.GetTeamStats(context.Background(), guild, domain.ModeDuo, "U1,U2")
	if err != nil {
		t.Fatalf("GetTeamStats: %v", err)
	}
	if team.Count != 2 {
		t.Fatalf("expected team count 2, got %d", team.Count)
	}
}

func TestComplete_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t, 4)

	if _, err := f.p.Start(user("U1"), domain.ModeSolo, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var (
		mu        sync.Mutex
		successes int
		noSession int
	)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.complete("U1", image("p"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrNoPendingSession):
				noSession++
			}
		}()
	}
	wg.Wait()

	if successes != 1 || noSession != 7 {
		t.Fatalf("expected 1 success and 7 no-session, got %d and %d", successes, noSession)
	}
	if got := f.count(t, `SELECT total_wins FROM user_stats WHERE user_id = 'U1'`); got != 1 {
		t.Fatalf("expected total 1, got %d", got)
	}
}

type failingRecorder struct{ err error }

func (r failingRecorder) RecordWin(context.Context, domain.Win) (*domain.WinResult, error) {
	return nil, r.err
}

func TestComplete_StorageFailure(t *testing.T) {
	t.Parallel()

	log, logs := logger.Observed()
	sessions := session.NewStore()
	p := New(sessions, failingRecorder{err: fmt.Errorf("record: %w", domain.ErrConflictExhausted)}, log)

	if _, err := p.Start(user("U1"), domain.ModeDuo, []string{"U2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := p.Complete(context.Background(), CompleteRequest{GuildID: guild, User: user("U1"), Evidence: image("p")})
	if !errors.Is(err, domain.ErrConflictExhausted) {
		t.Fatalf("expected ErrConflictExhausted, got %v", err)
	}
	if domain.KindOf(err) != domain.KindStorage {
		t.Fatalf("expected storage kind, got %s", domain.KindOf(err))
	}
	if logs.FilterMessage("record win failed").Len() != 1 {
		t.Fatalf("expected the failure to be logged")
	}
}

// TestComplete_AggregatesMatchLog drives a random mix of starts and
// completions and checks every counter against a recount of the log.
func TestComplete_AggregatesMatchLog(t *testing.T) {
	f := newFixture(t, 1)
	r := rand.New(rand.NewSource(42))

	users := []string{"A", "B", "C", "D", "E"}
	modes := []domain.Mode{domain.ModeSolo, domain.ModeDuo, domain.ModeSquad}

	for i := 0; i < 200; i++ {
		u := users[r.Intn(len(users))]
		mode := modes[r.Intn(len(modes))]

		var others []string
		for _, o := range r.Perm(len(users)) {
			if users[o] != u {
				others = append(others, users[o])
			}
		}
		n := 0
		if mode.MaxTeammates() > 0 {
			n = r.Intn(mode.MaxTeammates() + 1)
		}

		if _, err := f.p.Start(user(u), mode, others[:n]); err != nil {
			t.Fatalf("Start: %v", err)
		}
		ev := image(fmt.Sprintf("p%d", i))
		if r.Intn(5) == 0 {
			ev.IsImage = false
		}
		if _, err := f.complete(u, ev); err != nil && !errors.Is(err, domain.ErrMissingProof) {
			t.Fatalf("Complete: %v", err)
		}
		f.clock.Advance(time.Second)
	}

	for _, u := range users {
		s, err := f.store.GetUserStats(context.Background(), guild, u)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("GetUserStats: %v", err)
		}
		if s.Total != s.Solo+s.Duo+s.Squad {
			t.Fatalf("%s: total %d != sum", u, s.Total)
		}
		for _, m := range modes {
			want := f.count(t, `SELECT COUNT(*) FROM submissions WHERE guild_id = ? AND author_id = ? AND mode = ? AND verified = 1`,
				guild, u, m.String())
			if got := domain.CounterFor(m).Value(*s); got != want {
				t.Fatalf("%s %s: aggregate %d, log %d", u, m, got, want)
			}
		}
	}

	rows, err := f.db.Query(`SELECT mode, team_key, win_count FROM team_stats`)
	if err != nil {
		t.Fatalf("query teams: %v", err)
	}
	type team struct {
		mode, key string
		count     int64
	}
	var teams []team
	for rows.Next() {
		var tm team
		if err := rows.Scan(&tm.mode, &tm.key, &tm.count); err != nil {
			t.Fatalf("scan: %v", err)
		}
		teams = append(teams, tm)
	}
	rows.Close()
	if len(teams) == 0 {
		t.Fatalf("expected some team rows")
	}
	for _, tm := range teams {
		want := f.count(t, `SELECT COUNT(*) FROM submissions WHERE mode = ? AND team_key = ?`, tm.mode, tm.key)
		if tm.count != want {
			t.Fatalf("team %s/%s: aggregate %d, log %d", tm.mode, tm.key, tm.count, want)
		}
	}
}
