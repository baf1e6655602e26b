package domain

import (
	"fmt"
	"strings"
	"time"
)

type Mode int

const (
	ModeSolo Mode = iota + 1
	ModeDuo
	ModeSquad
)

var modeNames = map[Mode]string{
	ModeSolo:  "solo",
	ModeDuo:   "duo",
	ModeSquad: "squad",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MaxTeammates is the number of extra members allowed besides the submitter.
func (m Mode) MaxTeammates() int {
	switch m {
	case ModeSolo:
		return 0
	case ModeDuo:
		return 1
	case ModeSquad:
		return 3
	}
	return 0
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) IsTeam() bool {
	return m == ModeDuo || m == ModeSquad
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

type Participant struct {
	ID   string
	Name string
}

type Session struct {
	ID        string
	UserID    string
	Mode      Mode
	Teammates []string
	CreatedAt time.Time
}

type Submission struct {
	ID         int64
	SessionID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Mode       Mode
	ProofRef   string
	Teammates  []string
	TeamKey    string
	Verified   bool
	VerifiedBy string
	VerifiedAt time.Time
	CreatedAt  time.Time
}

type UserStats struct {
	GuildID   string
	UserID    string
	UserName  string
	Solo      int64
	Duo       int64
	Squad     int64
	Total     int64
	UpdatedAt time.Time
}

type TeamStats struct {
	GuildID   string
	TeamKey   string
	Members   []string
	Mode      Mode
	Count     int64
	LastWinAt time.Time
}

type GuildSettings struct {
	GuildID   string
	Language  string
	UpdatedAt time.Time
}

type Member struct {
	GuildID     string
	UserID      string
	UserName    string
	DisplayName string
}

// Label picks the friendliest name we know for the member.
func (m Member) Label() string {
	switch {
	case m.UserName != "":
		return "@" + m.UserName
	case m.DisplayName != "":
		return m.DisplayName
	}
	return m.UserID
}

// Evidence is what the completion message carried as proof.
type Evidence struct {
	IsImage  bool
	ProofRef string
}

// Win is a verified submission ready to be written, with the normalized
// member set for team modes.
type Win struct {
	Submission Submission
	Members    []string
}

type WinResult struct {
	Submission Submission
	User       UserStats
	Team       *TeamStats
}

// Counter selects which UserStats counter a ranking orders by.
type Counter int

const (
	CounterTotal Counter = iota
	CounterSolo
	CounterDuo
	CounterSquad
)

func (c Counter) String() string {
	switch c {
	case CounterSolo:
		return "solo"
	case CounterDuo:
		return "duo"
	case CounterSquad:
		return "squad"
	}
	return "total"
}

// ParseCounter accepts "total" or a mode name; empty means total.
func ParseCounter(s string) (Counter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "total" {
		return CounterTotal, nil
	}
	m, err := ParseMode(s)
	if err != nil {
		return 0, err
	}
	return CounterFor(m), nil
}

func CounterFor(m Mode) Counter {
	switch m {
	case ModeSolo:
		return CounterSolo
	case ModeDuo:
		return CounterDuo
	case ModeSquad:
		return CounterSquad
	}
	return CounterTotal
}

// Value reads the selected counter off a stats row.
func (c Counter) Value(u UserStats) int64 {
	switch c {
	case CounterSolo:
		return u.Solo
	case CounterDuo:
		return u.Duo
	case CounterSquad:
		return u.Squad
	}
	return u.Total
}
