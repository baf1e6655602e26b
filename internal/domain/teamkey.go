package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TeamKeySeparator joins member ids inside a team key. Identities containing
// it are rejected by ValidateIdentity, which keeps keys collision-free.
const TeamKeySeparator = ","

// NormalizeMembers returns the sorted, deduplicated member set.
func NormalizeMembers(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, seen := set[id]; seen {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TeamKey builds the canonical, order-independent key for a participant set.
func TeamKey(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", ErrEmptyTeam
	}
	return strings.Join(NormalizeMembers(ids), TeamKeySeparator), nil
}

// SplitTeamKey is the inverse of TeamKey.
func SplitTeamKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, TeamKeySeparator)
}

func ValidateIdentity(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: blank identity", ErrInvalidTeamComposition)
	}
	if strings.Contains(id, TeamKeySeparator) {
		return fmt.Errorf("%w: identity %q contains %q", ErrInvalidTeamComposition, id, TeamKeySeparator)
	}
	return nil
}
