package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTeamName folds accents and case so that "Atlético" and
// "atletico " compare equal.
func NormalizeTeamName(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// BuildTeamNames returns the (home, away) pair for a match of club against
// opponent.
func BuildTeamNames(home bool, club, opponent string) (string, string) {
	if strings.TrimSpace(opponent) == "" {
		opponent = PendingOpponent
	}
	if home {
		return club, opponent
	}
	return opponent, club
}

// ParseRound extracts the first all-digit word of a round label such as
// "Regular Season - 12". Labels without one, or whose number falls outside
// 1..MaxRound, yield nil.
func ParseRound(label string) *int {
	for _, f := range strings.Fields(label) {
		if !isDigits(f) {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > MaxRound {
			return nil
		}
		return &n
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeKickoff parses a fixture timestamp. Values carrying an offset
// are converted into loc; bare values are read as wall-clock time in loc.
// The result is truncated to whole seconds. Empty input yields nil.
func NormalizeKickoff(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.In(loc).Truncate(time.Second)
		return &t, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(n, 0).In(loc)
		return &t, nil
	}
	cleaned := strings.TrimSuffix(strings.Replace(raw, "T", " ", 1), "Z")
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, loc); err == nil {
			return &t, nil
		}
	}
	return nil, Invalid("kickoff", "unrecognised timestamp "+strconv.Quote(raw))
}
