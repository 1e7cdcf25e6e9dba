// Package opening tags a session's move list with the named opening it
// matches, via a longest-prefix scan over a small hardcoded ECO book — the
// same approach and the same book entries as the original implementation.
package opening

// Entry is one named opening line, keyed by its ECO code.
type Entry struct {
	ECO  string
	Name string
	UCI  []string
}

var book = []Entry{
	{"C60", "Ruy Lopez", []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"}},
	{"C50", "Italian Game", []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4"}},
	{"B30", "Sicilian Defense", []string{"e2e4", "c7c5", "g1f3"}},
	{"B90", "Sicilian Najdorf", []string{"e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4", "g8f6", "b1c3", "a7a6"}},
	{"B12", "Caro-Kann Defense", []string{"e2e4", "c7c6", "d2d4"}},
	{"C00", "French Defense", []string{"e2e4", "e7e6"}},
	{"B01", "Scandinavian Defense", []string{"e2e4", "d7d5"}},
	{"D30", "Queen's Gambit Declined", []string{"d2d4", "d7d5", "c2c4", "e7e6"}},
	{"D10", "Slav Defense", []string{"d2d4", "d7d5", "c2c4", "c7c6"}},
	{"E60", "King's Indian Defense", []string{"d2d4", "g8f6", "c2c4", "g7g6"}},
	{"D02", "London System", []string{"d2d4", "d7d5", "g1f3", "g8f6", "c1f4"}},
	{"E21", "Nimzo-Indian Defense", []string{"d2d4", "g8f6", "c2c4", "e7e6", "b1c3", "f8b4"}},
}

// Detect returns the longest book entry whose prefix matches moves, or
// false if no opening in the book matches.
func Detect(moves []string) (Entry, bool) {
	best := Entry{}
	bestLen := 0
	for _, e := range book {
		if len(e.UCI) > len(moves) {
			continue
		}
		if !prefixMatches(e.UCI, moves) {
			continue
		}
		if len(e.UCI) > bestLen {
			best = e
			bestLen = len(e.UCI)
		}
	}
	return best, bestLen > 0
}

func prefixMatches(prefix, moves []string) bool {
	for i, m := range prefix {
		if moves[i] != m {
			return false
		}
	}
	return true
}
