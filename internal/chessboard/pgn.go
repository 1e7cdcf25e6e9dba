package chessboard

import (
	"fmt"
	"strings"
)

// PGNHeaders carries the seven-tag-roster fields plus the optional
// SetUp/FEN pair used when a session did not start from the standard
// position, matching the shape original_source's _build_pgn assembles.
type PGNHeaders struct {
	Event       string
	Site        string
	Date        string
	Round       string
	White       string
	Black       string
	Result      string
	InitialFEN  string // empty for the standard starting position
}

// BuildPGN replays uciMoves from initialFEN (or the standard position if
// initialFEN is empty), rendering each ply in SAN, and returns the full PGN
// text. Replay stops at the first illegal or unparseable move rather than
// failing the whole export, the same defensive behavior the source used for
// sessions whose move log outlives a rules-engine upgrade.
func BuildPGN(h PGNHeaders, uciMoves []string) (string, error) {
	var b *Board
	var err error
	if h.InitialFEN == "" {
		b = NewDefault()
	} else {
		b, err = NewFromFEN(h.InitialFEN)
		if err != nil {
			return "", err
		}
	}

	var sanMoves []string
	for _, uci := range uciMoves {
		san, sanErr := b.SAN(uci)
		if sanErr != nil {
			break
		}
		if applyErr := b.ApplyUCI(uci); applyErr != nil {
			break
		}
		sanMoves = append(sanMoves, san)
	}

	var out strings.Builder
	writeTag := func(name, value string) {
		if value == "" {
			value = "?"
		}
		fmt.Fprintf(&out, "[%s \"%s\"]\n", name, value)
	}
	writeTag("Event", h.Event)
	writeTag("Site", h.Site)
	writeTag("Date", h.Date)
	writeTag("Round", h.Round)
	writeTag("White", h.White)
	writeTag("Black", h.Black)
	writeTag("Result", h.Result)
	if h.InitialFEN != "" {
		writeTag("SetUp", "1")
		writeTag("FEN", h.InitialFEN)
	}
	out.WriteString("\n")

	for i, san := range sanMoves {
		if i%2 == 0 {
			fmt.Fprintf(&out, "%d. %s ", i/2+1, san)
		} else {
			fmt.Fprintf(&out, "%s ", san)
		}
	}
	out.WriteString(h.Result)
	out.WriteString("\n")
	return out.String(), nil
}

// ResultToken renders a terminal game result in PGN's seven-tag-roster
// vocabulary: "1-0", "0-1", "1/2-1/2" or "*" if still undecided.
func ResultToken(winner Color, hasWinner bool, drawn bool) string {
	switch {
	case drawn:
		return "1/2-1/2"
	case hasWinner && winner == White:
		return "1-0"
	case hasWinner && winner == Black:
		return "0-1"
	default:
		return "*"
	}
}
