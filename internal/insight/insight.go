// Package insight turns a raw engine evaluation delta and a before/after
// board pair into the verdict and theme tags a player-facing UI renders
// next to a move. The rules here are a direct port of the heuristics the
// original engine helper used to explain Stockfish output in plain English.
package insight

import (
	"fmt"
	"strings"

	"github.com/chessica/backend/internal/chessboard"
)

type Verdict string

const (
	VerdictBrilliant  Verdict = "brilliant"
	VerdictGreat      Verdict = "great"
	VerdictGood       Verdict = "good"
	VerdictSharp      Verdict = "sharp"
	VerdictInaccuracy Verdict = "inaccuracy"
	VerdictMistake    Verdict = "mistake"
	VerdictBlunder    Verdict = "blunder"
)

type Theme string

const (
	ThemeKingSafety      Theme = "king_safety"
	ThemeCentralControl  Theme = "central_control"
	ThemeMaterialGain    Theme = "material_gain"
	ThemePieceActivity   Theme = "piece_activity"
	ThemeKingAttack      Theme = "king_attack"
	ThemeSpaceGain       Theme = "space_gain"
	ThemePassedPawn      Theme = "passed_pawn"
	ThemeSimplification  Theme = "simplification"
)

// CheckmateCP is the magnitude used to represent a forced mate when the
// analyzer gateway converts a PovScore into a plain centipawn integer.
const CheckmateCP = 10000

var pieceValues = map[chessboard.PieceType]int{
	chessboard.Pawn:   100,
	chessboard.Knight: 320,
	chessboard.Bishop: 330,
	chessboard.Rook:   500,
	chessboard.Queen:  900,
	chessboard.King:   20000,
}

// MaterialEvalCP is a fast, analyzer-free position evaluation: the simple
// material balance in centipawns from White's perspective. Multiplayer
// moves use this instead of calling out to the engine, since there is no
// "best move" to compute — both sides are humans.
func MaterialEvalCP(snap chessboard.Snapshot) int {
	total := 0
	for _, p := range snap.Squares {
		v := pieceValues[p.Type]
		if p.Color == chessboard.Black {
			v = -v
		}
		total += v
	}
	return total
}

// ClassifyVerdict buckets the centipawn swing a move produced, from the
// mover's point of view, into one of seven verdicts. beforeCP/afterCP are
// both expressed from White's perspective, as the analyzer gateway returns
// them; mover indicates which side made the move being judged.
func ClassifyVerdict(beforeCP, afterCP int, mover chessboard.Color) Verdict {
	delta := afterCP - beforeCP
	if mover == chessboard.Black {
		delta = -delta
	}
	switch {
	case delta >= 150:
		return VerdictBrilliant
	case delta >= 80:
		return VerdictGreat
	case delta >= 30:
		return VerdictGood
	case delta > -30:
		return VerdictSharp
	case delta > -80:
		return VerdictInaccuracy
	case delta > -150:
		return VerdictMistake
	default:
		return VerdictBlunder
	}
}

// MoveContext is the library-free description of a single ply used for
// theme detection: the position immediately before and after the move, plus
// the move's own shape.
type MoveContext struct {
	Before     chessboard.Snapshot
	After      chessboard.Snapshot
	Mover      chessboard.Color
	From, To   string
	PieceMoved chessboard.PieceType
	Captured   bool
	Promotion  bool
	Castle     bool
}

// DetectThemes returns every theme tag that applies to ctx. A move may carry
// more than one theme (e.g. a capture that also opens the king's file).
func DetectThemes(ctx MoveContext) []Theme {
	var themes []Theme
	if isKingSafetyMove(ctx) {
		themes = append(themes, ThemeKingSafety)
	}
	if isStrongCenterMove(ctx) {
		themes = append(themes, ThemeCentralControl)
	}
	if ctx.Captured && materialDelta(ctx) > 0 {
		themes = append(themes, ThemeMaterialGain)
	}
	if isPieceActivityMove(ctx) {
		themes = append(themes, ThemePieceActivity)
	}
	if alignsWithEnemyKing(ctx) {
		themes = append(themes, ThemeKingAttack)
	}
	if pushesSpace(ctx) {
		themes = append(themes, ThemeSpaceGain)
	}
	if createsPassedPawn(ctx) {
		themes = append(themes, ThemePassedPawn)
	}
	if isSimplifyingTrade(ctx) {
		themes = append(themes, ThemeSimplification)
	}
	return themes
}

func materialDelta(ctx MoveContext) int {
	before := materialValue(ctx.Before, ctx.Mover.Opposite())
	after := materialValue(ctx.After, ctx.Mover.Opposite())
	return before - after // opponent material lost
}

func materialValue(snap chessboard.Snapshot, side chessboard.Color) int {
	total := 0
	for _, p := range snap.Squares {
		if p.Color != side || p.Type == chessboard.King {
			continue
		}
		total += pieceValues[p.Type]
	}
	return total
}

func isKingSafetyMove(ctx MoveContext) bool {
	return ctx.Castle
}

func isCenterSquare(sq string) bool {
	switch sq {
	case "d4", "d5", "e4", "e5":
		return true
	}
	return false
}

func isStrongCenterMove(ctx MoveContext) bool {
	if !isCenterSquare(ctx.To) {
		return false
	}
	return ctx.PieceMoved == chessboard.Pawn || ctx.PieceMoved == chessboard.Knight
}

func isPieceActivityMove(ctx MoveContext) bool {
	if ctx.PieceMoved == chessboard.Pawn || ctx.PieceMoved == chessboard.King {
		return false
	}
	fromRank := rankOf(ctx.From)
	toRank := rankOf(ctx.To)
	if ctx.Mover == chessboard.White {
		return toRank > fromRank && toRank >= 3
	}
	return toRank < fromRank && toRank <= 4
}

// alignsWithEnemyKing reports whether the moved piece now stands on the
// same file, rank or diagonal as the enemy king with nothing but the king
// itself between them and the destination square — a crude but effective
// proxy for "this piece now bears on the enemy king".
func alignsWithEnemyKing(ctx MoveContext) bool {
	kingSq := findKing(ctx.After, ctx.Mover.Opposite())
	if kingSq == "" || kingSq == ctx.To {
		return false
	}
	if !sameFile(ctx.To, kingSq) && !sameRank(ctx.To, kingSq) && !sameDiagonal(ctx.To, kingSq) {
		return false
	}
	return isBetweenEmpty(ctx.After, ctx.To, kingSq)
}

func pushesSpace(ctx MoveContext) bool {
	if ctx.PieceMoved != chessboard.Pawn {
		return false
	}
	fromRank := rankOf(ctx.From)
	toRank := rankOf(ctx.To)
	if ctx.Mover == chessboard.White {
		return toRank-fromRank >= 2 || toRank >= 4
	}
	return fromRank-toRank >= 2 || toRank <= 3
}

func createsPassedPawn(ctx MoveContext) bool {
	if ctx.PieceMoved != chessboard.Pawn {
		return false
	}
	return isPassedPawn(ctx.After, ctx.To, ctx.Mover)
}

func isSimplifyingTrade(ctx MoveContext) bool {
	if !ctx.Captured {
		return false
	}
	// a like-for-like capture: the mover takes a piece of its own type.
	victim, ok := ctx.Before.Squares[ctx.To]
	return ok && victim.Type == ctx.PieceMoved
}

func findKing(snap chessboard.Snapshot, color chessboard.Color) string {
	for sq, p := range snap.Squares {
		if p.Type == chessboard.King && p.Color == color {
			return sq
		}
	}
	return ""
}

func fileOf(sq string) int {
	if len(sq) < 2 {
		return -1
	}
	return int(sq[0] - 'a')
}

func rankOf(sq string) int {
	if len(sq) < 2 {
		return -1
	}
	return int(sq[1] - '1')
}

func squareName(file, rank int) string {
	return fmt.Sprintf("%c%d", 'a'+file, rank+1)
}

func sameFile(a, b string) bool { return fileOf(a) == fileOf(b) }
func sameRank(a, b string) bool { return rankOf(a) == rankOf(b) }

func sameDiagonal(a, b string) bool {
	return abs(fileOf(a)-fileOf(b)) == abs(rankOf(a)-rankOf(b))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// isBetweenEmpty reports whether every square strictly between a and b
// (which must share a file, rank or diagonal) is unoccupied.
func isBetweenEmpty(snap chessboard.Snapshot, a, b string) bool {
	fa, ra := fileOf(a), rankOf(a)
	fb, rb := fileOf(b), rankOf(b)
	df := sign(fb - fa)
	dr := sign(rb - ra)
	f, r := fa+df, ra+dr
	for f != fb || r != rb {
		if _, occupied := snap.Squares[squareName(f, r)]; occupied {
			return false
		}
		f += df
		r += dr
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// Commentary renders a short natural-language explanation of a move,
// combining its primary action, its leading theme and the resulting
// evaluation, in the same three-clause shape the original explanatory
// template used.
func Commentary(san string, themes []Theme, verdict Verdict, afterCP int, moverIsEngine bool) string {
	var sb strings.Builder
	who := "You"
	if moverIsEngine {
		who = "The engine"
	}
	fmt.Fprintf(&sb, "%s played %s.", who, san)

	if len(themes) > 0 {
		sb.WriteString(" " + themeSentence(themes[0]))
	}

	sb.WriteString(" " + scoreSentence(afterCP, verdict))
	return sb.String()
}

func themeSentence(t Theme) string {
	switch t {
	case ThemeKingSafety:
		return "It tucks the king away to safety."
	case ThemeCentralControl:
		return "It stakes a claim in the center."
	case ThemeMaterialGain:
		return "It wins material."
	case ThemePieceActivity:
		return "It brings a piece into active play."
	case ThemeKingAttack:
		return "It lines up against the enemy king."
	case ThemeSpaceGain:
		return "It grabs extra space."
	case ThemePassedPawn:
		return "It creates a passed pawn."
	case ThemeSimplification:
		return "It trades down toward a simpler position."
	default:
		return ""
	}
}

func scoreSentence(cp int, v Verdict) string {
	if cp >= CheckmateCP {
		return "White has a forced mate."
	}
	if cp <= -CheckmateCP {
		return "Black has a forced mate."
	}
	switch v {
	case VerdictBrilliant, VerdictGreat:
		return fmt.Sprintf("A strong try, evaluation now %+d centipawns.", cp)
	case VerdictBlunder, VerdictMistake:
		return fmt.Sprintf("This costs ground, evaluation now %+d centipawns.", cp)
	default:
		return fmt.Sprintf("Evaluation now %+d centipawns.", cp)
	}
}
