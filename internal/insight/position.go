package insight

import "github.com/chessica/backend/internal/chessboard"

// PositionFeatures captures the structural asymmetries a coach briefing's
// Strengths/Pressure Points/Plans sections are derived from, each value
// expressed White-minus-Black so a positive number favors White.
type PositionFeatures struct {
	MaterialDiffCP     int
	ExtendedCenterDiff int
	AdvancedPieceDiff  int
	BishopPairDiff     int
	PassedPawnDiff     int
}

// extendedCenterSquares is the 4x4 block c3..f6, a wider zone than the
// four true center squares used for per-move theme detection.
var extendedCenterSquares = func() map[string]bool {
	m := make(map[string]bool)
	for f := 2; f <= 5; f++ {
		for r := 2; r <= 5; r++ {
			m[squareName(f, r)] = true
		}
	}
	return m
}()

// AnalyzePosition derives PositionFeatures from a single board snapshot,
// the static counterpart to DetectThemes's per-move analysis.
func AnalyzePosition(snap chessboard.Snapshot) PositionFeatures {
	var f PositionFeatures
	var whiteBishops, blackBishops int

	for sq, p := range snap.Squares {
		v := pieceValues[p.Type]
		if p.Color == chessboard.Black {
			v = -v
		}
		f.MaterialDiffCP += v

		if extendedCenterSquares[sq] {
			if p.Color == chessboard.White {
				f.ExtendedCenterDiff++
			} else {
				f.ExtendedCenterDiff--
			}
		}

		if p.Type != chessboard.Pawn && p.Type != chessboard.King {
			rank := rankOf(sq)
			switch {
			case p.Color == chessboard.White && rank >= 4:
				f.AdvancedPieceDiff++
			case p.Color == chessboard.Black && rank <= 3:
				f.AdvancedPieceDiff--
			}
		}

		if p.Type == chessboard.Bishop {
			if p.Color == chessboard.White {
				whiteBishops++
			} else {
				blackBishops++
			}
		}
	}

	switch {
	case whiteBishops >= 2 && blackBishops < 2:
		f.BishopPairDiff = 1
	case blackBishops >= 2 && whiteBishops < 2:
		f.BishopPairDiff = -1
	}

	f.PassedPawnDiff = countPassedPawns(snap, chessboard.White) - countPassedPawns(snap, chessboard.Black)
	return f
}

func countPassedPawns(snap chessboard.Snapshot, side chessboard.Color) int {
	count := 0
	for sq, p := range snap.Squares {
		if p.Type == chessboard.Pawn && p.Color == side && isPassedPawn(snap, sq, side) {
			count++
		}
	}
	return count
}

// isPassedPawn reports whether the pawn on sq has no enemy pawn ahead of it
// on its own file or either adjacent file.
func isPassedPawn(snap chessboard.Snapshot, sq string, side chessboard.Color) bool {
	file := fileOf(sq)
	rank := rankOf(sq)
	opp := side.Opposite()
	for df := -1; df <= 1; df++ {
		f := file + df
		if f < 0 || f > 7 {
			continue
		}
		for r := 0; r < 8; r++ {
			if side == chessboard.White && r <= rank {
				continue
			}
			if side == chessboard.Black && r >= rank {
				continue
			}
			if p, ok := snap.Squares[squareName(f, r)]; ok && p.Type == chessboard.Pawn && p.Color == opp {
				return false
			}
		}
	}
	return true
}
