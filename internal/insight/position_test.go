package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chessica/backend/internal/chessboard"
)

func TestAnalyzePositionMaterialAndCenterDiff(t *testing.T) {
	snap := chessboard.Snapshot{Squares: map[string]chessboard.Piece{
		"e1": {Type: chessboard.King, Color: chessboard.White},
		"e8": {Type: chessboard.King, Color: chessboard.Black},
		"d4": {Type: chessboard.Knight, Color: chessboard.White},
		"e5": {Type: chessboard.Pawn, Color: chessboard.Black},
		"d1": {Type: chessboard.Queen, Color: chessboard.White},
	}}
	f := AnalyzePosition(snap)
	assert.Equal(t, 320+900-100, f.MaterialDiffCP)
	assert.Equal(t, 0, f.ExtendedCenterDiff) // one White piece (d4) and one Black pawn (e5) in the 4x4 block
}

func TestAnalyzePositionBishopPairDiff(t *testing.T) {
	snap := chessboard.Snapshot{Squares: map[string]chessboard.Piece{
		"e1": {Type: chessboard.King, Color: chessboard.White},
		"e8": {Type: chessboard.King, Color: chessboard.Black},
		"c1": {Type: chessboard.Bishop, Color: chessboard.White},
		"f1": {Type: chessboard.Bishop, Color: chessboard.White},
		"c8": {Type: chessboard.Bishop, Color: chessboard.Black},
	}}
	f := AnalyzePosition(snap)
	assert.Equal(t, 1, f.BishopPairDiff)
}

func TestAnalyzePositionPassedPawnDiff(t *testing.T) {
	snap := chessboard.Snapshot{Squares: map[string]chessboard.Piece{
		"e1": {Type: chessboard.King, Color: chessboard.White},
		"e8": {Type: chessboard.King, Color: chessboard.Black},
		"a6": {Type: chessboard.Pawn, Color: chessboard.White}, // nothing ahead on a/b files
	}}
	f := AnalyzePosition(snap)
	assert.Equal(t, 1, f.PassedPawnDiff)
}

func TestIsPassedPawnBlockedByEnemyPawnOnAdjacentFile(t *testing.T) {
	snap := chessboard.Snapshot{Squares: map[string]chessboard.Piece{
		"a4": {Type: chessboard.Pawn, Color: chessboard.White},
		"b6": {Type: chessboard.Pawn, Color: chessboard.Black},
	}}
	assert.False(t, isPassedPawn(snap, "a4", chessboard.White))
}
