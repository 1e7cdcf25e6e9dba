package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chessica/backend/internal/chessboard"
)

func TestClassifyVerdict(t *testing.T) {
	cases := []struct {
		name      string
		before    int
		after     int
		mover     chessboard.Color
		wantVerd  Verdict
	}{
		{"white brilliant swing", 0, 160, chessboard.White, VerdictBrilliant},
		{"white great swing", 0, 90, chessboard.White, VerdictGreat},
		{"white good swing", 0, 40, chessboard.White, VerdictGood},
		{"white sharp/neutral", 0, 10, chessboard.White, VerdictSharp},
		{"white inaccuracy", 0, -40, chessboard.White, VerdictInaccuracy},
		{"white mistake", 0, -90, chessboard.White, VerdictMistake},
		{"white blunder", 0, -160, chessboard.White, VerdictBlunder},
		{"black blunder (white cp rises)", 0, 160, chessboard.Black, VerdictBlunder},
		{"black brilliant (white cp falls)", 0, -160, chessboard.Black, VerdictBrilliant},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.wantVerd, ClassifyVerdict(c.before, c.after, c.mover))
		})
	}
}

func TestDetectThemesMaterialGain(t *testing.T) {
	before := chessboard.Snapshot{
		Squares: map[string]chessboard.Piece{
			"e4": {Type: chessboard.Pawn, Color: chessboard.White},
			"d5": {Type: chessboard.Pawn, Color: chessboard.Black},
		},
	}
	after := chessboard.Snapshot{
		Squares: map[string]chessboard.Piece{
			"d5": {Type: chessboard.Pawn, Color: chessboard.White},
		},
	}
	ctx := MoveContext{
		Before:     before,
		After:      after,
		Mover:      chessboard.White,
		From:       "e4",
		To:         "d5",
		PieceMoved: chessboard.Pawn,
		Captured:   true,
	}
	themes := DetectThemes(ctx)
	assert.Contains(t, themes, ThemeMaterialGain)
}

func TestIsBetweenEmpty(t *testing.T) {
	snap := chessboard.Snapshot{Squares: map[string]chessboard.Piece{
		"a1": {Type: chessboard.Rook, Color: chessboard.White},
		"a8": {Type: chessboard.King, Color: chessboard.Black},
	}}
	assert.True(t, isBetweenEmpty(snap, "a1", "a8"))

	snap.Squares["a4"] = chessboard.Piece{Type: chessboard.Pawn, Color: chessboard.White}
	assert.False(t, isBetweenEmpty(snap, "a1", "a8"))
}
