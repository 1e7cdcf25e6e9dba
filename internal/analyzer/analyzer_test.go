package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveSettingsClampsEngineRating(t *testing.T) {
	s := ResolveSettings(Custom, 5000, 1320, 2850, 0)
	assert.Equal(t, 2850, s.Elo)

	s = ResolveSettings(Custom, 10, 1320, 2850, 0)
	assert.Equal(t, 1320, s.Elo)
}

func TestResolveSettingsUsesPresetWhenNoExplicitRating(t *testing.T) {
	s := ResolveSettings(Grandmaster, 0, 1320, 2850, 0)
	assert.Equal(t, 2400, s.Elo)
	assert.Equal(t, 20, s.Skill)
}

func TestResolveSettingsCapsMoveTime(t *testing.T) {
	s := ResolveSettings(Grandmaster, 0, 1320, 2850, 300*time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, s.MoveTime)
}

func TestGatewayUnavailableWhenBinaryMissing(t *testing.T) {
	g := NewGateway(Config{StockfishPath: "/no/such/engine-binary-xyz"})
	assert.False(t, g.IsAvailable())
}

func TestParseScoreLineCentipawn(t *testing.T) {
	e, ok := parseScoreLine("info depth 10 score cp 34 nodes 1000")
	assert.True(t, ok)
	assert.Equal(t, 34, e.CP)
	assert.False(t, e.Mate)
}

func TestParseScoreLineMate(t *testing.T) {
	e, ok := parseScoreLine("info depth 10 score mate -3 nodes 1000")
	assert.True(t, ok)
	assert.Equal(t, -CheckmateCP, e.CP)
	assert.True(t, e.Mate)
}

func TestPovToWhiteFlipsWhenBlackToMove(t *testing.T) {
	e, ok := parseScoreLine("info depth 10 score cp 50 nodes 1000")
	assert.True(t, ok)

	assert.Equal(t, 50, povToWhite(e, false).CP, "white to move: score already from white's POV")
	assert.Equal(t, -50, povToWhite(e, true).CP, "black to move: UCI score is relative to black, flip to white's POV")
}

func TestParseMultiPVLineExtractsIndexScoreAndMoves(t *testing.T) {
	idx, pv, ok := parseMultiPVLine("info depth 12 multipv 2 score cp 15 nodes 5000 pv e2e4 e7e5 g1f3")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 15, pv.Eval.CP)
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, pv.UCI)
}

func TestParseMultiPVLineDefaultsIndexToOneWhenAbsent(t *testing.T) {
	idx, pv, ok := parseMultiPVLine("info depth 12 score cp 15 nodes 5000 pv e2e4 e7e5")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"e2e4", "e7e5"}, pv.UCI)
}

func TestParseMultiPVLineIgnoresNonPVInfoLines(t *testing.T) {
	_, _, ok := parseMultiPVLine("info depth 12 currmove e2e4 currmovenumber 1")
	assert.False(t, ok)
}
