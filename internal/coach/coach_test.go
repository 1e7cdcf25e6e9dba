package coach

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessica/backend/internal/apperr"
)

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, string) (string, error) {
	return "", errors.New("upstream unavailable")
}

type staticSummarizer struct{ text string }

func (s staticSummarizer) Summarize(context.Context, string) (string, error) {
	return s.text, nil
}

func TestBuildFallsBackOnSummarizerError(t *testing.T) {
	b := NewBuilder(failingSummarizer{}, NewRateLimiter(time.Minute, 10), time.Second)
	briefing, err := b.Build(context.Background(), PositionInput{SessionID: "s1", FEN: "startpos", EvalCP: 10})
	require.NoError(t, err)
	assert.Equal(t, "fallback", briefing.Source)
	assert.Contains(t, briefing.Summary, "Position summary (offline)")
}

func TestBuildUsesPrimaryWhenHealthy(t *testing.T) {
	b := NewBuilder(staticSummarizer{text: "White is slightly better."}, NewRateLimiter(time.Minute, 10), time.Second)
	briefing, err := b.Build(context.Background(), PositionInput{SessionID: "s1", FEN: "startpos"})
	require.NoError(t, err)
	assert.Equal(t, "llm", briefing.Source)
	assert.Equal(t, "White is slightly better.", briefing.Summary)
}

func TestBuildRateLimited(t *testing.T) {
	limiter := NewRateLimiter(time.Minute, 1)
	b := NewBuilder(staticSummarizer{text: "ok"}, limiter, time.Second)

	_, err := b.Build(context.Background(), PositionInput{SessionID: "s1"})
	require.NoError(t, err)

	_, err = b.Build(context.Background(), PositionInput{SessionID: "s1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

func TestBuildDerivesStrengthsPressurePointsAndPlans(t *testing.T) {
	b := NewBuilder(staticSummarizer{text: "ok"}, NewRateLimiter(time.Minute, 10), time.Second)
	briefing, err := b.Build(context.Background(), PositionInput{
		SessionID:          "s1",
		FEN:                "startpos",
		MaterialDiffCP:     300,
		ExtendedCenterDiff: 2,
		BishopPairDiff:     -1,
		KeyLines:           []string{"+3.00: Nxe5 d6 Nf3"},
	})
	require.NoError(t, err)

	assert.Contains(t, briefing.Strengths, "White holds material.")
	assert.Contains(t, briefing.Strengths, "White holds central space.")
	assert.Contains(t, briefing.Strengths, "Black holds the bishop pair.")
	assert.Contains(t, briefing.PressurePoints, "Black must answer White's material.")
	require.Len(t, briefing.Plans, 2)
	assert.Contains(t, briefing.Plans[0], "material")
	assert.Equal(t, []string{"+3.00: Nxe5 d6 Nf3"}, briefing.KeyLines)
}

func TestBuildPlansAreNeutralWhenBalanced(t *testing.T) {
	b := NewBuilder(staticSummarizer{text: "ok"}, NewRateLimiter(time.Minute, 10), time.Second)
	briefing, err := b.Build(context.Background(), PositionInput{SessionID: "s1", FEN: "startpos"})
	require.NoError(t, err)

	require.Len(t, briefing.Plans, 2)
	assert.Contains(t, briefing.Plans[0], "balanced position")
}

func TestFormatEvalRendersPawnsAndMate(t *testing.T) {
	assert.Equal(t, "+1.25", FormatEval(125))
	assert.Equal(t, "-0.50", FormatEval(-50))
	assert.Equal(t, "#+", FormatEval(10000))
	assert.Equal(t, "#-", FormatEval(-10000))
}
