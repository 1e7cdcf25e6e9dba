package coach

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chessica/backend/internal/apperr"
)

// Briefing is the coach endpoint's response: a structured breakdown of the
// position plus which path produced the prose summary (useful for clients
// that want to show an "offline" badge).
type Briefing struct {
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	PressurePoints []string `json:"pressure_points"`
	Plans          []string `json:"plans"`
	KeyLines       []string `json:"key_lines"`
	Source         string   `json:"source"` // "llm" or "fallback"
}

// Builder assembles a Briefing from a position snapshot, enforcing the
// per-session fixed-window rate limit before calling out to a summarizer.
type Builder struct {
	primary  Summarizer
	fallback Summarizer
	limiter  *RateLimiter
	timeout  time.Duration
}

func NewBuilder(primary Summarizer, limiter *RateLimiter, timeout time.Duration) *Builder {
	return &Builder{primary: primary, fallback: FallbackSummarizer{}, limiter: limiter, timeout: timeout}
}

// PositionInput is everything the briefing prompt is built from. The
// structural diffs are all White-minus-Black, computed by
// insight.AnalyzePosition; KeyLines arrives pre-rendered (the caller has the
// board needed to turn multi-PV UCI moves into SAN, this package does not).
type PositionInput struct {
	SessionID            string
	FEN                  string
	EvalCP               int
	MoveCount            int
	Difficulty           string
	Themes               []string
	LastPlayerCommentary string
	MaterialDiffCP       int
	ExtendedCenterDiff   int
	AdvancedPieceDiff    int
	BishopPairDiff       int
	PassedPawnDiff       int
	KeyLines             []string
}

// thresholds past which a structural diff is notable enough to surface as
// a strength or a pressure point.
const (
	materialThreshold = 120
	centerThreshold   = 1
	advancedThreshold = 1
)

// feature names one structural diff for the strengths/pressure-points and
// plans sections. Non-centipawn diffs are scaled by 100 so every feature
// shares one threshold unit and abs-comparison in plans() is meaningful.
type feature struct {
	name string
	diff int
}

func (in PositionInput) features() []feature {
	return []feature{
		{"material", in.MaterialDiffCP},
		{"central space", in.ExtendedCenterDiff * 100},
		{"piece activity", in.AdvancedPieceDiff * 100},
		{"the bishop pair", in.BishopPairDiff * 100},
		{"a passed pawn", in.PassedPawnDiff * 100},
	}
}

func (in PositionInput) threshold(name string) int {
	switch name {
	case "material":
		return materialThreshold
	case "central space":
		return centerThreshold * 100
	case "piece activity":
		return advancedThreshold * 100
	default:
		// bishop pair and passed pawns: any asymmetry is notable.
		return 0
	}
}

// strengthsAndPressurePoints walks every structural feature and, for each
// one past its threshold, credits the advantaged color with a strength and
// the disadvantaged color with the matching pressure point.
func strengthsAndPressurePoints(in PositionInput) (strengths, pressurePoints []string) {
	for _, f := range in.features() {
		th := in.threshold(f.name)
		switch {
		case f.diff > th:
			strengths = append(strengths, fmt.Sprintf("White holds %s.", f.name))
			pressurePoints = append(pressurePoints, fmt.Sprintf("Black must answer White's %s.", f.name))
		case f.diff < -th:
			strengths = append(strengths, fmt.Sprintf("Black holds %s.", f.name))
			pressurePoints = append(pressurePoints, fmt.Sprintf("White must answer Black's %s.", f.name))
		}
	}
	return strengths, pressurePoints
}

// plans picks the single most extreme structural feature and renders a
// one-sentence plan per color built around it.
func plans(in PositionInput) []string {
	feats := in.features()
	dominant := feats[0]
	for _, f := range feats[1:] {
		if abs(f.diff) > abs(dominant.diff) {
			dominant = f
		}
	}
	if dominant.diff == 0 {
		return []string{
			"White looks to press for the smallest of edges in a balanced position.",
			"Black looks to equalize fully and neutralize any initiative.",
		}
	}
	if dominant.diff > 0 {
		return []string{
			fmt.Sprintf("White looks to convert the edge in %s.", dominant.name),
			fmt.Sprintf("Black looks to create complications to offset White's %s.", dominant.name),
		}
	}
	return []string{
		fmt.Sprintf("White looks to create complications to offset Black's %s.", dominant.name),
		fmt.Sprintf("Black looks to convert the edge in %s.", dominant.name),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Build enforces the coach rate limit and renders a briefing, preferring
// the primary summarizer and falling back to the deterministic renderer on
// any error. It only returns an error if the rate limit is exceeded, or if
// even the fallback path fails (which the in-process fallback never does).
func (b *Builder) Build(ctx context.Context, in PositionInput) (Briefing, error) {
	if b.limiter != nil && !b.limiter.Allow(in.SessionID) {
		return Briefing{}, apperr.RateLimited("coach briefing rate limit exceeded for this session")
	}

	prompt := buildPrompt(in)
	slog.Debug("coach: built prompt", "session_id", in.SessionID, "prompt_hash", hashPrompt(prompt))

	callCtx := ctx
	var cancel context.CancelFunc
	if b.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	strengths, pressurePoints := strengthsAndPressurePoints(in)
	briefingPlans := plans(in)

	source := "llm"
	if _, ok := b.primary.(FallbackSummarizer); ok {
		source = "fallback"
	}
	summary, err := b.primary.Summarize(callCtx, prompt)
	if err != nil {
		slog.Warn("coach: primary summarizer failed, using fallback", "session_id", in.SessionID, "error", err)
		source = "fallback"
		summary, err = b.fallback.Summarize(ctx, prompt)
		if err != nil {
			return Briefing{}, apperr.SummarizerUnavailable("coach briefing unavailable", err)
		}
	}

	return Briefing{
		Summary:        summary,
		Strengths:      strengths,
		PressurePoints: pressurePoints,
		Plans:          briefingPlans,
		KeyLines:       in.KeyLines,
		Source:         source,
	}, nil
}

// buildPrompt renders the structured position into the text handed to the
// summarizer (or returned verbatim as the fallback, prefixed by
// FallbackSummarizer). It carries every briefing section: material/
// activity/king-safety summary cues, strengths, pressure points, plans
// and key lines, so the LLM path and the offline path start from the
// same structured facts.
func buildPrompt(in PositionInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Position (FEN): %s\n", in.FEN)
	fmt.Fprintf(&sb, "Evaluation: %+d centipawns (White's perspective)\n", in.EvalCP)
	fmt.Fprintf(&sb, "Moves played: %d\n", in.MoveCount)
	fmt.Fprintf(&sb, "Difficulty: %s\n", in.Difficulty)
	if len(in.Themes) > 0 {
		fmt.Fprintf(&sb, "Recent themes: %s\n", strings.Join(in.Themes, ", "))
	}
	if in.LastPlayerCommentary != "" {
		fmt.Fprintf(&sb, "Last player move: %s\n", in.LastPlayerCommentary)
	}

	strengths, pressurePoints := strengthsAndPressurePoints(in)
	if len(strengths) > 0 {
		fmt.Fprintf(&sb, "Strengths: %s\n", strings.Join(strengths, " "))
	}
	if len(pressurePoints) > 0 {
		fmt.Fprintf(&sb, "Pressure points: %s\n", strings.Join(pressurePoints, " "))
	}
	fmt.Fprintf(&sb, "Plans: %s\n", strings.Join(plans(in), " "))
	if len(in.KeyLines) > 0 {
		fmt.Fprintf(&sb, "Key lines: %s\n", strings.Join(in.KeyLines, "; "))
	}

	sb.WriteString("Explain this position to the human player in plain language, in exactly three sentences: White's aim, Black's aim, then the current player's immediate action. At most 50 words per sentence.")
	return sb.String()
}

// FormatEval renders a centipawn score the way Key Lines entries prefix
// each candidate: signed pawns to two decimals, or a mate marker once the
// magnitude reaches insight.CheckmateCP.
func FormatEval(cp int) string {
	const checkmateCP = 10000
	switch {
	case cp >= checkmateCP:
		return "#+"
	case cp <= -checkmateCP:
		return "#-"
	default:
		return fmt.Sprintf("%+.2f", float64(cp)/100)
	}
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:8])
}
