package analyzer

import "time"

// Difficulty names the five player-facing presets plus a "custom" tier that
// takes an explicit engine rating, mirroring the difficulty table the
// original coaching engine exposed.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
	Grandmaster  Difficulty = "grandmaster"
	Custom       Difficulty = "custom"
)

// Settings is the UCI tuning triple derived from a difficulty preset: the
// engine's internal Skill Level (0-20), its nominal Elo (used with
// UCI_LimitStrength) and the time budget given to "go movetime".
type Settings struct {
	Skill    int
	Elo      int
	MoveTime time.Duration
}

var difficultyTable = map[Difficulty]Settings{
	Beginner:     {Skill: 1, Elo: 900, MoveTime: 200 * time.Millisecond},
	Intermediate: {Skill: 5, Elo: 1200, MoveTime: 250 * time.Millisecond},
	Advanced:     {Skill: 10, Elo: 1600, MoveTime: 350 * time.Millisecond},
	Expert:       {Skill: 15, Elo: 2000, MoveTime: 450 * time.Millisecond},
	Grandmaster:  {Skill: 20, Elo: 2400, MoveTime: 600 * time.Millisecond},
	Custom:       {Skill: 15, Elo: 2000, MoveTime: 400 * time.Millisecond},
}

// ResolveSettings returns the tuning triple for a difficulty name, clamping
// an explicit engine rating into [minElo, maxElo] and substituting it for
// the preset's nominal Elo when one is given (engineRating == 0 means
// "use the preset's default").
func ResolveSettings(d Difficulty, engineRating, minElo, maxElo int, moveTimeLimit time.Duration) Settings {
	s, ok := difficultyTable[d]
	if !ok {
		s = difficultyTable[Custom]
	}
	if engineRating > 0 {
		s.Elo = engineRating
	}
	if s.Elo < minElo {
		s.Elo = minElo
	}
	if s.Elo > maxElo {
		s.Elo = maxElo
	}
	if moveTimeLimit > 0 && s.MoveTime > moveTimeLimit {
		s.MoveTime = moveTimeLimit
	}
	return s
}
