package rating

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Outcome is a duel result from one participant's point of view.
type Outcome int

const (
	Lose Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "lose"
	}
}

// Opposite returns the outcome seen by the other participant.
func (o Outcome) Opposite() Outcome {
	switch o {
	case Win:
		return Lose
	case Lose:
		return Win
	default:
		return Draw
	}
}

// KTier applies Factor to every rating strictly below Below.
type KTier struct {
	Below  int
	Factor float64
}

// LevelBand maps an inclusive rating interval to a task level.
type LevelBand struct {
	MinRating int
	MaxRating int
	Level     int
}

// Config holds the rating constants.
type Config struct {
	KTiers       []KTier // ascending by Below
	FallbackK    float64 // K for ratings above every tier
	Scale        float64 // default: 400
	DefaultLevel int     // level when no band matches
	LevelBands   []LevelBand
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		KTiers: []KTier{
			{Below: 1600, Factor: 40},
			{Below: 2000, Factor: 32},
			{Below: 2200, Factor: 24},
		},
		FallbackK:    16,
		Scale:        400,
		DefaultLevel: 1,
		LevelBands: []LevelBand{
			{MinRating: 0, MaxRating: 1199, Level: 1},
			{MinRating: 1200, MaxRating: 1499, Level: 2},
			{MinRating: 1500, MaxRating: 1799, Level: 3},
			{MinRating: 1800, MaxRating: 2099, Level: 4},
			{MinRating: 2100, MaxRating: math.MaxInt32, Level: 5},
		},
	}
}

// Changes previews the delta for every possible outcome.
type Changes struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Lose int `json:"lose"`
}

// For returns the delta for a realised outcome.
func (c Changes) For(o Outcome) int {
	switch o {
	case Win:
		return c.Win
	case Draw:
		return c.Draw
	default:
		return c.Lose
	}
}

// Settlement is the result of applying an outcome to both participants.
type Settlement struct {
	User1Delta int
	User2Delta int
	User1Final int
	User2Final int
}

// Engine computes Elo-style rating changes.
type Engine struct {
	config Config
}

// NewEngine creates a rating engine with the provided config.
func NewEngine(config Config) *Engine {
	if config.Scale == 0 {
		config.Scale = 400
	}
	if config.DefaultLevel == 0 {
		config.DefaultLevel = 1
	}
	return &Engine{config: config}
}

// GetRatingChanges returns the deltas self would receive against opponent.
// Formula: round(K * (score - expected)) with
// expected = 1 / (1 + 10^((opponent-self)/scale)) and K chosen by self's rating.
// The result does not depend on the opponent's K, so the two sides are not zero-sum.
func (e *Engine) GetRatingChanges(self, opponent int) Changes {
	expected := 1.0 / (1.0 + math.Pow(10, float64(opponent-self)/e.config.Scale))
	k := e.k(self)

	return Changes{
		Win:  round(k * (1.0 - expected)),
		Draw: round(k * (0.5 - expected)),
		Lose: round(k * (0.0 - expected)),
	}
}

// Settle applies outcome1 (user1's result) to both initial ratings.
// Unrated duels keep the initial ratings.
func (e *Engine) Settle(init1, init2 int, outcome1 Outcome, rated bool) Settlement {
	if !rated {
		return Settlement{User1Final: init1, User2Final: init2}
	}

	delta1 := e.GetRatingChanges(init1, init2).For(outcome1)
	delta2 := e.GetRatingChanges(init2, init1).For(outcome1.Opposite())

	return Settlement{
		User1Delta: delta1,
		User2Delta: delta2,
		User1Final: init1 + delta1,
		User2Final: init2 + delta2,
	}
}

// TaskLevel maps a rating to the task difficulty level of the band containing it.
func (e *Engine) TaskLevel(rating int) int {
	for _, band := range e.config.LevelBands {
		if band.MinRating <= rating && rating <= band.MaxRating {
			return band.Level
		}
	}
	return e.config.DefaultLevel
}

func (e *Engine) k(rating int) float64 {
	for _, tier := range e.config.KTiers {
		if rating < tier.Below {
			return tier.Factor
		}
	}
	return e.config.FallbackK
}

// round is half-to-even so x.5 deltas do not drift upward over many duels.
func round(v float64) int {
	return int(math.RoundToEven(v))
}

// ParseLevelBands parses "min-max:level" items separated by commas,
// e.g. "0-1199:1,1200-1499:2". An empty string yields no bands.
func ParseLevelBands(raw string) ([]LevelBand, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var bands []LevelBand
	for _, item := range strings.Split(raw, ",") {
		interval, level, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			return nil, fmt.Errorf("level band %q: missing level", item)
		}
		lo, hi, ok := strings.Cut(interval, "-")
		if !ok {
			return nil, fmt.Errorf("level band %q: missing interval", item)
		}

		var band LevelBand
		var err error
		if band.MinRating, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
			return nil, fmt.Errorf("level band %q: min rating: %w", item, err)
		}
		if band.MaxRating, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, fmt.Errorf("level band %q: max rating: %w", item, err)
		}
		if band.Level, err = strconv.Atoi(strings.TrimSpace(level)); err != nil {
			return nil, fmt.Errorf("level band %q: level: %w", item, err)
		}
		if band.MinRating > band.MaxRating {
			return nil, fmt.Errorf("level band %q: min above max", item)
		}
		bands = append(bands, band)
	}
	return bands, nil
}
