package progression

import (
	"math"
	"time"
)

const (
	MaxScore = 1000
	MinScore = 100
)

// Score rewards speed: one point lost per elapsed second, never below MinScore.
func Score(elapsed time.Duration) int {
	v := int(math.Round(MaxScore - elapsed.Seconds()))
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
