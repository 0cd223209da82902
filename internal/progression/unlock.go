package progression

import (
	"fmt"
	"strings"

	"hunter_trials/internal/trial"
)

// UnlockPolicy decides which trials a team may enter.
type UnlockPolicy int

const (
	// Sequential opens a trial once all of its catalogue prerequisites are completed.
	Sequential UnlockPolicy = iota
	// Open unlocks every trial. Meant for playtesting.
	Open
)

func ParseUnlockPolicy(s string) (UnlockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "open":
		return Open, nil
	default:
		return Sequential, fmt.Errorf("unknown unlock policy %q", s)
	}
}

func (p UnlockPolicy) String() string {
	if p == Open {
		return "open"
	}
	return "sequential"
}

func (p UnlockPolicy) Unlocked(t trial.Trial, completed func(trial.ID) bool) bool {
	if p == Open {
		return true
	}
	for _, req := range t.Requires {
		if !completed(req) {
			return false
		}
	}
	return true
}
