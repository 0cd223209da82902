package session

import (
	"hunter_trials/internal/trial"
)

// State is the progress of one team: completion flags, frozen scores and
// the latest answer saved by each trial. It is not safe for concurrent use;
// the progression controller owns it and serializes every access.
type State struct {
	teamName   string
	counted    []trial.ID
	completion map[trial.ID]bool
	scores     map[trial.ID]int
	answers    map[trial.ID]string
}

// New creates the state for a team with every completion flag cleared.
// counted lists the trials that make up the progress denominator.
func New(teamName string, counted []trial.ID) *State {
	s := &State{
		teamName:   teamName,
		counted:    append([]trial.ID(nil), counted...),
		completion: make(map[trial.ID]bool),
		scores:     make(map[trial.ID]int),
		answers:    make(map[trial.ID]string),
	}
	for _, id := range trial.Known() {
		s.completion[id] = false
	}
	return s
}

func (s *State) TeamName() string { return s.teamName }

// RecordAnswer stores text as the latest answer of the trial, replacing any
// earlier one.
func (s *State) RecordAnswer(id trial.ID, text string) {
	s.answers[id] = text
}

// MarkComplete flags the trial as completed. Flags are never cleared.
func (s *State) MarkComplete(id trial.ID) {
	s.completion[id] = true
}

// RecordScore stores the score only if the trial has none yet and reports
// whether it did.
func (s *State) RecordScore(id trial.ID, value int) bool {
	if _, ok := s.scores[id]; ok {
		return false
	}
	s.scores[id] = value
	return true
}

func (s *State) Completed(id trial.ID) bool { return s.completion[id] }

func (s *State) Score(id trial.ID) (int, bool) {
	v, ok := s.scores[id]
	return v, ok
}

func (s *State) Answer(id trial.ID) (string, bool) {
	v, ok := s.answers[id]
	return v, ok
}

func (s *State) TotalScore() int {
	total := 0
	for _, v := range s.scores {
		total += v
	}
	return total
}

// ProgressPercent is the share of counted trials completed, 0..100.
func (s *State) ProgressPercent() float64 {
	if len(s.counted) == 0 {
		return 0
	}
	done := 0
	for _, id := range s.counted {
		if s.completion[id] {
			done++
		}
	}
	return float64(done) / float64(len(s.counted)) * 100
}

func (s *State) Completion() map[trial.ID]bool {
	out := make(map[trial.ID]bool, len(s.completion))
	for k, v := range s.completion {
		out[k] = v
	}
	return out
}

func (s *State) Scores() map[trial.ID]int {
	out := make(map[trial.ID]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

func (s *State) Answers() map[trial.ID]string {
	out := make(map[trial.ID]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}
