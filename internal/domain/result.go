package domain

import (
	"time"

	"hunter_trials/internal/trial"
)

// SessionResult - итог сессии, отправляемый после финального испытания
type SessionResult struct {
	SessionID   string              `db:"session_id" json:"session_id"`
	TeamName    string              `db:"team_name" json:"team_name"`
	SubmittedAt time.Time           `db:"submitted_at" json:"submitted_at"`
	Scores      map[trial.ID]int    `db:"scores" json:"scores"`
	Progress    map[trial.ID]bool   `db:"progress" json:"progress"`
	Answers     map[trial.ID]string `db:"answers" json:"answers"`
	TotalScore  int                 `db:"total_score" json:"total_score"`
}

type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	SessionID   string    `json:"session_id"`
	TeamName    string    `json:"team_name"`
	TotalScore  int       `json:"total_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
