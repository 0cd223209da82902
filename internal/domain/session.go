package domain

import (
	"time"

	"hunter_trials/internal/trial"
)

// Screen - экран, на котором находится команда
type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenMap   Screen = "map"
	ScreenGuide Screen = "guide"
	ScreenTrial Screen = "trial"
)

// NodeState - состояние узла на карте
type NodeState string

const (
	NodeLocked    NodeState = "locked"
	NodeAvailable NodeState = "available"
	NodeCompleted NodeState = "completed"
)

// FeedbackModal is the success/failure message shown over a trial.
type FeedbackModal struct {
	Open    bool   `json:"open"`
	Success bool   `json:"success"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// EducationModal carries the lesson of the trial that was just completed.
type EducationModal struct {
	Open   bool          `json:"open"`
	Trial  trial.ID      `json:"trial,omitempty"`
	Lesson *trial.Lesson `json:"lesson,omitempty"`
}

type ActiveTrial struct {
	ID            trial.ID          `json:"id"`
	Title         string            `json:"title"`
	InitialAnswer string            `json:"initial_answer"`
	Assets        map[string]string `json:"assets,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
}

type MapNode struct {
	ID       trial.ID   `json:"id"`
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle"`
	Kind     trial.Kind `json:"kind"`
	State    NodeState  `json:"state"`
}

// Snapshot - полное состояние сессии, отправляемое клиенту
type Snapshot struct {
	SessionID   string              `json:"session_id"`
	Version     uint64              `json:"version"`
	TeamName    string              `json:"team_name"`
	Screen      Screen              `json:"screen"`
	ActiveTrial *ActiveTrial        `json:"active_trial,omitempty"`
	Completion  map[trial.ID]bool   `json:"completion"`
	Scores      map[trial.ID]int    `json:"scores"`
	Answers     map[trial.ID]string `json:"answers"`
	TotalScore  int                 `json:"total_score"`
	Progress    float64             `json:"progress"`
	Map         []MapNode           `json:"map"`
	Feedback    FeedbackModal       `json:"feedback"`
	Education   EducationModal      `json:"education"`
}
