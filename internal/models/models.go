package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	Password    string    `json:"-"`
	IsGuest     bool      `json:"isGuest"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserStats represents user statistics
type UserStats struct {
	UserID          string     `json:"userId"`
	PuzzlesSolved   int        `json:"puzzlesSolved"`
	AvgSolveTime    float64    `json:"avgSolveTime"` // seconds
	StreakCurrent   int        `json:"streakCurrent"`
	StreakBest      int        `json:"streakBest"`
	TotalPlayTime   int        `json:"totalPlayTime"` // seconds
	LastPlayedAt    *time.Time `json:"lastPlayedAt,omitempty"`
}

// UserWithStats combines user and stats
type UserWithStats struct {
	User  User      `json:"user"`
	Stats UserStats `json:"stats"`
}

// Difficulty levels for puzzles
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Puzzle is the persisted, rendered form of a sealed generation result:
// the shape pkg/output and the archive/solve endpoints consume. It is
// filled in from puzzle.Result by pkg/puzzle.ToModelsPuzzle once a job
// completes.
type Puzzle struct {
	ID           string       `json:"id"`
	Date         *string      `json:"date,omitempty"` // YYYY-MM-DD, null for archive-only
	Title        string       `json:"title"`
	Author       string       `json:"author"`
	Difficulty   Difficulty   `json:"difficulty"`
	GridWidth    int          `json:"gridWidth"`
	GridHeight   int          `json:"gridHeight"`
	Grid         [][]GridCell `json:"grid"`
	CluesAcross  []Clue       `json:"cluesAcross"`
	CluesDown    []Clue       `json:"cluesDown"`
	Theme        *string      `json:"theme,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	PublishedAt  *time.Time   `json:"publishedAt,omitempty"`
	Status       string       `json:"status"` // draft, approved, published
}

// GridCell represents a single cell in the puzzle grid
type GridCell struct {
	Letter    *string `json:"letter"`           // null = black square / clue box
	Number    *int    `json:"number,omitempty"` // clue number if start of word
	IsCircled bool    `json:"isCircled,omitempty"`
}

// Clue represents a single clue
type Clue struct {
	Number    int    `json:"number"`
	Text      string `json:"text"`
	Answer    string `json:"answer"`
	PositionX int    `json:"positionX"` // starting cell column
	PositionY int    `json:"positionY"` // starting cell row
	Length    int    `json:"length"`
	Direction string `json:"direction"` // "across" or "down"
}

// JobStatus is the lifecycle state of an enqueued generation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// GenerationJob is a persisted async generation request: POST /v1/puzzles
// creates one in JobQueued state and a worker advances it through
// JobRunning to JobSucceeded/JobFailed. GET /v1/puzzles/:id/events relays
// a failed job's per-attempt failure trace over the websocket hub; status
// changes themselves are not pushed there and are read with
// GET /v1/puzzles/:id.
type GenerationJob struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Status     JobStatus `json:"status"`
	ConfigJSON []byte    `json:"-"` // the puzzle.Config this job was submitted with, serialized
	PuzzleID   *string   `json:"puzzleId,omitempty"`
	Error      *string   `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
