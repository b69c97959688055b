package dto

import (
	"time"

	"github.com/codearena/arena-api/internal/models"
)

// ContestCreateRequest is the admin payload for creating a contest.
type ContestCreateRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description"`
	ScoringKind string     `json:"scoring_kind" validate:"required"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	EndAt       time.Time  `json:"end_at" validate:"required,gtfield=StartAt"`
	FreezeAt    *time.Time `json:"freeze_at"`
}

// ContestResponse serializes a contest for API clients.
type ContestResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ScoringKind string     `json:"scoring_kind"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	FreezeAt    *time.Time `json:"freeze_at,omitempty"`
	Running     bool       `json:"running"`
	Ended       bool       `json:"ended"`
}

// NewContestResponse builds a contest DTO relative to the given time.
func NewContestResponse(contest models.Contest, now time.Time) ContestResponse {
	return ContestResponse{
		ID:          contest.ID,
		Title:       contest.Title,
		Description: contest.Description,
		ScoringKind: string(contest.ScoringKind),
		StartAt:     contest.StartAt,
		EndAt:       contest.EndAt,
		FreezeAt:    contest.FreezeAt,
		Running:     contest.IsRunning(now),
		Ended:       contest.HasEnded(now),
	}
}

// StandingRow is one leaderboard entry.
type StandingRow struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
	Penalty    int    `json:"penalty"`
	Rank       *int   `json:"rank,omitempty"`
	Position   int    `json:"position"`
}

// StandingsResponse is the contest leaderboard payload.
type StandingsResponse struct {
	ContestID uint          `json:"contest_id"`
	Final     bool          `json:"final"`
	Rows      []StandingRow `json:"rows"`
}
