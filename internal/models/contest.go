package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownScoringKind rejects scoring kinds outside the closed set.
var ErrUnknownScoringKind = errors.New("unsupported scoring kind")

// ScoringKind selects how contest submissions are scored. The enumeration
// is closed: only ScoringKindScore is implemented today. ACM-style
// time-penalty scoring is anticipated but not a valid value yet.
type ScoringKind string

// ScoringKindScore awards points per problem scaled by execution metrics.
const ScoringKindScore ScoringKind = "score"

// Validate rejects scoring kinds outside the closed set.
func (k ScoringKind) Validate() error {
	if k != ScoringKindScore {
		return fmt.Errorf("%w %q", ErrUnknownScoringKind, string(k))
	}
	return nil
}

// Contest is a timed competition over a set of problems.
type Contest struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Title       string               `gorm:"size:255;not null" json:"title"`
	Description string               `gorm:"type:text" json:"description"`
	ScoringKind ScoringKind          `gorm:"size:16;not null;default:score" json:"scoring_kind"`
	StartAt     time.Time            `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time            `gorm:"not null;index" json:"end_at"`
	FreezeAt    *time.Time           `json:"freeze_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Problems    []ContestProblem     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"problems,omitempty"`
	Parts       []ContestParticipant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsRunning reports whether the contest window is open at the given time.
func (c Contest) IsRunning(now time.Time) bool {
	return !now.Before(c.StartAt) && now.Before(c.EndAt)
}

// HasEnded reports whether the contest window closed before the given time.
func (c Contest) HasEnded(now time.Time) bool {
	return c.EndAt.Before(now)
}

// ContestProblem attaches a problem to a contest with its point ceiling.
type ContestProblem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ContestID uint    `gorm:"not null;uniqueIndex:idx_contest_problem" json:"contest_id"`
	ProblemID uint    `gorm:"not null;uniqueIndex:idx_contest_problem" json:"problem_id"`
	Label     string  `gorm:"size:8" json:"label"`
	MaxScore  int     `gorm:"not null;default:100" json:"max_score"`
	Problem   Problem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"problem,omitempty"`
}

// ContestParticipant is a user's standing within one contest. Rank stays
// nil until finalization assigns it; a contest with any nil-rank
// participant past its end time is still awaiting finalization.
type ContestParticipant struct {
	ContestID  uint      `gorm:"primaryKey;autoIncrement:false" json:"contest_id"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TotalScore int       `gorm:"not null;default:0" json:"total_score"`
	Penalty    int       `gorm:"not null;default:0" json:"penalty"`
	Rank       *int      `json:"rank,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}
