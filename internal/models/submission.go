package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/codearena/arena-api/internal/judge"
)

// Submission is one code run against a problem. Status starts at PENDING
// and is written exactly once after judging; ExecutionTime and MemoryKB
// hold the maxima across testcases and stay nil when no testcase produced
// a numeric value.
type Submission struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        uint               `gorm:"not null;index" json:"user_id"`
	ProblemID     uint               `gorm:"not null;index" json:"problem_id"`
	ContestID     *uint              `gorm:"index" json:"contest_id,omitempty"`
	LanguageID    int                `gorm:"not null" json:"language_id"`
	Source        string             `gorm:"type:text" json:"source"`
	Status        judge.Verdict      `gorm:"size:32;not null;default:PENDING" json:"status"`
	Score         int                `gorm:"not null;default:0" json:"score"`
	ExecutionTime *float64           `json:"execution_time,omitempty"`
	MemoryKB      *float64           `json:"memory_kb,omitempty"`
	JudgeRaw      datatypes.JSONMap  `json:"judge_raw,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Results       []SubmissionResult `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"results,omitempty"`
}

// IsJudged reports whether the submission reached a terminal status.
func (s Submission) IsJudged() bool {
	return s.Status.IsTerminal()
}

// SubmissionResult is one testcase outcome for a submission. Rows are
// bulk-created after all testcases are judged and never mutated.
type SubmissionResult struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	SubmissionID uint          `gorm:"not null;index" json:"submission_id"`
	TestCaseID   uint          `gorm:"not null" json:"test_case_id"`
	Verdict      judge.Verdict `gorm:"size:32;not null" json:"verdict"`
	ActualOutput *string       `gorm:"type:text" json:"actual_output,omitempty"`
	Passed       bool          `gorm:"not null;default:false" json:"passed"`
	Runtime      *float64      `json:"runtime,omitempty"`
	MemoryKB     *float64      `json:"memory_kb,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
