package dto

import (
	"time"

	"github.com/codearena/arena-api/internal/models"
)

// SubmissionCreateRequest is the payload for submitting code to a problem.
type SubmissionCreateRequest struct {
	ProblemID  uint   `json:"problem_id" validate:"required,gt=0"`
	ContestID  *uint  `json:"contest_id" validate:"omitempty,gt=0"`
	LanguageID int    `json:"language_id" validate:"required,gt=0"`
	Source     string `json:"source" validate:"required,min=1"`
}

// SubmissionResponse serializes a submission for API clients.
type SubmissionResponse struct {
	ID            uint                       `json:"id"`
	UserID        uint                       `json:"user_id"`
	ProblemID     uint                       `json:"problem_id"`
	ContestID     *uint                      `json:"contest_id,omitempty"`
	LanguageID    int                        `json:"language_id"`
	Source        string                     `json:"source,omitempty"`
	Status        string                     `json:"status"`
	Score         int                        `json:"score"`
	ExecutionTime *float64                   `json:"execution_time,omitempty"`
	MemoryKB      *float64                   `json:"memory_kb,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	Results       []SubmissionResultResponse `json:"results,omitempty"`
}

// SubmissionResultResponse serializes one testcase outcome.
type SubmissionResultResponse struct {
	TestCaseID uint     `json:"test_case_id"`
	Verdict    string   `json:"verdict"`
	Passed     bool     `json:"passed"`
	Runtime    *float64 `json:"runtime,omitempty"`
	MemoryKB   *float64 `json:"memory_kb,omitempty"`
}

// NewSubmissionResponse builds a response DTO from a model. Source is
// included only for the submission's owner.
func NewSubmissionResponse(submission models.Submission, includeSource bool) SubmissionResponse {
	response := SubmissionResponse{
		ID:            submission.ID,
		UserID:        submission.UserID,
		ProblemID:     submission.ProblemID,
		ContestID:     submission.ContestID,
		LanguageID:    submission.LanguageID,
		Status:        string(submission.Status),
		Score:         submission.Score,
		ExecutionTime: submission.ExecutionTime,
		MemoryKB:      submission.MemoryKB,
		CreatedAt:     submission.CreatedAt,
	}

	if includeSource {
		response.Source = submission.Source
	}

	for _, result := range submission.Results {
		response.Results = append(response.Results, SubmissionResultResponse{
			TestCaseID: result.TestCaseID,
			Verdict:    string(result.Verdict),
			Passed:     result.Passed,
			Runtime:    result.Runtime,
			MemoryKB:   result.MemoryKB,
		})
	}

	return response
}
