package dto

import (
	"github.com/codearena/arena-api/internal/models"
)

// ProblemResponse serializes a problem for API clients. Hidden testcases
// are never included.
type ProblemResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Slug          string             `json:"slug"`
	Statement     string             `json:"statement"`
	Difficulty    string             `json:"difficulty"`
	MaxScore      int                `json:"max_score"`
	TimeLimitSec  float64            `json:"time_limit_sec"`
	MemoryLimitKB int                `json:"memory_limit_kb"`
	Samples       []TestCaseResponse `json:"samples,omitempty"`
}

// TestCaseResponse serializes a sample testcase.
type TestCaseResponse struct {
	ID       uint   `json:"id"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// NewProblemResponse builds a problem DTO with its sample cases.
func NewProblemResponse(problem models.Problem, samples []models.TestCase) ProblemResponse {
	response := ProblemResponse{
		ID:            problem.ID,
		Title:         problem.Title,
		Slug:          problem.Slug,
		Statement:     problem.Statement,
		Difficulty:    problem.Difficulty,
		MaxScore:      problem.MaxScore,
		TimeLimitSec:  problem.TimeLimitSec,
		MemoryLimitKB: problem.MemoryLimitKB,
	}

	for _, sample := range samples {
		response.Samples = append(response.Samples, TestCaseResponse{
			ID:       sample.ID,
			Input:    sample.Input,
			Expected: sample.Expected,
		})
	}

	return response
}

// ProblemCreateRequest is the admin payload for creating a problem.
type ProblemCreateRequest struct {
	Title         string  `json:"title" validate:"required,min=3,max=255"`
	Statement     string  `json:"statement" validate:"required"`
	Difficulty    string  `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	MaxScore      int     `json:"max_score" validate:"required,gt=0"`
	TimeLimitSec  float64 `json:"time_limit_sec" validate:"omitempty,gt=0"`
	MemoryLimitKB int     `json:"memory_limit_kb" validate:"omitempty,gt=0"`
}

// TestCaseImportRequest is the admin payload replacing a problem's
// testcase set. The manifest is validated against a JSON schema before
// this struct is decoded.
type TestCaseImportRequest struct {
	Cases []TestCaseImport `json:"cases" validate:"required,min=1,dive"`
}

// TestCaseImport is one testcase in an import manifest.
type TestCaseImport struct {
	Input    string `json:"input" validate:"required"`
	Expected string `json:"expected" validate:"required"`
	IsSample bool   `json:"is_sample"`
}
