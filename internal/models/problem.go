package models

import "time"

// Problem difficulty labels.
const (
	ProblemDifficultyEasy   = "easy"
	ProblemDifficultyMedium = "medium"
	ProblemDifficultyHard   = "hard"
)

// Problem is a programming task users submit solutions against. Statement
// is sanitized HTML; MaxScore is the ceiling the score calculator scales
// against when the problem appears in a contest.
type Problem struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Slug          string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Statement     string     `gorm:"type:text" json:"statement"`
	Difficulty    string     `gorm:"size:16;not null;default:easy" json:"difficulty"`
	MaxScore      int        `gorm:"not null;default:100" json:"max_score"`
	TimeLimitSec  float64    `gorm:"not null;default:2" json:"time_limit_sec"`
	MemoryLimitKB int        `gorm:"not null;default:262144" json:"memory_limit_kb"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	TestCases     []TestCase `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
}

// TestCase is one (input, expected output) fixture of a problem. Sample
// cases are visible to solvers; the full ordered set is used for grading.
type TestCase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProblemID uint      `gorm:"not null;index" json:"problem_id"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Input     string    `gorm:"type:text" json:"input"`
	Expected  string    `gorm:"type:text" json:"expected"`
	IsSample  bool      `gorm:"not null;default:false" json:"is_sample"`
	CreatedAt time.Time `json:"created_at"`
}
