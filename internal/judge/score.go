package judge

import "math"

// Judge0 language ids referenced by the default scoring table.
const (
	LanguageC          = 50
	LanguageCPP        = 54
	LanguageJava       = 62
	LanguageJavaScript = 63
	LanguagePython2    = 70
	LanguagePython3    = 71
	LanguageTypeScript = 93
)

// DefaultLanguageFactors maps Judge0 language ids to scoring multipliers.
// The table is configuration data keyed by an external catalog's opaque
// ids; extend it without touching the scoring algorithm.
var DefaultLanguageFactors = map[int]float64{
	LanguageC:          1.0,
	LanguageCPP:        1.0,
	LanguageJava:       0.95,
	LanguageJavaScript: 0.9,
	LanguageTypeScript: 0.9,
	LanguagePython2:    0.85,
	LanguagePython3:    0.85,
}

// unknownLanguageFactor applies to language ids missing from the table.
const unknownLanguageFactor = 0.9

// Scorer computes submission scores from execution metrics. The zero
// value is not usable; construct with NewScorer.
type Scorer struct {
	languageFactors map[int]float64
}

// NewScorer builds a Scorer. A nil factor table selects
// DefaultLanguageFactors.
func NewScorer(languageFactors map[int]float64) *Scorer {
	if languageFactors == nil {
		languageFactors = DefaultLanguageFactors
	}
	return &Scorer{languageFactors: languageFactors}
}

// ComputeScore derives the points awarded for a submission from the
// problem's maximum score, the slowest testcase runtime in seconds, the
// peak memory in KB, and the language. Each factor is a monotonic step
// function; absent or non-finite inputs fall back to a defined middle
// factor instead of erroring. The product is rounded half away from zero
// (math.Round) and never goes below zero.
func (s *Scorer) ComputeScore(maxScore int, executionTime, memoryKB *float64, languageID int) int {
	factor := timeFactor(executionTime) * memoryFactor(memoryKB) * s.languageFactor(languageID)
	score := math.Round(float64(maxScore) * factor)
	if score < 0 {
		return 0
	}
	return int(score)
}

func timeFactor(seconds *float64) float64 {
	if seconds == nil || math.IsNaN(*seconds) {
		return 0.5
	}
	switch t := *seconds; {
	case t <= 1:
		return 1.0
	case t <= 2:
		return 0.9
	case t <= 3:
		return 0.8
	case t <= 5:
		return 0.7
	default:
		return 0.5
	}
}

func memoryFactor(kb *float64) float64 {
	if kb == nil || math.IsNaN(*kb) {
		return 0.7
	}
	switch mb := *kb / 1024; {
	case mb <= 64:
		return 1.0
	case mb <= 128:
		return 0.9
	case mb <= 256:
		return 0.8
	default:
		return 0.7
	}
}

func (s *Scorer) languageFactor(languageID int) float64 {
	if factor, ok := s.languageFactors[languageID]; ok {
		return factor
	}
	return unknownLanguageFactor
}
