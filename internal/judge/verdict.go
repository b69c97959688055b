// Package judge holds the deterministic grading rules: mapping raw judge
// status codes to verdicts, reducing per-testcase verdicts to a single
// submission outcome, and computing scores from execution metrics.
package judge

// Verdict classifies the outcome of judging a single testcase.
type Verdict string

// Verdict values. The set is closed; persistence and API layers rely on
// these exact identifiers.
const (
	VerdictPending           Verdict = "PENDING"
	VerdictAccepted          Verdict = "ACCEPTED"
	VerdictWrongAnswer       Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictCompilationError  Verdict = "COMPILATION_ERROR"
	VerdictRuntimeError      Verdict = "RUNTIME_ERROR"
	VerdictInternalError     Verdict = "INTERNAL_ERROR"
	VerdictExecFormatError   Verdict = "EXEC_FORMAT_ERROR"
)

// MapStatus translates a judge engine status code into a Verdict. The
// mapping follows the Judge0 status catalog: 1 and 2 are queue states,
// 3 is accepted, 7 through 12 are the runtime error family. Codes outside
// the table map to VerdictPending rather than failing, so the function is
// total over integers.
func MapStatus(code int) Verdict {
	switch {
	case code == 1 || code == 2:
		return VerdictPending
	case code == 3:
		return VerdictAccepted
	case code == 4:
		return VerdictWrongAnswer
	case code == 5:
		return VerdictTimeLimitExceeded
	case code == 6:
		return VerdictCompilationError
	case code >= 7 && code <= 12:
		return VerdictRuntimeError
	case code == 13:
		return VerdictInternalError
	case code == 14:
		return VerdictExecFormatError
	default:
		return VerdictPending
	}
}

// IsTerminal reports whether the verdict represents a finished judgement.
func (v Verdict) IsTerminal() bool {
	return v != VerdictPending
}
