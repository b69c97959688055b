package judge

import "errors"

// ErrNoVerdicts indicates Reduce was called with an empty verdict list.
// That is a caller bug: every judged submission has at least one testcase.
var ErrNoVerdicts = errors.New("judge: no verdicts to reduce")

// outcomePriority is the severity order used when collapsing testcase
// verdicts into one submission outcome. Failures worse than a wrong answer
// dominate regardless of position in the testcase list.
var outcomePriority = []Verdict{
	VerdictInternalError,
	VerdictCompilationError,
	VerdictExecFormatError,
	VerdictRuntimeError,
	VerdictTimeLimitExceeded,
	VerdictWrongAnswer,
}

// Reduce collapses the per-testcase verdicts of one submission into its
// overall outcome. The highest-severity failure present wins; ACCEPTED
// requires every testcase to be accepted. A mix of accepted and pending
// verdicts with no failure reduces to PENDING, never to a false accept.
func Reduce(verdicts []Verdict) (Verdict, error) {
	if len(verdicts) == 0 {
		return VerdictPending, ErrNoVerdicts
	}

	present := make(map[Verdict]struct{}, len(verdicts))
	for _, v := range verdicts {
		present[v] = struct{}{}
	}

	for _, candidate := range outcomePriority {
		if _, ok := present[candidate]; ok {
			return candidate, nil
		}
	}

	if _, accepted := present[VerdictAccepted]; accepted && len(present) == 1 {
		return VerdictAccepted, nil
	}

	return VerdictPending, nil
}
