package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/judge"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/observability"
	"github.com/codearena/arena-api/internal/repository"
	"github.com/codearena/arena-api/pkg/judge0"
)

// ErrProblemNotFound indicates the target problem does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrContestClosed indicates the contest window does not accept submissions.
var ErrContestClosed = errors.New("contest is not accepting submissions")

// ErrNotParticipant indicates the user has not registered for the contest.
var ErrNotParticipant = errors.New("user is not a contest participant")

// ErrNoTestCases indicates the problem has no grading testcases.
var ErrNoTestCases = errors.New("problem has no testcases")

// penaltyPerWrongAttempt is the penalty charged per failed attempt that
// precedes a problem's first scoring submission.
const penaltyPerWrongAttempt = 10

// SubmissionService judges incoming submissions and records their outcome.
type SubmissionService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id, viewerID uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, int64, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	contests    repository.ContestRepository
	runner      judge0.Client
	scorer      *judge.Scorer
	events      VerdictEvents
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission judging service.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	problems repository.ProblemRepository,
	contests repository.ContestRepository,
	runner judge0.Client,
	scorer *judge.Scorer,
	events VerdictEvents,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		problems:    problems,
		contests:    contests,
		runner:      runner,
		scorer:      scorer,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/codearena/arena-api/internal/service/submission"),
		now:         time.Now,
	}
}

// Submit records the submission, judges every grading testcase through the
// external runner, reduces the per-testcase verdicts into the final status
// and persists score and metrics. Testcases run sequentially; the reducer
// sees the complete verdict set before the status is written.
func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.user_id", int64(userID)),
		attribute.Int64("submission.problem_id", int64(payload.ProblemID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	problem, err := s.problems.GetByID(ctx, payload.ProblemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrProblemNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	maxScore := problem.MaxScore
	if payload.ContestID != nil {
		contestProblem, err := s.checkContestSubmission(ctx, *payload.ContestID, payload.ProblemID, userID)
		if err != nil {
			span.RecordError(err)
			return dto.SubmissionResponse{}, err
		}
		if contestProblem.MaxScore > 0 {
			maxScore = contestProblem.MaxScore
		}
	}

	cases, err := s.problems.ListTestCases(ctx, problem.ID, true)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if len(cases) == 0 {
		return dto.SubmissionResponse{}, ErrNoTestCases
	}

	submission := models.Submission{
		UserID:     userID,
		ProblemID:  problem.ID,
		ContestID:  payload.ContestID,
		LanguageID: payload.LanguageID,
		Source:     payload.Source,
		Status:     judge.VerdictPending,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	verdicts, results, maxTime, maxMemory := s.judgeTestCases(ctx, &submission, problem, cases)

	status, err := judge.Reduce(verdicts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verdict_reduction_failed")
		return dto.SubmissionResponse{}, err
	}

	submission.Status = status
	submission.ExecutionTime = maxTime
	submission.MemoryKB = maxMemory
	if status == judge.VerdictAccepted {
		submission.Score = s.scorer.ComputeScore(maxScore, maxTime, maxMemory, submission.LanguageID)
	}

	if err := s.submissions.CreateResults(ctx, results); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.ContestID != nil {
		if err := s.applyContestScore(ctx, &submission); err != nil {
			s.logger.Error().Err(err).
				Uint("submission_id", submission.ID).
				Msg("failed to apply contest score")
		}
	}

	observability.SubmissionsJudged().WithLabelValues(string(status)).Inc()

	submission.Results = results
	response := dto.NewSubmissionResponse(submission, true)
	if s.events != nil {
		s.events.Publish(ctx, response)
	}

	return response, nil
}

func (s *submissionService) checkContestSubmission(ctx context.Context, contestID, problemID, userID uint) (models.ContestProblem, error) {
	contest, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ContestProblem{}, ErrContestClosed
		}
		return models.ContestProblem{}, err
	}
	if !contest.IsRunning(s.now()) {
		return models.ContestProblem{}, ErrContestClosed
	}

	if _, err := s.contests.GetParticipant(ctx, contestID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ContestProblem{}, ErrNotParticipant
		}
		return models.ContestProblem{}, err
	}

	contestProblem, err := s.contests.GetProblem(ctx, contestID, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ContestProblem{}, ErrProblemNotFound
		}
		return models.ContestProblem{}, err
	}

	return contestProblem, nil
}

func (s *submissionService) judgeTestCases(ctx context.Context, submission *models.Submission, problem models.Problem, cases []models.TestCase) ([]judge.Verdict, []models.SubmissionResult, *float64, *float64) {
	verdicts := make([]judge.Verdict, 0, len(cases))
	results := make([]models.SubmissionResult, 0, len(cases))
	var maxTime, maxMemory *float64

	for _, testCase := range cases {
		result, err := s.runner.Judge(ctx, judge0.Request{
			LanguageID:     submission.LanguageID,
			Source:         submission.Source,
			Stdin:          testCase.Input,
			ExpectedOutput: testCase.Expected,
			CPUTimeLimit:   problem.TimeLimitSec,
			MemoryLimitKB:  problem.MemoryLimitKB,
		})

		var verdict judge.Verdict
		var output *string
		if err != nil {
			s.logger.Error().Err(err).
				Uint("submission_id", submission.ID).
				Uint("test_case_id", testCase.ID).
				Msg("judge run failed")
			verdict = judge.VerdictInternalError
		} else {
			verdict = judge.MapStatus(result.StatusID)
			if result.Stdout != "" {
				stdout := result.Stdout
				output = &stdout
			}
			maxTime = maxFloat(maxTime, result.Time)
			maxMemory = maxFloat(maxMemory, result.Memory)
			if result.Raw != nil {
				submission.JudgeRaw = datatypes.JSONMap(result.Raw)
			}
		}

		verdicts = append(verdicts, verdict)
		record := models.SubmissionResult{
			SubmissionID: submission.ID,
			TestCaseID:   testCase.ID,
			Verdict:      verdict,
			ActualOutput: output,
			Passed:       verdict == judge.VerdictAccepted,
		}
		if err == nil {
			record.Runtime = result.Time
			record.MemoryKB = result.Memory
		}
		results = append(results, record)
	}

	return verdicts, results, maxTime, maxMemory
}

// applyContestScore folds a scored submission into the participant's
// running total: only improvements over the previous best on the same
// problem count, and the wrong-attempt penalty is charged once, when the
// problem first scores.
func (s *submissionService) applyContestScore(ctx context.Context, submission *models.Submission) error {
	if submission.ContestID == nil || submission.Score <= 0 {
		return nil
	}
	contestID := *submission.ContestID

	participant, err := s.contests.GetParticipant(ctx, contestID, submission.UserID)
	if err != nil {
		return err
	}

	previousBest, err := s.submissions.BestContestScore(ctx, contestID, submission.UserID, submission.ProblemID, submission.ID)
	if err != nil {
		return err
	}

	delta := submission.Score - previousBest
	if delta <= 0 {
		return nil
	}

	if previousBest == 0 {
		failed, err := s.submissions.CountFailedBefore(ctx, contestID, submission.UserID, submission.ProblemID, submission.ID)
		if err != nil {
			return err
		}
		participant.Penalty += int(failed) * penaltyPerWrongAttempt
	}

	participant.TotalScore += delta
	return s.contests.UpdateParticipant(ctx, &participant)
}

func (s *submissionService) Get(ctx context.Context, id, viewerID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission, submission.UserID == viewerID), nil
}

func (s *submissionService) List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, int64, error) {
	submissions, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission, false))
	}
	return responses, total, nil
}

func maxFloat(current, candidate *float64) *float64 {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate > *current {
		value := *candidate
		return &value
	}
	return current
}
