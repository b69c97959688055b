package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/judge"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
	"github.com/codearena/arena-api/pkg/judge0"
)

type stubProblemRepo struct {
	problems map[uint]models.Problem
	cases    map[uint][]models.TestCase
}

func newStubProblemRepo() *stubProblemRepo {
	return &stubProblemRepo{
		problems: map[uint]models.Problem{},
		cases:    map[uint][]models.TestCase{},
	}
}

func (s *stubProblemRepo) List(ctx context.Context, filter repository.ProblemFilter) ([]models.Problem, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (s *stubProblemRepo) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	problem, ok := s.problems[id]
	if !ok {
		return models.Problem{}, gorm.ErrRecordNotFound
	}
	return problem, nil
}

func (s *stubProblemRepo) GetBySlug(ctx context.Context, slug string) (models.Problem, error) {
	for _, problem := range s.problems {
		if problem.Slug == slug {
			return problem, nil
		}
	}
	return models.Problem{}, gorm.ErrRecordNotFound
}

func (s *stubProblemRepo) Create(ctx context.Context, problem *models.Problem) error {
	s.problems[problem.ID] = *problem
	return nil
}

func (s *stubProblemRepo) Update(ctx context.Context, problem *models.Problem) error {
	s.problems[problem.ID] = *problem
	return nil
}

func (s *stubProblemRepo) ListTestCases(ctx context.Context, problemID uint, includeHidden bool) ([]models.TestCase, error) {
	var out []models.TestCase
	for _, testCase := range s.cases[problemID] {
		if !includeHidden && !testCase.IsSample {
			continue
		}
		out = append(out, testCase)
	}
	return out, nil
}

func (s *stubProblemRepo) ReplaceTestCases(ctx context.Context, problemID uint, cases []models.TestCase) error {
	s.cases[problemID] = cases
	return nil
}

type stubSubmissionRepo struct {
	submissions  map[uint]models.Submission
	results      []models.SubmissionResult
	nextID       uint
	previousBest int
	failedBefore int64
}

func newStubSubmissionRepo() *stubSubmissionRepo {
	return &stubSubmissionRepo{submissions: map[uint]models.Submission{}}
}

func (s *stubSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	s.nextID++
	submission.ID = s.nextID
	submission.CreatedAt = time.Now()
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *stubSubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	if _, ok := s.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *stubSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := s.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *stubSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, int64, error) {
	var out []models.Submission
	for _, submission := range s.submissions {
		out = append(out, submission)
	}
	return out, int64(len(out)), nil
}

func (s *stubSubmissionRepo) CreateResults(ctx context.Context, results []models.SubmissionResult) error {
	s.results = append(s.results, results...)
	return nil
}

func (s *stubSubmissionRepo) BestContestScore(ctx context.Context, contestID, userID, problemID, excludeID uint) (int, error) {
	return s.previousBest, nil
}

func (s *stubSubmissionRepo) CountFailedBefore(ctx context.Context, contestID, userID, problemID, beforeID uint) (int64, error) {
	return s.failedBefore, nil
}

type stubJudgeCall struct {
	result judge0.Result
	err    error
}

type stubRunner struct {
	calls []stubJudgeCall
	seen  []judge0.Request
}

func (s *stubRunner) Judge(ctx context.Context, request judge0.Request) (judge0.Result, error) {
	s.seen = append(s.seen, request)
	if len(s.calls) == 0 {
		return judge0.Result{}, errors.New("no queued result")
	}
	call := s.calls[0]
	s.calls = s.calls[1:]
	return call.result, call.err
}

type stubEvents struct {
	published []dto.SubmissionResponse
}

func (s *stubEvents) Publish(ctx context.Context, submission dto.SubmissionResponse) {
	s.published = append(s.published, submission)
}

func (s *stubEvents) Subscribe(userID uint) (<-chan dto.SubmissionResponse, func()) {
	channel := make(chan dto.SubmissionResponse)
	close(channel)
	return channel, func() {}
}

func (s *stubEvents) Start(ctx context.Context) {}

func floatPtr(v float64) *float64 { return &v }

func acceptedCall(timeSec, memoryKB float64) stubJudgeCall {
	return stubJudgeCall{result: judge0.Result{
		StatusID: 3,
		Time:     floatPtr(timeSec),
		Memory:   floatPtr(memoryKB),
	}}
}

type submissionFixture struct {
	problems    *stubProblemRepo
	contests    *stubContestRepo
	submissions *stubSubmissionRepo
	runner      *stubRunner
	events      *stubEvents
	service     SubmissionService
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	fixture := &submissionFixture{
		problems:    newStubProblemRepo(),
		contests:    newStubContestRepo(),
		submissions: newStubSubmissionRepo(),
		runner:      &stubRunner{},
		events:      &stubEvents{},
	}

	fixture.problems.problems[1] = models.Problem{
		ID:            1,
		Title:         "Two Sum",
		Slug:          "two-sum",
		MaxScore:      100,
		TimeLimitSec:  2,
		MemoryLimitKB: 128 * 1024,
	}
	fixture.problems.cases[1] = []models.TestCase{
		{ID: 11, ProblemID: 1, Position: 1, Input: "1 2", Expected: "3", IsSample: true},
		{ID: 12, ProblemID: 1, Position: 2, Input: "5 7", Expected: "12"},
	}

	fixture.service = NewSubmissionService(
		fixture.submissions,
		fixture.problems,
		fixture.contests,
		fixture.runner,
		judge.NewScorer(nil),
		fixture.events,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	return fixture
}

func submitPayload(contestID *uint) dto.SubmissionCreateRequest {
	return dto.SubmissionCreateRequest{
		ProblemID:  1,
		ContestID:  contestID,
		LanguageID: judge.LanguageC,
		Source:     "int main() { return 0; }",
	}
}

func TestSubmitAcceptedScoresAndPublishes(t *testing.T) {
	fixture := newSubmissionFixture(t)
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		acceptedCall(0.8, 1024),
	}

	response, err := fixture.service.Submit(context.Background(), 7, submitPayload(nil))
	require.NoError(t, err)

	require.Equal(t, string(judge.VerdictAccepted), response.Status)
	// Slowest case 0.8s, peak memory 1 MB, C factor, all 1.0.
	require.Equal(t, 100, response.Score)
	require.Len(t, response.Results, 2)
	require.True(t, response.Results[0].Passed)
	require.Equal(t, floatPtr(0.8), response.ExecutionTime)

	require.Len(t, fixture.runner.seen, 2)
	require.Equal(t, "5 7", fixture.runner.seen[1].Stdin)

	require.Len(t, fixture.events.published, 1)
	require.Equal(t, response.ID, fixture.events.published[0].ID)

	stored := fixture.submissions.submissions[response.ID]
	require.Equal(t, judge.VerdictAccepted, stored.Status)
	require.Equal(t, 100, stored.Score)
}

func TestSubmitWrongAnswerScoresZero(t *testing.T) {
	fixture := newSubmissionFixture(t)
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		{result: judge0.Result{StatusID: 4, Time: floatPtr(0.5), Memory: floatPtr(900)}},
	}

	response, err := fixture.service.Submit(context.Background(), 7, submitPayload(nil))
	require.NoError(t, err)

	require.Equal(t, string(judge.VerdictWrongAnswer), response.Status)
	require.Equal(t, 0, response.Score)
	require.False(t, response.Results[1].Passed)
}

func TestSubmitRunnerFailureBecomesInternalError(t *testing.T) {
	fixture := newSubmissionFixture(t)
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		{err: errors.New("judge0 unavailable")},
	}

	response, err := fixture.service.Submit(context.Background(), 7, submitPayload(nil))
	require.NoError(t, err)

	require.Equal(t, string(judge.VerdictInternalError), response.Status)
	require.Equal(t, 0, response.Score)
}

func TestSubmitRejectsUnknownProblem(t *testing.T) {
	fixture := newSubmissionFixture(t)

	payload := submitPayload(nil)
	payload.ProblemID = 99

	_, err := fixture.service.Submit(context.Background(), 7, payload)
	require.ErrorIs(t, err, ErrProblemNotFound)
}

func TestSubmitRejectsProblemWithoutTestCases(t *testing.T) {
	fixture := newSubmissionFixture(t)
	fixture.problems.cases[1] = nil

	_, err := fixture.service.Submit(context.Background(), 7, submitPayload(nil))
	require.ErrorIs(t, err, ErrNoTestCases)
}

func contestSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	fixture := newSubmissionFixture(t)
	now := time.Now()
	fixture.contests.contests[5] = models.Contest{
		ID:      5,
		Title:   "Weekly Round",
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(time.Hour),
	}
	fixture.contests.contestProblems[5] = map[uint]models.ContestProblem{
		1: {ContestID: 5, ProblemID: 1, Label: "A", MaxScore: 50},
	}
	fixture.contests.participants[5] = []models.ContestParticipant{
		{ContestID: 5, UserID: 7, JoinedAt: now.Add(-time.Hour)},
	}
	return fixture
}

func TestSubmitContestUsesContestMaxScore(t *testing.T) {
	fixture := contestSubmissionFixture(t)
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		acceptedCall(0.5, 1024),
	}

	contestID := uint(5)
	response, err := fixture.service.Submit(context.Background(), 7, submitPayload(&contestID))
	require.NoError(t, err)

	require.Equal(t, string(judge.VerdictAccepted), response.Status)
	require.Equal(t, 50, response.Score)

	participant, err := fixture.contests.GetParticipant(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 50, participant.TotalScore)
}

func TestSubmitContestCreditsOnlyImprovement(t *testing.T) {
	fixture := contestSubmissionFixture(t)
	fixture.submissions.previousBest = 20
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		acceptedCall(0.5, 1024),
	}

	contestID := uint(5)
	_, err := fixture.service.Submit(context.Background(), 7, submitPayload(&contestID))
	require.NoError(t, err)

	participant, err := fixture.contests.GetParticipant(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 30, participant.TotalScore)
	require.Equal(t, 0, participant.Penalty)
}

func TestSubmitContestChargesPenaltyOnFirstScore(t *testing.T) {
	fixture := contestSubmissionFixture(t)
	fixture.submissions.failedBefore = 2
	fixture.runner.calls = []stubJudgeCall{
		acceptedCall(0.4, 900),
		acceptedCall(0.5, 1024),
	}

	contestID := uint(5)
	_, err := fixture.service.Submit(context.Background(), 7, submitPayload(&contestID))
	require.NoError(t, err)

	participant, err := fixture.contests.GetParticipant(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 50, participant.TotalScore)
	require.Equal(t, 20, participant.Penalty)
}

func TestSubmitContestRejectsClosedWindow(t *testing.T) {
	fixture := contestSubmissionFixture(t)
	contest := fixture.contests.contests[5]
	contest.EndAt = time.Now().Add(-time.Minute)
	fixture.contests.contests[5] = contest

	contestID := uint(5)
	_, err := fixture.service.Submit(context.Background(), 7, submitPayload(&contestID))
	require.ErrorIs(t, err, ErrContestClosed)
}

func TestSubmitContestRejectsNonParticipant(t *testing.T) {
	fixture := contestSubmissionFixture(t)
	fixture.runner.calls = []stubJudgeCall{acceptedCall(0.4, 900)}

	contestID := uint(5)
	_, err := fixture.service.Submit(context.Background(), 99, submitPayload(&contestID))
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestGetHidesSourceFromOtherUsers(t *testing.T) {
	fixture := newSubmissionFixture(t)
	fixture.submissions.submissions[42] = models.Submission{
		ID:     42,
		UserID: 7,
		Source: "secret",
		Status: judge.VerdictAccepted,
	}

	mine, err := fixture.service.Get(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Equal(t, "secret", mine.Source)

	theirs, err := fixture.service.Get(context.Background(), 42, 8)
	require.NoError(t, err)
	require.Empty(t, theirs.Source)
}
