package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
)

type stubContestRepo struct {
	contests        map[uint]models.Contest
	contestProblems map[uint]map[uint]models.ContestProblem
	participants    map[uint][]models.ContestParticipant
	userScores      map[uint]int
	applyErr        error
	applyCalls      int
}

func newStubContestRepo() *stubContestRepo {
	return &stubContestRepo{
		contests:        map[uint]models.Contest{},
		contestProblems: map[uint]map[uint]models.ContestProblem{},
		participants:    map[uint][]models.ContestParticipant{},
		userScores:      map[uint]int{},
	}
}

func (s *stubContestRepo) List(ctx context.Context, page, pageSize int) ([]models.Contest, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (s *stubContestRepo) GetByID(ctx context.Context, id uint) (models.Contest, error) {
	contest, ok := s.contests[id]
	if !ok {
		return models.Contest{}, gorm.ErrRecordNotFound
	}
	return contest, nil
}

func (s *stubContestRepo) Create(ctx context.Context, contest *models.Contest) error {
	s.contests[contest.ID] = *contest
	return nil
}

func (s *stubContestRepo) ListProblems(ctx context.Context, contestID uint) ([]models.ContestProblem, error) {
	return nil, nil
}

func (s *stubContestRepo) GetProblem(ctx context.Context, contestID, problemID uint) (models.ContestProblem, error) {
	if problem, ok := s.contestProblems[contestID][problemID]; ok {
		return problem, nil
	}
	return models.ContestProblem{}, gorm.ErrRecordNotFound
}

func (s *stubContestRepo) AddParticipant(ctx context.Context, participant *models.ContestParticipant) error {
	s.participants[participant.ContestID] = append(s.participants[participant.ContestID], *participant)
	return nil
}

func (s *stubContestRepo) GetParticipant(ctx context.Context, contestID, userID uint) (models.ContestParticipant, error) {
	for _, participant := range s.participants[contestID] {
		if participant.UserID == userID {
			return participant, nil
		}
	}
	return models.ContestParticipant{}, gorm.ErrRecordNotFound
}

func (s *stubContestRepo) UpdateParticipant(ctx context.Context, participant *models.ContestParticipant) error {
	list := s.participants[participant.ContestID]
	for i := range list {
		if list[i].UserID == participant.UserID {
			list[i] = *participant
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubContestRepo) ListParticipants(ctx context.Context, contestID uint) ([]models.ContestParticipant, error) {
	out := make([]models.ContestParticipant, len(s.participants[contestID]))
	copy(out, s.participants[contestID])
	return out, nil
}

func (s *stubContestRepo) ListFinalizable(ctx context.Context, now time.Time) ([]models.Contest, error) {
	var eligible []models.Contest
	for id, contest := range s.contests {
		if !contest.EndAt.Before(now) {
			continue
		}
		for _, participant := range s.participants[id] {
			if participant.Rank == nil {
				eligible = append(eligible, contest)
				break
			}
		}
	}
	return eligible, nil
}

func (s *stubContestRepo) ApplyFinalization(ctx context.Context, updates []repository.RankUpdate) error {
	s.applyCalls++
	if s.applyErr != nil {
		return s.applyErr
	}
	for _, update := range updates {
		list := s.participants[update.ContestID]
		for i := range list {
			if list[i].UserID == update.UserID {
				rank := update.Rank
				list[i].Rank = &rank
			}
		}
		if update.Credited {
			s.userScores[update.UserID] += update.Credit
		}
	}
	return nil
}

func finalizerFixture(t *testing.T, options FinalizerOptions) (*stubContestRepo, FinalizerService) {
	t.Helper()
	repo := newStubContestRepo()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	repo.contests[1] = models.Contest{
		ID:      1,
		Title:   "Weekly Round",
		StartAt: now.Add(-3 * time.Hour),
		EndAt:   now.Add(-time.Hour),
	}

	base := now.Add(-3 * time.Hour)
	repo.participants[1] = []models.ContestParticipant{
		{ContestID: 1, UserID: 10, TotalScore: 50, Penalty: 1, JoinedAt: base},
		{ContestID: 1, UserID: 11, TotalScore: 80, Penalty: 2, JoinedAt: base.Add(time.Minute)},
		{ContestID: 1, UserID: 12, TotalScore: 80, Penalty: 1, JoinedAt: base.Add(2 * time.Minute)},
		{ContestID: 1, UserID: 13, TotalScore: 30, Penalty: 0, JoinedAt: base.Add(3 * time.Minute)},
	}

	service := NewFinalizerService(repo, nil, options, zerolog.Nop()).(*finalizerService)
	service.now = func() time.Time { return now }
	return repo, service
}

func ranksByUser(repo *stubContestRepo, contestID uint) map[uint]int {
	ranks := map[uint]int{}
	for _, participant := range repo.participants[contestID] {
		if participant.Rank != nil {
			ranks[participant.UserID] = *participant.Rank
		}
	}
	return ranks
}

func TestFinalizeDueAssignsDenseRanksWithPenaltyTiebreak(t *testing.T) {
	repo, service := finalizerFixture(t, FinalizerOptions{CreditOnlyUnranked: true})

	finalized, err := service.FinalizeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, finalized)

	ranks := ranksByUser(repo, 1)
	// Tied at 80: penalty 1 ranks above penalty 2. No shared rank values.
	require.Equal(t, 1, ranks[12])
	require.Equal(t, 2, ranks[11])
	require.Equal(t, 3, ranks[10])
	require.Equal(t, 4, ranks[13])

	require.Equal(t, 50, repo.userScores[10])
	require.Equal(t, 80, repo.userScores[11])
	require.Equal(t, 80, repo.userScores[12])
	require.Equal(t, 30, repo.userScores[13])
}

func TestFinalizeDueIsIdempotentAcrossRuns(t *testing.T) {
	repo, service := finalizerFixture(t, FinalizerOptions{CreditOnlyUnranked: true})

	_, err := service.FinalizeDue(context.Background())
	require.NoError(t, err)

	// Second run sees no unranked participants: the contest is no longer
	// eligible and nobody is credited twice.
	finalized, err := service.FinalizeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, finalized)

	require.Equal(t, 50, repo.userScores[10])
	require.Equal(t, 80, repo.userScores[11])
	require.Equal(t, 80, repo.userScores[12])
	require.Equal(t, 30, repo.userScores[13])
}

func TestFinalizeDueCreditsOnlyUnrankedOnRetry(t *testing.T) {
	repo, service := finalizerFixture(t, FinalizerOptions{CreditOnlyUnranked: true})

	// Simulate a crashed previous run: two participants already ranked
	// and credited, two not.
	one, two := 1, 2
	repo.participants[1][2].Rank = &one // user 12
	repo.participants[1][1].Rank = &two // user 11
	repo.userScores[12] = 80
	repo.userScores[11] = 80

	finalized, err := service.FinalizeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, finalized)

	// Everyone is re-ranked consistently, but only the previously
	// unranked participants receive credit.
	ranks := ranksByUser(repo, 1)
	require.Equal(t, map[uint]int{12: 1, 11: 2, 10: 3, 13: 4}, ranks)
	require.Equal(t, 80, repo.userScores[12])
	require.Equal(t, 80, repo.userScores[11])
	require.Equal(t, 50, repo.userScores[10])
	require.Equal(t, 30, repo.userScores[13])
}

func TestFinalizeDueLegacyModeRecreditsRankedParticipants(t *testing.T) {
	repo, service := finalizerFixture(t, FinalizerOptions{CreditOnlyUnranked: false})

	one := 1
	repo.participants[1][2].Rank = &one // user 12 already ranked+credited
	repo.userScores[12] = 80

	_, err := service.FinalizeDue(context.Background())
	require.NoError(t, err)

	// Legacy behavior: the retry re-credits the already-ranked
	// participant. Kept behind the flag for compatibility testing only.
	require.Equal(t, 160, repo.userScores[12])
}

func TestFinalizeDueFailedContestStaysEligible(t *testing.T) {
	repo, service := finalizerFixture(t, FinalizerOptions{CreditOnlyUnranked: true})
	repo.applyErr = errors.New("connection reset")

	finalized, err := service.FinalizeDue(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, finalized)

	repo.applyErr = nil
	finalized, err = service.FinalizeDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, finalized)
	require.Equal(t, 2, repo.applyCalls)
}

func TestRankParticipantsStableLastResortOrder(t *testing.T) {
	participants := []models.ContestParticipant{
		{UserID: 1, TotalScore: 40, Penalty: 5},
		{UserID: 2, TotalScore: 40, Penalty: 5},
		{UserID: 3, TotalScore: 40, Penalty: 5},
	}

	rankParticipants(participants)

	// Fully tied participants keep their input order.
	require.Equal(t, uint(1), participants[0].UserID)
	require.Equal(t, uint(2), participants[1].UserID)
	require.Equal(t, uint(3), participants[2].UserID)
}
