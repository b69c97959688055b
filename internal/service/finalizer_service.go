package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/observability"
	"github.com/codearena/arena-api/internal/repository"
)

// FinalizerService settles ended contests: it computes final standings,
// assigns ranks and credits each participant's total to their user's
// global score. A contest is eligible while its window has closed and at
// least one participant has no rank; once every participant is ranked the
// contest never comes back.
type FinalizerService interface {
	FinalizeDue(ctx context.Context) (int, error)
}

// FinalizerOptions tune finalization behavior.
type FinalizerOptions struct {
	// CreditOnlyUnranked keeps retries of a partially-finalized contest
	// from crediting already-ranked participants a second time. Disable
	// only to reproduce the legacy re-crediting behavior in tests.
	CreditOnlyUnranked bool
}

type finalizerService struct {
	contests repository.ContestRepository
	cache    StandingsInvalidator
	options  FinalizerOptions
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// StandingsInvalidator drops cached standings after finalization. The
// leaderboard service implements it; a nil invalidator is a no-op.
type StandingsInvalidator interface {
	InvalidateStandings(ctx context.Context, contestID uint)
}

// NewFinalizerService constructs the contest finalizer.
func NewFinalizerService(contests repository.ContestRepository, cache StandingsInvalidator, options FinalizerOptions, logger zerolog.Logger) FinalizerService {
	return &finalizerService{
		contests: contests,
		cache:    cache,
		options:  options,
		logger:   logger.With().Str("component", "finalizer_service").Logger(),
		tracer:   otel.Tracer("github.com/codearena/arena-api/internal/service/finalizer"),
		now:      time.Now,
	}
}

// FinalizeDue settles every eligible contest sequentially and returns how
// many were finalized. A failure in one contest is logged and reported but
// does not stop the remaining contests; the failed contest stays eligible
// for the next run.
func (s *finalizerService) FinalizeDue(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "finalizer.finalize_due")
	defer span.End()

	contests, err := s.contests.ListFinalizable(ctx, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "eligibility_query_failed")
		return 0, err
	}

	finalized := 0
	var lastErr error
	for _, contest := range contests {
		if err := s.finalizeContest(ctx, contest); err != nil {
			s.logger.Error().Err(err).
				Uint("contest_id", contest.ID).
				Msg("contest finalization failed, will retry next run")
			lastErr = err
			continue
		}
		finalized++
		observability.ContestsFinalized().Inc()
	}

	span.SetAttributes(attribute.Int("finalizer.contests_finalized", finalized))
	return finalized, lastErr
}

func (s *finalizerService) finalizeContest(ctx context.Context, contest models.Contest) error {
	participants, err := s.contests.ListParticipants(ctx, contest.ID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return nil
	}

	rankParticipants(participants)

	updates := make([]repository.RankUpdate, 0, len(participants))
	for i, participant := range participants {
		credited := true
		if s.options.CreditOnlyUnranked && participant.Rank != nil {
			credited = false
		}
		updates = append(updates, repository.RankUpdate{
			ContestID: contest.ID,
			UserID:    participant.UserID,
			Rank:      i + 1,
			Credit:    participant.TotalScore,
			Credited:  credited,
		})
	}

	if err := s.contests.ApplyFinalization(ctx, updates); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateStandings(ctx, contest.ID)
	}

	s.logger.Info().
		Uint("contest_id", contest.ID).
		Int("participants", len(participants)).
		Msg("contest finalized")

	return nil
}

// rankParticipants sorts standings in place: total score descending,
// penalty ascending, and the incoming order (join time, user id) as the
// deterministic tiebreak of last resort. Ranks are strictly dense by sort
// position; tied participants do not share a rank value.
func rankParticipants(participants []models.ContestParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].TotalScore != participants[j].TotalScore {
			return participants[i].TotalScore > participants[j].TotalScore
		}
		return participants[i].Penalty < participants[j].Penalty
	})
}
