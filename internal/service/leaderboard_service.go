package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
)

// ErrContestNotFound indicates the contest does not exist.
var ErrContestNotFound = errors.New("contest not found")

// LeaderboardService serves contest standings, cached in redis while a
// contest is hot. It also implements StandingsInvalidator so the finalizer
// can drop stale standings right after ranking.
type LeaderboardService interface {
	Standings(ctx context.Context, contestID uint) (dto.StandingsResponse, error)
	InvalidateStandings(ctx context.Context, contestID uint)
}

type leaderboardService struct {
	contests repository.ContestRepository
	users    repository.UserRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewLeaderboardService constructs the leaderboard service.
func NewLeaderboardService(contests repository.ContestRepository, users repository.UserRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		contests: contests,
		users:    users,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func standingsCacheKey(contestID uint) string {
	return fmt.Sprintf("standings:contest:%d", contestID)
}

func (s *leaderboardService) Standings(ctx context.Context, contestID uint) (dto.StandingsResponse, error) {
	cacheKey := standingsCacheKey(contestID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StandingsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("contest_id", contestID).Msg("standings cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read standings cache")
		}
	}

	if _, err := s.contests.GetByID(ctx, contestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StandingsResponse{}, ErrContestNotFound
		}
		return dto.StandingsResponse{}, err
	}

	participants, err := s.contests.ListParticipants(ctx, contestID)
	if err != nil {
		return dto.StandingsResponse{}, err
	}

	response := s.buildStandings(ctx, contestID, participants)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store standings cache")
			}
		}
	}

	return response, nil
}

// buildStandings orders participants the same way the finalizer ranks
// them, so live standings and final ranks never disagree on order.
func (s *leaderboardService) buildStandings(ctx context.Context, contestID uint, participants []models.ContestParticipant) dto.StandingsResponse {
	rankParticipants(participants)

	response := dto.StandingsResponse{ContestID: contestID, Final: len(participants) > 0}
	for i, participant := range participants {
		if participant.Rank == nil {
			response.Final = false
		}

		username := ""
		if user, err := s.users.GetByID(ctx, participant.UserID); err == nil {
			username = user.Username
		}

		response.Rows = append(response.Rows, dto.StandingRow{
			UserID:     participant.UserID,
			Username:   username,
			TotalScore: participant.TotalScore,
			Penalty:    participant.Penalty,
			Rank:       participant.Rank,
			Position:   i + 1,
		})
	}

	return response
}

func (s *leaderboardService) InvalidateStandings(ctx context.Context, contestID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, standingsCacheKey(contestID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("contest_id", contestID).Msg("failed to invalidate standings cache")
	}
}
