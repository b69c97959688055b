package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
)

// ErrAlreadyRegistered indicates a duplicate contest registration.
var ErrAlreadyRegistered = errors.New("already registered for contest")

// ErrRegistrationClosed indicates the contest has ended.
var ErrRegistrationClosed = errors.New("contest registration closed")

// ContestService manages contests and participant registration.
type ContestService interface {
	List(ctx context.Context, page, pageSize int) ([]dto.ContestResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.ContestResponse, error)
	Create(ctx context.Context, payload dto.ContestCreateRequest) (dto.ContestResponse, error)
	Register(ctx context.Context, contestID, userID uint) error
}

type contestService struct {
	contests  repository.ContestRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewContestService constructs the contest service.
func NewContestService(contests repository.ContestRepository, validate *validator.Validate, logger zerolog.Logger) ContestService {
	return &contestService{
		contests:  contests,
		validator: validate,
		logger:    logger.With().Str("component", "contest_service").Logger(),
		now:       time.Now,
	}
}

func (s *contestService) List(ctx context.Context, page, pageSize int) ([]dto.ContestResponse, int64, error) {
	contests, total, err := s.contests.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	responses := make([]dto.ContestResponse, 0, len(contests))
	for _, contest := range contests {
		responses = append(responses, dto.NewContestResponse(contest, now))
	}
	return responses, total, nil
}

func (s *contestService) Get(ctx context.Context, id uint) (dto.ContestResponse, error) {
	contest, err := s.contests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ContestResponse{}, ErrContestNotFound
		}
		return dto.ContestResponse{}, err
	}
	return dto.NewContestResponse(contest, s.now()), nil
}

// Create validates the payload, including the closed scoring-kind
// enumeration, and persists the contest.
func (s *contestService) Create(ctx context.Context, payload dto.ContestCreateRequest) (dto.ContestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ContestResponse{}, err
	}

	kind := models.ScoringKind(payload.ScoringKind)
	if err := kind.Validate(); err != nil {
		return dto.ContestResponse{}, err
	}

	contest := models.Contest{
		Title:       payload.Title,
		Description: payload.Description,
		ScoringKind: kind,
		StartAt:     payload.StartAt,
		EndAt:       payload.EndAt,
		FreezeAt:    payload.FreezeAt,
	}
	if err := s.contests.Create(ctx, &contest); err != nil {
		return dto.ContestResponse{}, err
	}

	return dto.NewContestResponse(contest, s.now()), nil
}

// Register adds a participant with an unranked standing. Registration is
// allowed until the contest ends.
func (s *contestService) Register(ctx context.Context, contestID, userID uint) error {
	contest, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContestNotFound
		}
		return err
	}

	now := s.now()
	if contest.HasEnded(now) {
		return ErrRegistrationClosed
	}

	if _, err := s.contests.GetParticipant(ctx, contestID, userID); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	participant := models.ContestParticipant{
		ContestID: contestID,
		UserID:    userID,
		JoinedAt:  now,
	}
	return s.contests.AddParticipant(ctx, &participant)
}
