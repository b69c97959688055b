package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/models"
)

// RankUpdate carries one participant's finalization outcome: the rank to
// persist and the score delta to credit to the user's global score. A zero
// Credit with Credited=false means the participant is re-ranked only.
type RankUpdate struct {
	ContestID uint
	UserID    uint
	Rank      int
	Credit    int
	Credited  bool
}

// ContestRepository exposes persistence helpers for contests, participants
// and the finalization transaction.
type ContestRepository interface {
	List(ctx context.Context, page, pageSize int) ([]models.Contest, int64, error)
	GetByID(ctx context.Context, id uint) (models.Contest, error)
	Create(ctx context.Context, contest *models.Contest) error
	ListProblems(ctx context.Context, contestID uint) ([]models.ContestProblem, error)
	GetProblem(ctx context.Context, contestID, problemID uint) (models.ContestProblem, error)
	AddParticipant(ctx context.Context, participant *models.ContestParticipant) error
	GetParticipant(ctx context.Context, contestID, userID uint) (models.ContestParticipant, error)
	UpdateParticipant(ctx context.Context, participant *models.ContestParticipant) error
	ListParticipants(ctx context.Context, contestID uint) ([]models.ContestParticipant, error)
	ListFinalizable(ctx context.Context, now time.Time) ([]models.Contest, error)
	ApplyFinalization(ctx context.Context, updates []RankUpdate) error
}

// NewContestRepository constructs a GORM-backed contest repository.
func NewContestRepository(db *gorm.DB) ContestRepository {
	return &contestRepository{db: db}
}

type contestRepository struct {
	db *gorm.DB
}

func (r *contestRepository) List(ctx context.Context, page, pageSize int) ([]models.Contest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Contest{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var contests []models.Contest
	if err := query.Order("start_at DESC").Find(&contests).Error; err != nil {
		return nil, 0, err
	}
	return contests, total, nil
}

func (r *contestRepository) GetByID(ctx context.Context, id uint) (models.Contest, error) {
	var contest models.Contest
	if err := r.db.WithContext(ctx).First(&contest, id).Error; err != nil {
		return models.Contest{}, err
	}
	return contest, nil
}

func (r *contestRepository) Create(ctx context.Context, contest *models.Contest) error {
	return r.db.WithContext(ctx).Create(contest).Error
}

func (r *contestRepository) ListProblems(ctx context.Context, contestID uint) ([]models.ContestProblem, error) {
	var problems []models.ContestProblem
	err := r.db.WithContext(ctx).
		Preload("Problem").
		Where("contest_id = ?", contestID).
		Order("label ASC, problem_id ASC").
		Find(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *contestRepository) GetProblem(ctx context.Context, contestID, problemID uint) (models.ContestProblem, error) {
	var problem models.ContestProblem
	err := r.db.WithContext(ctx).
		Where("contest_id = ? AND problem_id = ?", contestID, problemID).
		First(&problem).Error
	if err != nil {
		return models.ContestProblem{}, err
	}
	return problem, nil
}

func (r *contestRepository) AddParticipant(ctx context.Context, participant *models.ContestParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *contestRepository) GetParticipant(ctx context.Context, contestID, userID uint) (models.ContestParticipant, error) {
	var participant models.ContestParticipant
	err := r.db.WithContext(ctx).
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		First(&participant).Error
	if err != nil {
		return models.ContestParticipant{}, err
	}
	return participant, nil
}

func (r *contestRepository) UpdateParticipant(ctx context.Context, participant *models.ContestParticipant) error {
	return r.db.WithContext(ctx).
		Model(&models.ContestParticipant{}).
		Where("contest_id = ? AND user_id = ?", participant.ContestID, participant.UserID).
		Updates(map[string]interface{}{
			"total_score": participant.TotalScore,
			"penalty":     participant.Penalty,
		}).Error
}

// ListParticipants returns all participants of a contest ordered by join
// time then user id. The finalizer relies on this ordering as the
// deterministic tiebreak of last resort.
func (r *contestRepository) ListParticipants(ctx context.Context, contestID uint) ([]models.ContestParticipant, error) {
	var participants []models.ContestParticipant
	err := r.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("joined_at ASC, user_id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ListFinalizable selects contests whose window has closed but which still
// have at least one unranked participant. Once every participant carries a
// rank the contest drops out of this query for good.
func (r *contestRepository) ListFinalizable(ctx context.Context, now time.Time) ([]models.Contest, error) {
	var contests []models.Contest
	err := r.db.WithContext(ctx).
		Where("end_at < ?", now).
		Where("EXISTS (SELECT 1 FROM contest_participants p WHERE p.contest_id = contests.id AND p.rank IS NULL)").
		Order("end_at ASC").
		Find(&contests).Error
	if err != nil {
		return nil, err
	}
	return contests, nil
}

// ApplyFinalization persists one contest's rank assignments and score
// credits atomically. A failure rolls back the whole batch so the contest
// stays eligible for the next finalizer run.
func (r *contestRepository) ApplyFinalization(ctx context.Context, updates []RankUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			err := tx.Model(&models.ContestParticipant{}).
				Where("contest_id = ? AND user_id = ?", update.ContestID, update.UserID).
				UpdateColumn("rank", update.Rank).Error
			if err != nil {
				return err
			}

			if !update.Credited {
				continue
			}

			err = tx.Model(&models.User{}).
				Where("id = ?", update.UserID).
				UpdateColumn("score", gorm.Expr("score + ?", update.Credit)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
