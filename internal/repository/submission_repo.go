package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/judge"
	"github.com/codearena/arena-api/internal/models"
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	UserID    *uint
	ProblemID *uint
	ContestID *uint
	Status    *string
	Page      int
	PageSize  int
}

// SubmissionRepository exposes persistence helpers for submissions and
// their per-testcase results.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	CreateResults(ctx context.Context, results []models.SubmissionResult) error
	BestContestScore(ctx context.Context, contestID, userID, problemID, excludeID uint) (int, error)
	CountFailedBefore(ctx context.Context, contestID, userID, problemID, beforeID uint) (int64, error)
}

// NewSubmissionRepository constructs a GORM-backed submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Results").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProblemID != nil {
		query = query.Where("problem_id = ?", *filter.ProblemID)
	}
	if filter.ContestID != nil {
		query = query.Where("contest_id = ?", *filter.ContestID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

// CreateResults bulk-inserts the per-testcase outcomes of one submission.
// Results are written once, after all testcases are judged.
func (r *submissionRepository) CreateResults(ctx context.Context, results []models.SubmissionResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// BestContestScore returns the highest score the user has earned on one
// contest problem so far, zero when they have no scored submission yet.
// excludeID leaves the submission currently being folded in out of the
// maximum so improvement deltas come out right.
func (r *submissionRepository) BestContestScore(ctx context.Context, contestID, userID, problemID, excludeID uint) (int, error) {
	var best *int
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("MAX(score)").
		Where("contest_id = ? AND user_id = ? AND problem_id = ? AND id <> ?", contestID, userID, problemID, excludeID).
		Scan(&best).Error
	if err != nil {
		return 0, err
	}
	if best == nil {
		return 0, nil
	}
	return *best, nil
}

// CountFailedBefore counts earlier non-accepted judged attempts on a
// contest problem, used for the wrong-attempt penalty at first accept.
func (r *submissionRepository) CountFailedBefore(ctx context.Context, contestID, userID, problemID, beforeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("contest_id = ? AND user_id = ? AND problem_id = ? AND id < ?", contestID, userID, problemID, beforeID).
		Where("status NOT IN ?", []string{string(judge.VerdictPending), string(judge.VerdictAccepted)}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
