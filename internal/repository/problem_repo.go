package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/models"
)

// ProblemFilter describes pagination and search options for problem lists.
type ProblemFilter struct {
	Search     string
	Difficulty string
	Page       int
	PageSize   int
}

// ProblemRepository exposes persistence helpers for problems and their testcases.
type ProblemRepository interface {
	List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error)
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	GetBySlug(ctx context.Context, slug string) (models.Problem, error)
	Create(ctx context.Context, problem *models.Problem) error
	Update(ctx context.Context, problem *models.Problem) error
	ListTestCases(ctx context.Context, problemID uint, includeHidden bool) ([]models.TestCase, error)
	ReplaceTestCases(ctx context.Context, problemID uint, cases []models.TestCase) error
}

// NewProblemRepository constructs a GORM-backed problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Problem{})

	if filter.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ?", like)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var problems []models.Problem
	if err := query.Order("id ASC").Find(&problems).Error; err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) GetBySlug(ctx context.Context, slug string) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&problem).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) Update(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Save(problem).Error
}

func (r *problemRepository) ListTestCases(ctx context.Context, problemID uint, includeHidden bool) ([]models.TestCase, error) {
	query := r.db.WithContext(ctx).Where("problem_id = ?", problemID)
	if !includeHidden {
		query = query.Where("is_sample = ?", true)
	}

	var cases []models.TestCase
	if err := query.Order("position ASC, id ASC").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *problemRepository) ReplaceTestCases(ctx context.Context, problemID uint, cases []models.TestCase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("problem_id = ?", problemID).Delete(&models.TestCase{}).Error; err != nil {
			return err
		}
		for i := range cases {
			cases[i].ProblemID = problemID
			cases[i].Position = i
		}
		if len(cases) == 0 {
			return nil
		}
		return tx.Create(&cases).Error
	})
}
