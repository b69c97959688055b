package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
)

// ErrBadTestCaseBundle indicates an import payload that is not valid JSON
// or does not match the manifest schema.
var ErrBadTestCaseBundle = errors.New("invalid testcase bundle")

// testCaseManifestSchema pins the shape of testcase import manifests.
const testCaseManifestSchema = `{
	"type": "object",
	"required": ["cases"],
	"properties": {
		"cases": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["input", "expected"],
				"properties": {
					"input": {"type": "string"},
					"expected": {"type": "string"},
					"is_sample": {"type": "boolean"}
				}
			}
		}
	}
}`

// ProblemService serves problem content and admin testcase imports.
type ProblemService interface {
	List(ctx context.Context, filter repository.ProblemFilter) ([]dto.ProblemResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.ProblemResponse, error)
	GetBySlug(ctx context.Context, slug string) (dto.ProblemResponse, error)
	Create(ctx context.Context, problem *models.Problem) error
	ImportTestCases(ctx context.Context, problemID uint, bundle []byte) (int, error)
}

type problemService struct {
	problems  repository.ProblemRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewProblemService constructs the problem service.
func NewProblemService(problems repository.ProblemRepository, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		problems:  problems,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		schema:    jsonschema.MustCompileString("testcase_manifest.json", testCaseManifestSchema),
		logger:    logger.With().Str("component", "problem_service").Logger(),
	}
}

func (s *problemService) List(ctx context.Context, filter repository.ProblemFilter) ([]dto.ProblemResponse, int64, error) {
	problems, total, err := s.problems.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.ProblemResponse, 0, len(problems))
	for _, problem := range problems {
		responses = append(responses, dto.NewProblemResponse(problem, nil))
	}
	return responses, total, nil
}

func (s *problemService) Get(ctx context.Context, id uint) (dto.ProblemResponse, error) {
	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	return s.withSamples(ctx, problem)
}

func (s *problemService) GetBySlug(ctx context.Context, slug string) (dto.ProblemResponse, error) {
	problem, err := s.problems.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	return s.withSamples(ctx, problem)
}

func (s *problemService) withSamples(ctx context.Context, problem models.Problem) (dto.ProblemResponse, error) {
	samples, err := s.problems.ListTestCases(ctx, problem.ID, false)
	if err != nil {
		return dto.ProblemResponse{}, err
	}
	return dto.NewProblemResponse(problem, samples), nil
}

// Create sanitizes the statement HTML before persisting.
func (s *problemService) Create(ctx context.Context, problem *models.Problem) error {
	problem.Statement = s.sanitizer.Sanitize(problem.Statement)
	if problem.Slug == "" {
		problem.Slug = slug.Make(problem.Title)
	}
	return s.problems.Create(ctx, problem)
}

// ImportTestCases replaces a problem's testcase set from a JSON manifest.
// The payload's content type is sniffed and the manifest is validated
// against the schema before anything is written.
func (s *problemService) ImportTestCases(ctx context.Context, problemID uint, bundle []byte) (int, error) {
	if _, err := s.problems.GetByID(ctx, problemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProblemNotFound
		}
		return 0, err
	}

	detected := mimetype.Detect(bundle)
	if !detected.Is("application/json") && !detected.Is("text/plain") {
		return 0, fmt.Errorf("%w: unexpected content type %s", ErrBadTestCaseBundle, detected.String())
	}

	var document interface{}
	if err := json.Unmarshal(bundle, &document); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTestCaseBundle, err)
	}
	if err := s.schema.Validate(document); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTestCaseBundle, err)
	}

	var request dto.TestCaseImportRequest
	if err := json.Unmarshal(bundle, &request); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTestCaseBundle, err)
	}
	if err := s.validator.Struct(request); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTestCaseBundle, err)
	}

	cases := make([]models.TestCase, 0, len(request.Cases))
	for _, entry := range request.Cases {
		cases = append(cases, models.TestCase{
			Input:    entry.Input,
			Expected: entry.Expected,
			IsSample: entry.IsSample,
		})
	}

	if err := s.problems.ReplaceTestCases(ctx, problemID, cases); err != nil {
		return 0, err
	}

	s.logger.Info().
		Uint("problem_id", problemID).
		Int("cases", len(cases)).
		Msg("testcases imported")

	return len(cases), nil
}
