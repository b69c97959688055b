package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/codearena/arena-api/internal/dto"
	"github.com/codearena/arena-api/internal/repository"
	"github.com/codearena/arena-api/internal/service"
)

type stubSubmissionService struct {
	submitResponse dto.SubmissionResponse
	submitErr      error
	lastUserID     uint
}

func (s *stubSubmissionService) Submit(ctx context.Context, userID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	s.lastUserID = userID
	if s.submitErr != nil {
		return dto.SubmissionResponse{}, s.submitErr
	}
	return s.submitResponse, nil
}

func (s *stubSubmissionService) Get(ctx context.Context, id, viewerID uint) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{ID: id}, nil
}

func (s *stubSubmissionService) List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, int64, error) {
	return nil, 0, nil
}

func submissionTestApp(stub *stubSubmissionService, userID uint) *fiber.App {
	app := fiber.New()
	if userID != 0 {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user_id", userID)
			return c.Next()
		})
	}

	h := NewSubmissionHandler(stub, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.Register(app.Group("/submissions"), nil)
	return app
}

func postJSON(t *testing.T, app *fiber.App, target string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSubmissionCreateReturnsJudgedSubmission(t *testing.T) {
	stub := &stubSubmissionService{
		submitResponse: dto.SubmissionResponse{ID: 1, UserID: 7, Status: "ACCEPTED", Score: 100},
	}
	app := submissionTestApp(stub, 7)

	resp := postJSON(t, app, "/submissions", dto.SubmissionCreateRequest{
		ProblemID:  1,
		LanguageID: 50,
		Source:     "int main() {}",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(7), stub.lastUserID)

	var payload struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.Equal(t, "ACCEPTED", payload.Data.Status)
	require.Equal(t, 100, payload.Data.Score)
}

func TestSubmissionCreateRequiresAuthentication(t *testing.T) {
	app := submissionTestApp(&stubSubmissionService{}, 0)

	resp := postJSON(t, app, "/submissions", dto.SubmissionCreateRequest{
		ProblemID:  1,
		LanguageID: 50,
		Source:     "int main() {}",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSubmissionCreateMapsServiceErrors(t *testing.T) {
	stub := &stubSubmissionService{submitErr: service.ErrProblemNotFound}
	app := submissionTestApp(stub, 7)

	resp := postJSON(t, app, "/submissions", dto.SubmissionCreateRequest{
		ProblemID:  99,
		LanguageID: 50,
		Source:     "int main() {}",
	})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmissionGetRejectsBadID(t *testing.T) {
	app := submissionTestApp(&stubSubmissionService{}, 7)

	req := httptest.NewRequest(http.MethodGet, "/submissions/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
