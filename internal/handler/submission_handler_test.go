package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codequesthq/codequest-api/internal/config"
	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/handler"
	"github.com/codequesthq/codequest-api/internal/middleware"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/internal/repository"
	"github.com/codequesthq/codequest-api/internal/router"
	"github.com/codequesthq/codequest-api/internal/service"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

type fakeJudge struct {
	results   []judge0.TestResult
	submitErr error
	awaitErr  error
}

func (f *fakeJudge) SubmitBatch(_ context.Context, cases []judge0.TestCase, _ string, _ int) ([]string, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	tokens := make([]string, len(cases))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens, nil
}

func (f *fakeJudge) AwaitResults(_ context.Context, _ []string) ([]judge0.TestResult, error) {
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.results, nil
}

type dropEvents struct{}

func (dropEvents) PublishGraded(context.Context, service.SubmissionGradedEvent) {}

// authState stands in for the JWT middleware so tests can pick the caller
// after seeding the database.
type authState struct {
	userID uint
	role   string
}

func (a *authState) handler(c *fiber.Ctx) error {
	if a.userID > 0 {
		c.Locals("user_id", a.userID)
	}
	if a.role != "" {
		c.Locals("user_role", a.role)
	}
	return c.Next()
}

func setupApp(t *testing.T, judge judge0.Client) (*fiber.App, *gorm.DB, *authState) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Problem{}, &models.Submission{}, &models.SolvedProblem{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, userRepo, judge, dropEvents{}, validate, logger)
	problemService := service.NewProblemService(problemRepo, userRepo, judge, validate, logger)

	auth := &authState{}
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		ProblemHandler:    handler.NewProblemHandler(problemService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		JWTMiddleware:     auth.handler,
		AdminMiddleware:   middleware.RequireRole(models.RoleAdmin),
	})

	return app, db, auth
}

func seedProblemWithUser(t *testing.T, db *gorm.DB) (models.User, models.Problem) {
	t.Helper()

	user := models.User{FirstName: "Ada", LastName: "L", Email: t.Name() + "@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	problem := models.Problem{
		Title:       "Square",
		Difficulty:  models.DifficultyEasy,
		Description: "square a number",
		Tags:        []string{"math"},
		VisibleTestCases: []models.ProblemTestCase{
			{Input: "1", Output: "1"},
		},
		HiddenTestCases: []models.ProblemTestCase{
			{Input: "2", Output: "4"},
			{Input: "3", Output: "9"},
		},
		CreatorID: user.ID,
	}
	require.NoError(t, db.Create(&problem).Error)
	return user, problem
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func TestSubmitEndpointGradesAndRecordsProgress(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusAccepted, Time: ptr("0.01"), Memory: ptrInt(900)},
		{StatusID: judge0.StatusAccepted, Time: ptr("0.02"), Memory: ptrInt(700)},
	}}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, envelope := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "print(int(input())**2)", Language: "python"})
	require.Equal(t, fiber.StatusCreated, status)

	var graded dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &graded))
	require.Equal(t, models.SubmissionStatusAccepted, graded.Status)
	require.Equal(t, 2, graded.TestCasesPassed)
	require.InDelta(t, 0.03, graded.Runtime, 1e-9)

	var solvedCount int64
	require.NoError(t, db.Model(&models.SolvedProblem{}).Where("user_id = ? AND problem_id = ?", user.ID, problem.ID).Count(&solvedCount).Error)
	require.EqualValues(t, 1, solvedCount)
}

func TestSubmitEndpointJudgeOutage(t *testing.T) {
	judge := &fakeJudge{submitErr: judge0.ErrJudgeUnavailable}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, envelope := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.JSONEq(t, `false`, string(envelope["success"]))

	// The pending audit record survives the outage.
	var pending models.Submission
	require.NoError(t, db.Where("problem_id = ?", problem.ID).First(&pending).Error)
	require.Equal(t, models.SubmissionStatusPending, pending.Status)
}

func TestSubmitEndpointJudgeTimeout(t *testing.T) {
	judge := &fakeJudge{awaitErr: judge0.ErrJudgeTimeout}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusGatewayTimeout, status)
}

func TestSubmitEndpointUnsupportedLanguage(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "brainfuck"})
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestSubmitEndpointRequiresAuth(t *testing.T) {
	app, db, _ := setupApp(t, &fakeJudge{})
	_, problem := seedProblemWithUser(t, db)

	status, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRunEndpointReturnsPerCaseDetails(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusAccepted, Stdout: ptr("1"), Time: ptr("0.01"), Memory: ptrInt(500)},
	}}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, envelope := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/run", problem.ID), dto.SubmitRequest{Code: "print(1)", Language: "python"})
	require.Equal(t, fiber.StatusOK, status)

	var details []dto.RunCaseResult
	require.NoError(t, json.Unmarshal(envelope["data"], &details))
	require.Len(t, details, 1)
	require.Equal(t, dto.RunCaseAccepted, details[0].Status)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count, "run mode never persists a submission")
}

func TestHistoryEndpoint(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusAccepted, Time: ptr("0.01"), Memory: ptrInt(900)},
		{StatusID: judge0.StatusAccepted, Time: ptr("0.01"), Memory: ptrInt(900)},
	}}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusCreated, status)

	status, envelope := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/v1/problems/%d/submissions", problem.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	var history []dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &history))
	require.Len(t, history, 1)
	require.Equal(t, models.SubmissionStatusAccepted, history[0].Status)
}

func TestSubmitEndpointUnknownProblem(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, _ := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/problems/99999/submit", dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusNotFound, status)
}

func ptr(s string) *string { return &s }

func ptrInt(n int64) *int64 { return &n }
