package handler_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

func createProblemPayload() dto.CreateProblemRequest {
	return dto.CreateProblemRequest{
		Title:       "Sum of Two",
		Difficulty:  "easy",
		Tags:        []string{"math"},
		Description: "Add two numbers.",
		VisibleTestCases: []dto.TestCaseInput{
			{Input: "1 2", Output: "3"},
		},
		HiddenTestCases: []dto.TestCaseInput{
			{Input: "10 20", Output: "30"},
		},
		ReferenceSolutions: []dto.ReferenceSolutionInput{
			{Language: "python", Solution: "print(sum(map(int, input().split())))"},
		},
	}
}

func TestCreateProblemEndpointAsAdmin(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusAccepted, Time: ptr("0.01"), Memory: ptrInt(300)},
	}}
	app, db, auth := setupApp(t, judge)
	user, _ := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, models.RoleAdmin

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/problems", createProblemPayload())
	require.Equal(t, fiber.StatusCreated, status)

	var created dto.ProblemResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &created))
	require.Equal(t, "Sum of Two", created.Title)
	require.NotZero(t, created.ID)

	var stored models.Problem
	require.NoError(t, db.First(&stored, created.ID).Error)
	require.Len(t, stored.HiddenTestCases, 1)
}

func TestCreateProblemEndpointForbiddenForUsers(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, _ := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, models.RoleUser

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/problems", createProblemPayload())
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestCreateProblemEndpointRejectedSolution(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusCompilationError, CompileOutput: ptr("SyntaxError")},
	}}
	app, db, auth := setupApp(t, judge)
	user, _ := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, models.RoleAdmin

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/problems", createProblemPayload())
	require.Equal(t, fiber.StatusNotAcceptable, status)
	require.JSONEq(t, `false`, string(envelope["success"]))

	var count int64
	require.NoError(t, db.Model(&models.Problem{}).Where("title = ?", "Sum of Two").Count(&count).Error)
	require.Zero(t, count, "rejected problems are never stored")
}

func TestGetProblemEndpointHidesHiddenCases(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, envelope := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/v1/problems/%d", problem.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(envelope["data"], &raw))
	require.Contains(t, raw, "visible_test_cases")
	require.NotContains(t, raw, "hidden_test_cases")
}

func TestListProblemsEndpoint(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, _ := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/problems?difficulty=easy&page=1", nil)
	require.Equal(t, fiber.StatusOK, status)

	var listing dto.ProblemListResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &listing))
	require.Len(t, listing.Problems, 1)
	require.Equal(t, 1, listing.CurrentPage)
}

func TestDeleteProblemEndpoint(t *testing.T) {
	app, db, auth := setupApp(t, &fakeJudge{})
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, models.RoleAdmin

	status, _ := doJSON(t, app, fiber.MethodDelete, fmt.Sprintf("/api/v1/problems/%d", problem.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/v1/problems/%d", problem.ID), nil)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestSolvedProblemsEndpoint(t *testing.T) {
	judge := &fakeJudge{results: []judge0.TestResult{
		{StatusID: judge0.StatusAccepted, Time: ptr("0.01"), Memory: ptrInt(900)},
		{StatusID: judge0.StatusAccepted, Time: ptr("0.02"), Memory: ptrInt(700)},
	}}
	app, db, auth := setupApp(t, judge)
	user, problem := seedProblemWithUser(t, db)
	auth.userID, auth.role = user.ID, user.Role

	status, _ := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/v1/problems/%d/submit", problem.ID), dto.SubmitRequest{Code: "x", Language: "python"})
	require.Equal(t, fiber.StatusCreated, status)

	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/problems/solved", nil)
	require.Equal(t, fiber.StatusOK, status)

	var solved dto.SolvedProblemsResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &solved))
	require.Equal(t, 1, solved.SolvedCount)
	require.Equal(t, problem.ID, solved.Problems[0].ID)
}
