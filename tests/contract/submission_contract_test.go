package contract_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/handler"
	"github.com/codequesthq/codequest-api/internal/models"
)

type stubSubmissionService struct {
	response dto.SubmissionResponse
}

func (s stubSubmissionService) Submit(context.Context, uint, uint, dto.SubmitRequest) (dto.SubmissionResponse, error) {
	return s.response, nil
}

func (s stubSubmissionService) Run(context.Context, uint, uint, dto.SubmitRequest) ([]dto.RunCaseResult, error) {
	return nil, nil
}

func (s stubSubmissionService) History(context.Context, uint, uint) ([]dto.SubmissionResponse, error) {
	return []dto.SubmissionResponse{s.response}, nil
}

func TestSubmitResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "submission_graded.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	graded := dto.SubmissionResponse{
		ID:              12,
		ProblemID:       7,
		Language:        "python",
		Status:          models.SubmissionStatusAccepted,
		Runtime:         0.03,
		Memory:          1024,
		TestCasesPassed: 2,
		TestCasesTotal:  2,
		CreatedAt:       time.Now().UTC(),
	}

	serviceStub := stubSubmissionService{response: graded}
	submissionHandler := handler.NewSubmissionHandler(serviceStub, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/problems", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		return c.Next()
	})
	submissionHandler.Register(group)

	payload, err := json.Marshal(dto.SubmitRequest{Code: "print(4)", Language: "python"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/problems/7/submit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NoError(t, schema.Validate(decoded))
}
