package dto

import (
	"time"

	"github.com/codequesthq/codequest-api/internal/models"
)

// SubmitRequest is the payload for both graded submissions and ungraded runs.
type SubmitRequest struct {
	Code     string `json:"code" validate:"required,min=1"`
	Language string `json:"language" validate:"required"`
}

// SubmissionResponse is a graded (or still pending) submission as returned to
// API consumers.
type SubmissionResponse struct {
	ID              uint      `json:"id"`
	ProblemID       uint      `json:"problem_id"`
	Language        string    `json:"language"`
	Status          string    `json:"status"`
	Runtime         float64   `json:"runtime"`
	Memory          int64     `json:"memory"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TestCasesTotal  int       `json:"test_cases_total"`
	ErrorMessage    *string   `json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              submission.ID,
		ProblemID:       submission.ProblemID,
		Language:        submission.Language,
		Status:          submission.Status,
		Runtime:         submission.Runtime,
		Memory:          submission.Memory,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		ErrorMessage:    submission.ErrorMessage,
		CreatedAt:       submission.CreatedAt,
	}
}

// NewSubmissionResponses converts a slice of submissions.
func NewSubmissionResponses(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}

// Display statuses for individual run-mode test cases.
const (
	RunCaseAccepted    = "Accepted"
	RunCaseWrongAnswer = "Wrong Answer"
	RunCaseError       = "Error"
)

// RunCaseResult is the per-test-case breakdown returned by the ungraded run
// action, echoing each visible case next to what the user's code produced.
type RunCaseResult struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	ActualOutput   string  `json:"actual_output"`
	Status         string  `json:"status"`
	Error          *string `json:"error"`
	StatusID       int     `json:"status_id"`
	Time           float64 `json:"time"`
	Memory         int64   `json:"memory"`
}
