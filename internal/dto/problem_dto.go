package dto

import "github.com/codequesthq/codequest-api/internal/models"

// ExampleInput mirrors models.Example for authoring payloads.
type ExampleInput struct {
	Input       string `json:"input" validate:"required"`
	Output      string `json:"output" validate:"required"`
	Explanation string `json:"explanation"`
}

// TestCaseInput is an authored input/expected-output pair.
type TestCaseInput struct {
	Input  string `json:"input" validate:"required"`
	Output string `json:"output" validate:"required"`
}

// SnippetInput is per-language starter code supplied by an admin.
type SnippetInput struct {
	Language string `json:"language" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// ReferenceSolutionInput is a per-language reference solution that must pass
// every visible test case before the problem is stored.
type ReferenceSolutionInput struct {
	Language string `json:"language" validate:"required"`
	Solution string `json:"solution" validate:"required"`
}

// CreateProblemRequest is the admin payload for authoring a problem.
type CreateProblemRequest struct {
	Title              string                   `json:"title" validate:"required,min=3,max=255"`
	Difficulty         string                   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Tags               []string                 `json:"tags" validate:"required,min=1,dive,required"`
	Companies          []string                 `json:"companies"`
	Description        string                   `json:"description" validate:"required"`
	Examples           []ExampleInput           `json:"examples" validate:"dive"`
	VisibleTestCases   []TestCaseInput          `json:"visible_test_cases" validate:"required,min=1,dive"`
	HiddenTestCases    []TestCaseInput          `json:"hidden_test_cases" validate:"required,min=1,dive"`
	StarterCode        []SnippetInput           `json:"starter_code" validate:"dive"`
	ReferenceSolutions []ReferenceSolutionInput `json:"reference_solutions" validate:"required,min=1,dive"`
}

// UpdateProblemRequest carries a partial problem update. Reference solutions
// are re-validated against the judge only when both they and the visible test
// cases are part of the update.
type UpdateProblemRequest struct {
	Title              string                   `json:"title" validate:"omitempty,min=3,max=255"`
	Difficulty         string                   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags               []string                 `json:"tags" validate:"omitempty,min=1,dive,required"`
	Companies          []string                 `json:"companies"`
	Description        string                   `json:"description"`
	Examples           []ExampleInput           `json:"examples" validate:"dive"`
	VisibleTestCases   []TestCaseInput          `json:"visible_test_cases" validate:"omitempty,min=1,dive"`
	HiddenTestCases    []TestCaseInput          `json:"hidden_test_cases" validate:"omitempty,min=1,dive"`
	StarterCode        []SnippetInput           `json:"starter_code" validate:"dive"`
	ReferenceSolutions []ReferenceSolutionInput `json:"reference_solutions" validate:"omitempty,min=1,dive"`
}

// ProblemResponse is the detail view served to users: hidden test cases stay
// hidden, everything the editor needs is present.
type ProblemResponse struct {
	ID                 uint                       `json:"id"`
	Title              string                     `json:"title"`
	Difficulty         string                     `json:"difficulty"`
	Tags               []string                   `json:"tags"`
	Companies          []string                   `json:"companies"`
	Description        string                     `json:"description"`
	Examples           []models.Example           `json:"examples"`
	VisibleTestCases   []models.ProblemTestCase   `json:"visible_test_cases"`
	StarterCode        []models.CodeSnippet       `json:"starter_code"`
	ReferenceSolutions []models.ReferenceSolution `json:"reference_solutions,omitempty"`
	AcceptanceRate     float64                    `json:"acceptance_rate"`
}

// ProblemSummary is the list view row.
type ProblemSummary struct {
	ID         uint     `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// ProblemListResponse is a page of problems.
type ProblemListResponse struct {
	Problems    []ProblemSummary `json:"problems"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	HasMore     bool             `json:"has_more"`
}

// SolvedProblemsResponse lists the problems a user has solved.
type SolvedProblemsResponse struct {
	SolvedCount int              `json:"solved_count"`
	Problems    []ProblemSummary `json:"problems"`
}

// NewProblemResponse builds the detail DTO, optionally including reference
// solutions (admins only).
func NewProblemResponse(problem models.Problem, includeSolutions bool) ProblemResponse {
	response := ProblemResponse{
		ID:               problem.ID,
		Title:            problem.Title,
		Difficulty:       problem.Difficulty,
		Tags:             problem.Tags,
		Companies:        problem.Companies,
		Description:      problem.Description,
		Examples:         problem.Examples,
		VisibleTestCases: problem.VisibleTestCases,
		StarterCode:      problem.StarterCode,
		AcceptanceRate:   problem.AcceptanceRate,
	}
	if includeSolutions {
		response.ReferenceSolutions = problem.ReferenceSolutions
	}
	return response
}

// NewProblemSummary builds the list DTO.
func NewProblemSummary(problem models.Problem) ProblemSummary {
	return ProblemSummary{
		ID:         problem.ID,
		Title:      problem.Title,
		Difficulty: problem.Difficulty,
		Tags:       problem.Tags,
	}
}

// NewProblemSummaries converts a slice of problems.
func NewProblemSummaries(problems []models.Problem) []ProblemSummary {
	summaries := make([]ProblemSummary, 0, len(problems))
	for _, problem := range problems {
		summaries = append(summaries, NewProblemSummary(problem))
	}
	return summaries
}
