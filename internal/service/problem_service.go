package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/internal/repository"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

// ErrSolutionRejected is the base error for reference solutions that fail
// validation against the visible test cases.
var ErrSolutionRejected = errors.New("reference solution rejected")

// Rejection reasons for reference-solution validation.
const (
	RejectionWrongAnswer       = "Wrong Answer"
	RejectionTimeLimitExceeded = "Time Limit Exceeded"
	RejectionCompilationError  = "Compilation Error"
	RejectionRuntimeError      = "Runtime Error"
)

// SolutionRejectedError reports why a specific reference solution failed. It
// wraps ErrSolutionRejected so callers can match with errors.Is and still read
// the category.
type SolutionRejectedError struct {
	Language string
	Reason   string
}

func (e *SolutionRejectedError) Error() string {
	return fmt.Sprintf("reference solution rejected: %s (%s)", e.Reason, e.Language)
}

// Unwrap lets errors.Is match against ErrSolutionRejected.
func (e *SolutionRejectedError) Unwrap() error {
	return ErrSolutionRejected
}

// ProblemService owns problem authoring and retrieval. Creation and updates
// are gated on every reference solution passing every visible test case.
type ProblemService interface {
	Create(ctx context.Context, creatorID uint, payload dto.CreateProblemRequest) (dto.ProblemResponse, error)
	Update(ctx context.Context, id uint, payload dto.UpdateProblemRequest) (dto.ProblemResponse, error)
	Get(ctx context.Context, id uint) (dto.ProblemResponse, error)
	List(ctx context.Context, filter repository.ProblemFilter) (dto.ProblemListResponse, error)
	Delete(ctx context.Context, id uint) error
	SolvedByUser(ctx context.Context, userID uint) (dto.SolvedProblemsResponse, error)
}

type problemService struct {
	problems  repository.ProblemRepository
	users     repository.UserRepository
	judge     judge0.Client
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewProblemService constructs the problem authoring service.
func NewProblemService(problemRepo repository.ProblemRepository, userRepo repository.UserRepository, judge judge0.Client, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		problems:  problemRepo,
		users:     userRepo,
		judge:     judge,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "problem_service").Logger(),
	}
}

// Create validates the payload, proves every reference solution against the
// visible test cases, and only then persists the problem. A rejected solution
// aborts the whole operation before any storage write.
func (s *problemService) Create(ctx context.Context, creatorID uint, payload dto.CreateProblemRequest) (dto.ProblemResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, err
	}

	if err := s.validateReferenceSolutions(ctx, payload.VisibleTestCases, payload.ReferenceSolutions); err != nil {
		return dto.ProblemResponse{}, err
	}

	problem := models.Problem{
		Title:              strings.TrimSpace(payload.Title),
		Difficulty:         strings.ToLower(payload.Difficulty),
		Tags:               payload.Tags,
		Companies:          payload.Companies,
		Description:        s.sanitizer.Sanitize(payload.Description),
		Examples:           s.sanitizeExamples(payload.Examples),
		VisibleTestCases:   toTestCases(payload.VisibleTestCases),
		HiddenTestCases:    toTestCases(payload.HiddenTestCases),
		StarterCode:        toSnippets(payload.StarterCode),
		ReferenceSolutions: toSolutions(payload.ReferenceSolutions),
		CreatorID:          creatorID,
	}

	if err := s.problems.Create(ctx, &problem); err != nil {
		return dto.ProblemResponse{}, fmt.Errorf("persist problem: %w", err)
	}

	s.logger.Info().Uint("problem_id", problem.ID).Str("title", problem.Title).Msg("problem created")
	return dto.NewProblemResponse(problem, true), nil
}

// Update applies a partial update. Reference solutions are re-proven against
// the judge only when the update supplies both new solutions and the visible
// test cases they must pass; nothing is persisted until validation succeeds.
func (s *problemService) Update(ctx context.Context, id uint, payload dto.UpdateProblemRequest) (dto.ProblemResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, err
	}

	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	if len(payload.ReferenceSolutions) > 0 && len(payload.VisibleTestCases) > 0 {
		if err := s.validateReferenceSolutions(ctx, payload.VisibleTestCases, payload.ReferenceSolutions); err != nil {
			return dto.ProblemResponse{}, err
		}
	}

	applyProblemUpdate(&problem, payload, s.sanitizer)

	if err := s.problems.Update(ctx, &problem); err != nil {
		return dto.ProblemResponse{}, fmt.Errorf("persist problem update: %w", err)
	}

	s.logger.Info().Uint("problem_id", problem.ID).Msg("problem updated")
	return dto.NewProblemResponse(problem, true), nil
}

func (s *problemService) Get(ctx context.Context, id uint) (dto.ProblemResponse, error) {
	problem, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}
	return dto.NewProblemResponse(problem, true), nil
}

func (s *problemService) List(ctx context.Context, filter repository.ProblemFilter) (dto.ProblemListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 15
	}

	problems, total, err := s.problems.List(ctx, filter)
	if err != nil {
		return dto.ProblemListResponse{}, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))
	return dto.ProblemListResponse{
		Problems:    dto.NewProblemSummaries(problems),
		CurrentPage: filter.Page,
		TotalPages:  totalPages,
		HasMore:     filter.Page < totalPages,
	}, nil
}

func (s *problemService) Delete(ctx context.Context, id uint) error {
	if _, err := s.problems.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProblemNotFound
		}
		return err
	}
	return s.problems.Delete(ctx, id)
}

func (s *problemService) SolvedByUser(ctx context.Context, userID uint) (dto.SolvedProblemsResponse, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SolvedProblemsResponse{}, ErrUserNotFound
		}
		return dto.SolvedProblemsResponse{}, err
	}

	problems, err := s.users.ListSolvedProblems(ctx, userID)
	if err != nil {
		return dto.SolvedProblemsResponse{}, err
	}

	return dto.SolvedProblemsResponse{
		SolvedCount: len(problems),
		Problems:    dto.NewProblemSummaries(problems),
	}, nil
}

// validateReferenceSolutions runs every supplied solution against every
// visible test case and rejects on the first non-accepted result, with the
// specific failure category.
func (s *problemService) validateReferenceSolutions(ctx context.Context, visible []dto.TestCaseInput, solutions []dto.ReferenceSolutionInput) error {
	for _, solution := range solutions {
		languageID, err := judge0.LanguageID(solution.Language)
		if err != nil {
			return err
		}

		batch := make([]judge0.TestCase, 0, len(visible))
		for _, tc := range visible {
			batch = append(batch, judge0.TestCase{
				Stdin:          tc.Input,
				ExpectedOutput: strings.TrimSpace(tc.Output),
			})
		}

		tokens, err := s.judge.SubmitBatch(ctx, batch, solution.Solution, languageID)
		if err != nil {
			return err
		}

		results, err := s.judge.AwaitResults(ctx, tokens)
		if err != nil {
			return err
		}

		for _, result := range results {
			if result.Accepted() {
				continue
			}

			rejection := &SolutionRejectedError{Language: solution.Language}
			switch result.StatusID {
			case judge0.StatusWrongAnswer:
				rejection.Reason = RejectionWrongAnswer
			case judge0.StatusTimeLimitExceed:
				rejection.Reason = RejectionTimeLimitExceeded
			case judge0.StatusCompilationError:
				rejection.Reason = RejectionCompilationError
			default:
				rejection.Reason = RejectionRuntimeError
			}

			s.logger.Warn().
				Str("language", solution.Language).
				Str("reason", rejection.Reason).
				Msg("reference solution rejected")
			return rejection
		}
	}

	return nil
}

func (s *problemService) sanitizeExamples(examples []dto.ExampleInput) []models.Example {
	sanitized := make([]models.Example, 0, len(examples))
	for _, example := range examples {
		sanitized = append(sanitized, models.Example{
			Input:       example.Input,
			Output:      example.Output,
			Explanation: s.sanitizer.Sanitize(example.Explanation),
		})
	}
	return sanitized
}

func applyProblemUpdate(problem *models.Problem, payload dto.UpdateProblemRequest, sanitizer *bluemonday.Policy) {
	if payload.Title != "" {
		problem.Title = strings.TrimSpace(payload.Title)
	}
	if payload.Difficulty != "" {
		problem.Difficulty = strings.ToLower(payload.Difficulty)
	}
	if payload.Tags != nil {
		problem.Tags = payload.Tags
	}
	if payload.Companies != nil {
		problem.Companies = payload.Companies
	}
	if payload.Description != "" {
		problem.Description = sanitizer.Sanitize(payload.Description)
	}
	if payload.Examples != nil {
		examples := make([]models.Example, 0, len(payload.Examples))
		for _, example := range payload.Examples {
			examples = append(examples, models.Example{
				Input:       example.Input,
				Output:      example.Output,
				Explanation: sanitizer.Sanitize(example.Explanation),
			})
		}
		problem.Examples = examples
	}
	if payload.VisibleTestCases != nil {
		problem.VisibleTestCases = toTestCases(payload.VisibleTestCases)
	}
	if payload.HiddenTestCases != nil {
		problem.HiddenTestCases = toTestCases(payload.HiddenTestCases)
	}
	if payload.StarterCode != nil {
		problem.StarterCode = toSnippets(payload.StarterCode)
	}
	if payload.ReferenceSolutions != nil {
		problem.ReferenceSolutions = toSolutions(payload.ReferenceSolutions)
	}
}

func toTestCases(inputs []dto.TestCaseInput) []models.ProblemTestCase {
	cases := make([]models.ProblemTestCase, 0, len(inputs))
	for _, input := range inputs {
		cases = append(cases, models.ProblemTestCase{Input: input.Input, Output: input.Output})
	}
	return cases
}

func toSnippets(inputs []dto.SnippetInput) []models.CodeSnippet {
	snippets := make([]models.CodeSnippet, 0, len(inputs))
	for _, input := range inputs {
		snippets = append(snippets, models.CodeSnippet{Language: input.Language, Code: input.Code})
	}
	return snippets
}

func toSolutions(inputs []dto.ReferenceSolutionInput) []models.ReferenceSolution {
	solutions := make([]models.ReferenceSolution, 0, len(inputs))
	for _, input := range inputs {
		solutions = append(solutions, models.ReferenceSolution{Language: input.Language, Solution: input.Solution})
	}
	return solutions
}
