package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/internal/observability"
	"github.com/codequesthq/codequest-api/internal/repository"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

// ErrUserNotFound indicates the submitting user does not exist.
var ErrUserNotFound = errors.New("invalid user")

// ErrProblemNotFound indicates the referenced problem does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// SubmissionService drives the submission lifecycle: it owns the
// pending-to-terminal transition for graded submissions and the ephemeral
// run action against visible test cases.
type SubmissionService interface {
	Submit(ctx context.Context, userID, problemID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Run(ctx context.Context, userID, problemID uint, payload dto.SubmitRequest) ([]dto.RunCaseResult, error)
	History(ctx context.Context, userID, problemID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	users       repository.UserRepository
	judge       judge0.Client
	events      SubmissionEventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSubmissionService constructs the submission orchestrator.
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	problemRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	judge judge0.Client,
	events SubmissionEventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		problems:    problemRepo,
		users:       userRepo,
		judge:       judge,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/codequesthq/codequest-api/internal/service/submission"),
	}
}

// Submit grades the user's code against the problem's hidden test cases. A
// pending submission row is persisted before the judge is invoked so an audit
// record exists even if grading never completes; the row is finalized exactly
// once after the verdict is known.
func (s *submissionService) Submit(parent context.Context, userID, problemID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(parent, "submission.submit", trace.WithAttributes(
		attribute.Int("user_id", int(userID)),
		attribute.Int("problem_id", int(problemID)),
		attribute.String("language", payload.Language),
	))
	defer span.End()

	user, problem, languageID, err := s.resolveRequest(ctx, userID, problemID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.SubmissionResponse{}, err
	}

	if len(problem.HiddenTestCases) == 0 {
		err := fmt.Errorf("problem %d has no hidden test cases", problem.ID)
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		UserID:         user.ID,
		ProblemID:      problem.ID,
		Code:           payload.Code,
		Language:       payload.Language,
		Status:         models.SubmissionStatusPending,
		TestCasesTotal: len(problem.HiddenTestCases),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("persist pending submission: %w", err)
	}

	results, err := s.grade(ctx, problem.HiddenTestCases, payload.Code, languageID)
	if err != nil {
		// The pending row stays behind on purpose: it is the audit record of
		// an attempt the judge never finished.
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("grading did not complete")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.SubmissionResponse{}, err
	}

	verdict := AggregateVerdict(results)
	submission.Status = verdict.Status
	submission.Runtime = verdict.Runtime
	submission.Memory = verdict.Memory
	submission.TestCasesPassed = verdict.TestCasesPassed
	submission.ErrorMessage = verdict.ErrorMessage

	// Progress is written before the submission is finalized so a concurrent
	// reader never observes an accepted submission without the matching
	// solved-set entry. Both writes are idempotent, so a retry is safe.
	if verdict.Accepted() {
		if err := s.users.MarkSolved(ctx, user.ID, problem.ID); err != nil {
			span.RecordError(err)
			return dto.SubmissionResponse{}, fmt.Errorf("update solved set: %w", err)
		}
	}

	if err := s.problems.RecordSubmission(ctx, problem.ID, verdict.Accepted()); err != nil {
		s.logger.Error().Err(err).Uint("problem_id", problem.ID).Msg("failed to update problem counters")
	}

	if err := s.submissions.Finalize(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("finalize submission: %w", err)
	}

	observability.GradingVerdicts().WithLabelValues(submission.Status).Inc()
	span.SetAttributes(attribute.String("verdict", submission.Status))

	s.events.PublishGraded(ctx, SubmissionGradedEvent{
		SubmissionID:    submission.ID,
		UserID:          user.ID,
		ProblemID:       problem.ID,
		Status:          submission.Status,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		GradedAt:        time.Now().UTC(),
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("verdict", submission.Status).
		Int("passed", submission.TestCasesPassed).
		Int("total", submission.TestCasesTotal).
		Msg("submission graded")

	return dto.NewSubmissionResponse(submission), nil
}

// Run executes the user's code against the problem's visible test cases and
// returns a per-case breakdown. Nothing is persisted and user progress is
// never touched, so users can iterate before spending a graded attempt.
func (s *submissionService) Run(parent context.Context, userID, problemID uint, payload dto.SubmitRequest) ([]dto.RunCaseResult, error) {
	ctx, span := s.tracer.Start(parent, "submission.run", trace.WithAttributes(
		attribute.Int("user_id", int(userID)),
		attribute.Int("problem_id", int(problemID)),
		attribute.String("language", payload.Language),
	))
	defer span.End()

	_, problem, languageID, err := s.resolveRequest(ctx, userID, problemID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(problem.VisibleTestCases) == 0 {
		err := fmt.Errorf("problem %d has no visible test cases", problem.ID)
		span.RecordError(err)
		return nil, err
	}

	results, err := s.grade(ctx, problem.VisibleTestCases, payload.Code, languageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return AggregateRunDetails(problem.VisibleTestCases, results), nil
}

// History lists the caller's previous submissions for a problem, newest first.
func (s *submissionService) History(ctx context.Context, userID, problemID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.problems.GetByID(ctx, problemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}

	submissions, err := s.submissions.ListByUserAndProblem(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponses(submissions), nil
}

// resolveRequest validates the payload and loads the user and problem, mapping
// storage misses onto the service error taxonomy.
func (s *submissionService) resolveRequest(ctx context.Context, userID, problemID uint, payload dto.SubmitRequest) (models.User, models.Problem, int, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.User{}, models.Problem{}, 0, err
	}

	languageID, err := judge0.LanguageID(payload.Language)
	if err != nil {
		return models.User{}, models.Problem{}, 0, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, models.Problem{}, 0, ErrUserNotFound
		}
		return models.User{}, models.Problem{}, 0, err
	}

	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, models.Problem{}, 0, ErrProblemNotFound
		}
		return models.User{}, models.Problem{}, 0, err
	}

	return user, problem, languageID, nil
}

// grade ships the batch to the judge and waits for every result to settle.
// Results come back in test-case order, which the aggregator depends on.
func (s *submissionService) grade(ctx context.Context, cases []models.ProblemTestCase, code string, languageID int) ([]judge0.TestResult, error) {
	batch := make([]judge0.TestCase, 0, len(cases))
	for _, tc := range cases {
		batch = append(batch, judge0.TestCase{Stdin: tc.Input, ExpectedOutput: tc.Output})
	}

	tokens, err := s.judge.SubmitBatch(ctx, batch, code, languageID)
	if err != nil {
		return nil, err
	}

	return s.judge.AwaitResults(ctx, tokens)
}
