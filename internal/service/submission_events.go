package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultGradedSubject is the NATS subject graded-submission events go out on.
const DefaultGradedSubject = "codequest.submissions.graded"

// SubmissionGradedEvent is broadcast after a submission reaches a terminal
// status, for downstream consumers such as leaderboards and notifications.
type SubmissionGradedEvent struct {
	SubmissionID    uint      `json:"submission_id"`
	UserID          uint      `json:"user_id"`
	ProblemID       uint      `json:"problem_id"`
	Status          string    `json:"status"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TestCasesTotal  int       `json:"test_cases_total"`
	GradedAt        time.Time `json:"graded_at"`
}

// SubmissionEventPublisher publishes grading lifecycle events. Publishing is
// fire-and-forget: a failed publish never fails the grading request.
type SubmissionEventPublisher interface {
	PublishGraded(ctx context.Context, event SubmissionGradedEvent)
}

// NewSubmissionEventPublisher builds a NATS-backed publisher. A nil connection
// produces a publisher that drops events, so event delivery stays optional.
func NewSubmissionEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) SubmissionEventPublisher {
	if subject == "" {
		subject = DefaultGradedSubject
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "submission_events").Logger(),
	}
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func (p *natsEventPublisher) PublishGraded(_ context.Context, event SubmissionGradedEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode graded event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("submission_id", event.SubmissionID).Msg("failed to publish graded event")
	}
}
