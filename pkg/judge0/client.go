package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrJudgeUnavailable indicates the judge call failed or returned malformed data.
	ErrJudgeUnavailable = errors.New("judge unavailable")
	// ErrJudgeTimeout indicates the judge accepted the batch but never finished it
	// within the configured wait budget.
	ErrJudgeTimeout = errors.New("judge timed out")
	// ErrUnsupportedLanguage indicates the requested language has no judge mapping.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

var (
	judgeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codequest",
		Subsystem: "judge",
		Name:      "call_duration_seconds",
		Help:      "Duration of HTTP calls to the remote judge",
	}, []string{"operation"})

	judgePollCycles = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "codequest",
		Subsystem: "judge",
		Name:      "poll_cycles",
		Help:      "Number of poll iterations needed before a batch settled",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codequest",
		Subsystem: "judge",
		Name:      "failures_total",
		Help:      "Number of failed judge interactions",
	}, []string{"operation", "kind"})
)

// Client adapts test-case batches to the remote judge's wire format and polls
// the batch until every result is terminal.
type Client interface {
	SubmitBatch(ctx context.Context, cases []TestCase, sourceCode string, languageID int) ([]string, error)
	AwaitResults(ctx context.Context, tokens []string) ([]TestResult, error)
}

// Config carries the judge endpoint and credentials. They are injected here at
// construction; the client never reads the environment.
type Config struct {
	BaseURL      string
	APIKey       string
	APIHost      string
	PollInterval time.Duration
	MaxWait      time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

type httpClient struct {
	baseURL      string
	apiKey       string
	apiHost      string
	pollInterval time.Duration
	maxWait      time.Duration
	http         *http.Client
	tracer       trace.Tracer
	logger       zerolog.Logger
}

// New builds a judge client from the supplied configuration. The endpoint and
// API key are required; missing values are a construction error so deployments
// fail at startup rather than on the first submission.
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("judge base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("judge api key is required")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &httpClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiHost:      cfg.APIHost,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		http:         cfg.HTTPClient,
		tracer:       otel.Tracer("github.com/codequesthq/codequest-api/pkg/judge0"),
		logger:       cfg.Logger.With().Str("component", "judge0_client").Logger(),
	}, nil
}

// SubmitBatch sends one judge submission per test case, all sharing the same
// source and language, and returns the tokens in test-case order.
func (c *httpClient) SubmitBatch(parent context.Context, cases []TestCase, sourceCode string, languageID int) ([]string, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: empty test case batch", ErrJudgeUnavailable)
	}

	ctx, span := c.tracer.Start(parent, "judge0.submit_batch", trace.WithAttributes(
		attribute.Int("language_id", languageID),
		attribute.Int("batch_size", len(cases)),
	))
	defer span.End()

	payload := batchRequest{Submissions: make([]submissionPayload, 0, len(cases))}
	for _, tc := range cases {
		payload.Submissions = append(payload.Submissions, submissionPayload{
			SourceCode:     sourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Stdin,
			ExpectedOutput: tc.ExpectedOutput,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode judge batch: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	judgeCallDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues("submit", "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		judgeFailures.WithLabelValues("submit", "status").Inc()
		err := fmt.Errorf("%w: judge returned status %d", ErrJudgeUnavailable, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var entries []tokenEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		judgeFailures.WithLabelValues("submit", "decode").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("%w: decode batch response: %v", ErrJudgeUnavailable, err)
	}
	if len(entries) != len(cases) {
		judgeFailures.WithLabelValues("submit", "malformed").Inc()
		return nil, fmt.Errorf("%w: expected %d tokens, got %d", ErrJudgeUnavailable, len(cases), len(entries))
	}

	tokens := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Token == "" {
			judgeFailures.WithLabelValues("submit", "malformed").Inc()
			return nil, fmt.Errorf("%w: empty token in batch response", ErrJudgeUnavailable)
		}
		tokens = append(tokens, entry.Token)
	}

	c.logger.Debug().Int("batch_size", len(tokens)).Msg("batch submitted to judge")
	return tokens, nil
}

// AwaitResults polls the batch endpoint until every token's latest result is
// terminal. Polling is paced by the configured interval and bounded by the
// configured maximum wait, after which ErrJudgeTimeout is returned so callers
// can tell "judge never finished" apart from "judge call failed".
func (c *httpClient) AwaitResults(parent context.Context, tokens []string) ([]TestResult, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens to poll", ErrJudgeUnavailable)
	}

	ctx, span := c.tracer.Start(parent, "judge0.await_results", trace.WithAttributes(
		attribute.Int("batch_size", len(tokens)),
	))
	defer span.End()

	deadline := time.Now().Add(c.maxWait)
	cycles := 0

	for {
		cycles++
		results, err := c.fetchBatch(ctx, tokens)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if allTerminal(results) {
			judgePollCycles.Observe(float64(cycles))
			span.SetAttributes(attribute.Int("poll_cycles", cycles))
			return results, nil
		}

		if time.Now().After(deadline) {
			judgeFailures.WithLabelValues("poll", "timeout").Inc()
			err := fmt.Errorf("%w: batch still running after %s", ErrJudgeTimeout, c.maxWait)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *httpClient) fetchBatch(ctx context.Context, tokens []string) ([]TestResult, error) {
	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("base64_encoded", "false")
	query.Set("fields", "*")

	endpoint := c.baseURL + "/submissions/batch?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build judge poll request: %w", err)
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	judgeCallDuration.WithLabelValues("poll").Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues("poll", "transport").Inc()
		return nil, fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		judgeFailures.WithLabelValues("poll", "status").Inc()
		return nil, fmt.Errorf("%w: judge returned status %d", ErrJudgeUnavailable, resp.StatusCode)
	}

	var decoded batchResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		judgeFailures.WithLabelValues("poll", "decode").Inc()
		return nil, fmt.Errorf("%w: decode poll response: %v", ErrJudgeUnavailable, err)
	}
	if len(decoded.Submissions) != len(tokens) {
		judgeFailures.WithLabelValues("poll", "malformed").Inc()
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrJudgeUnavailable, len(tokens), len(decoded.Submissions))
	}

	return decoded.Submissions, nil
}

func (c *httpClient) authorize(req *http.Request) {
	req.Header.Set("x-rapidapi-key", c.apiKey)
	if c.apiHost != "" {
		req.Header.Set("x-rapidapi-host", c.apiHost)
	}
}

func allTerminal(results []TestResult) bool {
	for _, result := range results {
		if !result.Terminal() {
			return false
		}
	}
	return true
}
