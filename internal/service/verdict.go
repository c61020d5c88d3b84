package service

import (
	"github.com/codequesthq/codequest-api/internal/dto"
	"github.com/codequesthq/codequest-api/internal/models"
	"github.com/codequesthq/codequest-api/pkg/judge0"
)

const genericExecutionError = "Execution error"

// Verdict is the submission-level reduction of a batch of judge results.
type Verdict struct {
	Status          string
	Runtime         float64
	Memory          int64
	TestCasesPassed int
	ErrorMessage    *string
}

// Accepted reports whether every test case passed.
func (v Verdict) Accepted() bool {
	return v.Status == models.SubmissionStatusAccepted
}

// AggregateVerdict reduces judge results, in submission order, to a single
// verdict with first-failure-stops semantics: accepted results accumulate
// runtime (sum) and memory (max) until the first failure, which fixes the
// status and error message and ends accumulation. Timing from cases after the
// first failure is deliberately discarded to match the platform's historical
// grading behavior.
func AggregateVerdict(results []judge0.TestResult) Verdict {
	verdict := Verdict{Status: models.SubmissionStatusAccepted}

	for _, result := range results {
		if result.Accepted() {
			verdict.TestCasesPassed++
			verdict.Runtime += result.TimeSeconds()
			if mem := result.MemoryKB(); mem > verdict.Memory {
				verdict.Memory = mem
			}
			continue
		}

		message := result.ErrorText()
		if message == "" {
			message = genericExecutionError
		}
		verdict.ErrorMessage = &message

		if result.StatusID == judge0.StatusWrongAnswer {
			verdict.Status = models.SubmissionStatusWrongAnswer
		} else {
			verdict.Status = models.SubmissionStatusRuntimeError
		}
		break
	}

	return verdict
}

// AggregateRunDetails maps judge results onto the visible test cases they were
// built from, producing a per-case breakdown with no early stop so users see
// every failing case, not just the first.
func AggregateRunDetails(cases []models.ProblemTestCase, results []judge0.TestResult) []dto.RunCaseResult {
	details := make([]dto.RunCaseResult, 0, len(results))

	for i, result := range results {
		detail := dto.RunCaseResult{
			StatusID: result.StatusID,
			Time:     result.TimeSeconds(),
			Memory:   result.MemoryKB(),
		}
		if i < len(cases) {
			detail.Input = cases[i].Input
			detail.ExpectedOutput = cases[i].Output
		}

		switch {
		case result.Accepted():
			detail.Status = dto.RunCaseAccepted
			detail.ActualOutput = result.StdoutText()
		case result.StatusID == judge0.StatusWrongAnswer:
			detail.Status = dto.RunCaseWrongAnswer
			detail.ActualOutput = result.StdoutText()
		default:
			detail.Status = dto.RunCaseError
			message := result.ErrorText()
			if message == "" {
				message = genericExecutionError
			}
			detail.Error = &message
		}

		details = append(details, detail)
	}

	return details
}
