package judge0

import "strconv"

// Submission status identifiers as reported by the judge.
const (
	StatusInQueue          = 1
	StatusProcessing       = 2
	StatusAccepted         = 3
	StatusWrongAnswer      = 4
	StatusTimeLimitExceed  = 5
	StatusCompilationError = 6
)

// TestCase is a single stdin/expected-stdout pair sent to the judge.
type TestCase struct {
	Stdin          string
	ExpectedOutput string
}

// TestResult is the judge's result for one test case. Results for tokens that
// are still queued or processing carry a non-terminal status and are superseded
// by the next poll.
type TestResult struct {
	Token         string  `json:"token"`
	StatusID      int     `json:"status_id"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Time          *string `json:"time"`
	Memory        *int64  `json:"memory"`
}

// Terminal reports whether the result will no longer change. Anything past
// "processing" is final, including unknown future status identifiers.
func (r TestResult) Terminal() bool {
	return r.StatusID > StatusProcessing
}

// Accepted reports whether the test case passed.
func (r TestResult) Accepted() bool {
	return r.StatusID == StatusAccepted
}

// TimeSeconds parses the judge's elapsed-time field. The judge reports it as a
// decimal string; a missing or malformed value counts as zero.
func (r TestResult) TimeSeconds() float64 {
	if r.Time == nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(*r.Time, 64)
	if err != nil {
		return 0
	}
	return seconds
}

// MemoryKB returns the peak memory of the run in kilobytes.
func (r TestResult) MemoryKB() int64 {
	if r.Memory == nil {
		return 0
	}
	return *r.Memory
}

// StdoutText returns stdout with a nil-safe default.
func (r TestResult) StdoutText() string {
	if r.Stdout == nil {
		return ""
	}
	return *r.Stdout
}

// ErrorText returns the most specific error output the judge produced,
// preferring stderr over compiler output.
func (r TestResult) ErrorText() string {
	if r.Stderr != nil && *r.Stderr != "" {
		return *r.Stderr
	}
	if r.CompileOutput != nil && *r.CompileOutput != "" {
		return *r.CompileOutput
	}
	return ""
}

type submissionPayload struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type batchRequest struct {
	Submissions []submissionPayload `json:"submissions"`
}

type tokenEntry struct {
	Token string `json:"token"`
}

type batchResultResponse struct {
	Submissions []TestResult `json:"submissions"`
}
