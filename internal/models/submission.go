package models

import "time"

// Submission lifecycle statuses. A submission is created pending and moved to
// exactly one terminal status when grading completes.
const (
	SubmissionStatusPending      = "pending"
	SubmissionStatusAccepted     = "accepted"
	SubmissionStatusWrongAnswer  = "wrong_answer"
	SubmissionStatusRuntimeError = "runtime_error"
)

// Submission is one graded attempt at a problem. TestCasesTotal is fixed at
// creation from the problem's hidden test case count; Runtime is the sum of
// accepted test-case times in seconds and Memory the peak across cases in KB.
type Submission struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ProblemID       uint      `gorm:"not null;index" json:"problem_id"`
	Code            string    `gorm:"type:text;not null" json:"code"`
	Language        string    `gorm:"size:32;not null" json:"language"`
	Status          string    `gorm:"size:32;not null;default:pending" json:"status"`
	Runtime         float64   `gorm:"default:0" json:"runtime"`
	Memory          int64     `gorm:"default:0" json:"memory"`
	TestCasesPassed int       `gorm:"default:0" json:"test_cases_passed"`
	TestCasesTotal  int       `gorm:"not null" json:"test_cases_total"`
	ErrorMessage    *string   `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Graded reports whether the submission reached a terminal status.
func (s Submission) Graded() bool {
	return s.Status != SubmissionStatusPending
}
