package models

import (
	"time"

	"gorm.io/datatypes"
)

// Problem difficulties.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Example is a worked input/output pair shown in the problem statement.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation"`
}

// ProblemTestCase is an input/expected-output pair. Visible cases drive the
// run action and reference-solution validation; hidden cases drive grading.
type ProblemTestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CodeSnippet is the per-language starter code shown in the editor.
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ReferenceSolution is an admin-authored solution that must pass every visible
// test case before the problem may be stored.
type ReferenceSolution struct {
	Language string `json:"language"`
	Solution string `json:"solution"`
}

// Problem is a practice exercise with visible and hidden test cases.
type Problem struct {
	ID                  uint                                     `gorm:"primaryKey" json:"id"`
	Title               string                                   `gorm:"size:255;not null" json:"title"`
	Difficulty          string                                   `gorm:"size:16;not null" json:"difficulty"`
	Tags                datatypes.JSONSlice[string]              `json:"tags"`
	Companies           datatypes.JSONSlice[string]              `json:"companies"`
	Description         string                                   `gorm:"type:text;not null" json:"description"`
	Examples            datatypes.JSONSlice[Example]             `json:"examples"`
	VisibleTestCases    datatypes.JSONSlice[ProblemTestCase]     `json:"visible_test_cases"`
	HiddenTestCases     datatypes.JSONSlice[ProblemTestCase]     `json:"-"`
	StarterCode         datatypes.JSONSlice[CodeSnippet]         `json:"starter_code"`
	ReferenceSolutions  datatypes.JSONSlice[ReferenceSolution]   `json:"-"`
	CreatorID           uint                                     `gorm:"not null" json:"creator_id"`
	AcceptedSubmissions int64                                    `gorm:"default:0" json:"accepted_submissions"`
	TotalSubmissions    int64                                    `gorm:"default:0" json:"total_submissions"`
	AcceptanceRate      float64                                  `gorm:"default:0" json:"acceptance_rate"`
	CreatedAt           time.Time                                `json:"created_at"`
	UpdatedAt           time.Time                                `json:"updated_at"`
}
