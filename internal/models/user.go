package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform account. Authentication flows live outside this
// service; the fields here are what grading and progress tracking need.
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FirstName    string          `gorm:"size:64;not null" json:"first_name"`
	LastName     string          `gorm:"size:64" json:"last_name"`
	Email        string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Age          int             `json:"age"`
	PasswordHash string          `gorm:"size:255;not null" json:"-"`
	Role         string          `gorm:"size:16;not null;default:user" json:"role"`
	Solved       []SolvedProblem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions  []Submission    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsAdmin reports whether the user may author problems.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SolvedProblem marks that a user has had at least one accepted submission for
// a problem. The composite primary key gives the solved set its set semantics:
// inserting an already-present pair conflicts instead of duplicating.
type SolvedProblem struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ProblemID uint      `gorm:"primaryKey;autoIncrement:false" json:"problem_id"`
	CreatedAt time.Time `json:"created_at"`
}
