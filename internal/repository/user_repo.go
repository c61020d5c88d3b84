package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codequesthq/codequest-api/internal/models"
)

// UserRepository exposes the user lookups and progress writes the grading
// pipeline needs. Account management lives in a separate service.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	MarkSolved(ctx context.Context, userID, problemID uint) error
	ListSolvedProblems(ctx context.Context, userID uint) ([]models.Problem, error)
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// MarkSolved adds the problem to the user's solved set. The insert conflicts
// on the composite key when the pair already exists and does nothing, which
// keeps the operation idempotent under concurrent accepted submissions.
func (r *userRepository) MarkSolved(ctx context.Context, userID, problemID uint) error {
	row := models.SolvedProblem{UserID: userID, ProblemID: problemID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (r *userRepository) ListSolvedProblems(ctx context.Context, userID uint) ([]models.Problem, error) {
	var problems []models.Problem
	err := r.db.WithContext(ctx).
		Joins("JOIN solved_problems ON solved_problems.problem_id = problems.id").
		Where("solved_problems.user_id = ?", userID).
		Order("solved_problems.created_at DESC").
		Find(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}
