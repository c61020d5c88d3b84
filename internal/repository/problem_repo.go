package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/codequesthq/codequest-api/internal/models"
)

// ProblemFilter narrows and paginates problem listings.
type ProblemFilter struct {
	Search     string
	Difficulty string
	Tag        string
	Page       int
	PageSize   int
}

// ProblemRepository exposes persistence helpers for problems.
type ProblemRepository interface {
	Create(ctx context.Context, problem *models.Problem) error
	Update(ctx context.Context, problem *models.Problem) error
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error)
	Delete(ctx context.Context, id uint) error
	RecordSubmission(ctx context.Context, id uint, accepted bool) error
}

// NewProblemRepository constructs a problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) Update(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Save(problem).Error
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) List(ctx context.Context, filter ProblemFilter) ([]models.Problem, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 15
	}

	query := r.db.WithContext(ctx).Model(&models.Problem{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if difficulty := strings.TrimSpace(filter.Difficulty); difficulty != "" {
		query = query.Where("difficulty = ?", strings.ToLower(difficulty))
	}
	// Tags are a JSON array column; match the quoted element.
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where("tags LIKE ?", "%\""+strings.ToLower(tag)+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var problems []models.Problem
	err := query.
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&problems).Error
	if err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Problem{}, id).Error
}

// RecordSubmission bumps the aggregate counters after a graded submission and
// recomputes the acceptance rate in the same statement.
func (r *problemRepository) RecordSubmission(ctx context.Context, id uint, accepted bool) error {
	acceptedDelta := 0
	if accepted {
		acceptedDelta = 1
	}

	return r.db.WithContext(ctx).
		Model(&models.Problem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_submissions":    gorm.Expr("total_submissions + 1"),
			"accepted_submissions": gorm.Expr("accepted_submissions + ?", acceptedDelta),
			"acceptance_rate": gorm.Expr(
				"CAST(accepted_submissions + ? AS REAL) / CAST(total_submissions + 1 AS REAL)",
				acceptedDelta,
			),
		}).Error
}
