package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// CourseTemplateRepository handles persistence of course templates.
type CourseTemplateRepository struct {
	db DBTX
}

// NewCourseTemplateRepository constructs the repository.
func NewCourseTemplateRepository(db DBTX) *CourseTemplateRepository {
	return &CourseTemplateRepository{db: db}
}

// FindByTemplateID looks a template up by its public identifier.
func (r *CourseTemplateRepository) FindByTemplateID(ctx context.Context, templateID string) (*models.CourseTemplate, error) {
	const query = `SELECT id, template_id, name, created_at FROM course_templates WHERE template_id = $1`
	var tmpl models.CourseTemplate
	if err := r.db.GetContext(ctx, &tmpl, query, templateID); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// List returns all templates ordered by identifier.
func (r *CourseTemplateRepository) List(ctx context.Context) ([]models.CourseTemplate, error) {
	const query = `SELECT id, template_id, name, created_at FROM course_templates ORDER BY template_id`
	templates := []models.CourseTemplate{}
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list course templates: %w", err)
	}
	return templates, nil
}

// Create inserts a template. ErrDuplicate signals an existing template_id.
func (r *CourseTemplateRepository) Create(ctx context.Context, tmpl *models.CourseTemplate) error {
	const query = `INSERT INTO course_templates (template_id, name) VALUES ($1, $2) RETURNING id, created_at`
	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, tmpl.TemplateID, tmpl.Name); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course template: %w", err)
	}
	tmpl.ID = row.ID
	tmpl.CreatedAt = row.CreatedAt
	return nil
}
