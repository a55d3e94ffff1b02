package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/models"
)

const courseColumns = `id, template_id, semester, start_date, end_date, max_students, created_at, updated_at`

// CourseRepository handles persistence of course offerings.
type CourseRepository struct {
	db DBTX
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by id or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDForUpdate returns a course and row-locks it until the surrounding
// transaction ends. Every seat-affecting operation takes this lock first, so
// operations on one course run one at a time.
func (r *CourseRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 FOR UPDATE`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListBySemester returns the courses of a semester with template names and
// active enrollment counts. Courses whose template is missing are omitted.
func (r *CourseRepository) ListBySemester(ctx context.Context, semester string) ([]models.CourseListing, error) {
	const query = `SELECT c.id, c.template_id, c.semester, c.start_date, c.end_date, c.max_students, c.created_at, c.updated_at,
        ct.name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = $2) AS student_count
        FROM courses c
        JOIN course_templates ct ON ct.template_id = c.template_id
        WHERE c.semester = $1
        ORDER BY c.start_date, c.id`
	listings := []models.CourseListing{}
	if err := r.db.SelectContext(ctx, &listings, query, semester, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list courses for semester: %w", err)
	}
	return listings, nil
}

// Create inserts a course and fills its generated fields.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (template_id, semester, start_date, end_date, max_students)
        VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, course.TemplateID, course.Semester, course.StartDate, course.EndDate, course.MaxStudents); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	course.ID = row.ID
	course.CreatedAt = row.CreatedAt
	course.UpdatedAt = row.UpdatedAt
	return nil
}

// Update writes the mutable fields of a course: dates and capacity.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET start_date = $2, end_date = $3, max_students = $4, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, course.ID, course.StartDate, course.EndDate, course.MaxStudents)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(res)
}

// Delete removes the course row only; enrollments and waiting list entries
// referencing it are kept.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM courses WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res)
}
