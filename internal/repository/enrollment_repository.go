package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db DBTX
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByCourseAndStudent returns the enrollment row for the pair regardless
// of status, or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, created_at, updated_at FROM enrollments WHERE course_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountActive counts the seats currently taken in a course.
func (r *EnrollmentRepository) CountActive(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// ListActiveStudents returns the active roster of a course.
func (r *EnrollmentRepository) ListActiveStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	const query = `SELECT s.name, s.ssn FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1 AND e.status = $2
        ORDER BY s.name, s.ssn`
	students := []dto.StudentItem{}
	if err := r.db.SelectContext(ctx, &students, query, courseID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (course_id, student_id, status) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, enrollment.CourseID, enrollment.StudentID, enrollment.Status); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	enrollment.ID = row.ID
	enrollment.CreatedAt = row.CreatedAt
	enrollment.UpdatedAt = row.UpdatedAt
	return nil
}

// UpdateStatus flips an enrollment between active and withdrawn in place.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireAffected(res)
}
