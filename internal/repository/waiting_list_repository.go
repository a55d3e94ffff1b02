package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
)

// WaitingListRepository handles persistence of waiting list entries.
type WaitingListRepository struct {
	db DBTX
}

// NewWaitingListRepository constructs the repository.
func NewWaitingListRepository(db DBTX) *WaitingListRepository {
	return &WaitingListRepository{db: db}
}

// FindByCourseAndStudent returns the entry for the pair or sql.ErrNoRows.
func (r *WaitingListRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.WaitingListEntry, error) {
	const query = `SELECT id, course_id, student_id, created_at FROM waiting_list_entries WHERE course_id = $1 AND student_id = $2`
	var entry models.WaitingListEntry
	if err := r.db.GetContext(ctx, &entry, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListStudents returns the students waiting for a course.
func (r *WaitingListRepository) ListStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	const query = `SELECT s.name, s.ssn FROM waiting_list_entries w
        JOIN students s ON s.id = w.student_id
        WHERE w.course_id = $1
        ORDER BY w.created_at, w.id`
	students := []dto.StudentItem{}
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("list waiting list: %w", err)
	}
	return students, nil
}

// Create adds a student to a course's waiting list.
func (r *WaitingListRepository) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	const query = `INSERT INTO waiting_list_entries (course_id, student_id) VALUES ($1, $2) RETURNING id, created_at`
	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, entry.CourseID, entry.StudentID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create waiting list entry: %w", err)
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

// Delete removes a waiting list entry.
func (r *WaitingListRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM waiting_list_entries WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete waiting list entry: %w", err)
	}
	return requireAffected(res)
}
