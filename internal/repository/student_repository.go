package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db DBTX
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindBySSN fetches a student by social security number.
func (r *StudentRepository) FindBySSN(ctx context.Context, ssn string) (*models.Student, error) {
	const query = `SELECT id, ssn, name, created_at FROM students WHERE ssn = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, ssn); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a student. ErrDuplicate signals an SSN already registered.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (ssn, name) VALUES ($1, $2) RETURNING id, created_at`
	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, student.SSN, student.Name); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	student.ID = row.ID
	student.CreatedAt = row.CreatedAt
	return nil
}
