package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// Enrollment is the single, long-lived relationship between one student and
// one course. Leaving flips the status instead of deleting the row.
type Enrollment struct {
	ID        int64            `db:"id" json:"id"`
	CourseID  int64            `db:"course_id" json:"course_id"`
	StudentID int64            `db:"student_id" json:"student_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the enrollment currently occupies a seat.
func (e *Enrollment) IsActive() bool {
	return e != nil && e.Status == EnrollmentStatusActive
}
