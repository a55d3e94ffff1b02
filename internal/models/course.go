package models

import "time"

// CourseTemplate is the reusable definition of a course, offered across semesters.
type CourseTemplate struct {
	ID         int64     `db:"id" json:"-"`
	TemplateID string    `db:"template_id" json:"template_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Course is one offering of a template in a semester.
type Course struct {
	ID          int64     `db:"id" json:"id"`
	TemplateID  string    `db:"template_id" json:"template_id"`
	Semester    string    `db:"semester" json:"semester"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseListing is a course joined with its template name and active roster size.
type CourseListing struct {
	Course
	Name         string `db:"name" json:"name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// SeatsAvailable returns the number of open seats, never negative.
func (c CourseListing) SeatsAvailable() int {
	if free := c.MaxStudents - c.StudentCount; free > 0 {
		return free
	}
	return 0
}
