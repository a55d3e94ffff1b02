package dto

import "time"

// CourseSummary is the list view of a course.
type CourseSummary struct {
	ID           int64     `json:"id"`
	TemplateID   string    `json:"template_id"`
	Name         string    `json:"name"`
	Semester     string    `json:"semester"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MaxStudents  int       `json:"max_students"`
	StudentCount int       `json:"student_count"`
}

// CourseDetail is a course with its active roster.
type CourseDetail struct {
	ID           int64         `json:"id"`
	TemplateID   string        `json:"template_id"`
	Name         string        `json:"name"`
	Semester     string        `json:"semester"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	MaxStudents  int           `json:"max_students"`
	Students     []StudentItem `json:"students"`
	StudentCount int           `json:"student_count"`
}

// CreateCourseRequest is the payload for creating a course offering.
type CreateCourseRequest struct {
	TemplateID  string    `json:"template_id" validate:"required"`
	Semester    string    `json:"semester" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	MaxStudents int       `json:"max_students" validate:"min=0"`
}

// UpdateCourseRequest updates course dates and, optionally, capacity.
type UpdateCourseRequest struct {
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	MaxStudents *int      `json:"max_students,omitempty" validate:"omitempty,min=0"`
}

// CreateTemplateRequest registers a course template.
type CreateTemplateRequest struct {
	TemplateID string `json:"template_id" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
}

// TemplateItem is the API view of a template.
type TemplateItem struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
}
