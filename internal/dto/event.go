package dto

import "time"

// Event types published after a committed change.
const (
	EventEnrollmentCreated     = "enrollment.created"
	EventEnrollmentReactivated = "enrollment.reactivated"
	EventEnrollmentWithdrawn   = "enrollment.withdrawn"
	EventWaitingListAdded      = "waitinglist.added"
	EventCourseCreated         = "course.created"
	EventCourseUpdated         = "course.updated"
	EventCourseDeleted         = "course.deleted"
)

// CourseEvent is the message body published to the broker.
type CourseEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CourseID   int64     `json:"course_id"`
	Semester   string    `json:"semester,omitempty"`
	SSN        string    `json:"ssn,omitempty"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
