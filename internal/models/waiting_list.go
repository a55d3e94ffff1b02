package models

import "time"

// WaitingListEntry queues a student for a course. Presence is membership.
type WaitingListEntry struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
