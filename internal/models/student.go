package models

import "time"

// Student is a person who can enroll in courses. SSN is the external identity.
type Student struct {
	ID        int64     `db:"id" json:"-"`
	SSN       string    `db:"ssn" json:"ssn"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
