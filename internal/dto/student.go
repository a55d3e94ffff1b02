package dto

// StudentItem is the name/SSN pair returned by roster and waiting list views.
type StudentItem struct {
	Name string `db:"name" json:"name"`
	SSN  string `db:"ssn" json:"ssn"`
}

// AddStudentRequest identifies a student by SSN.
type AddStudentRequest struct {
	SSN string `json:"ssn" validate:"required"`
}

// CreateStudentRequest registers a student.
type CreateStudentRequest struct {
	SSN  string `json:"ssn" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=255"`
}
