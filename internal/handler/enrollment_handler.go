package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

type enrollmentManager interface {
	ListActiveStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error)
	Enroll(ctx context.Context, courseID int64, req dto.AddStudentRequest) (*dto.StudentItem, error)
	Withdraw(ctx context.Context, courseID int64, ssn string) error
	GetSingleActiveEnrollment(ctx context.Context, courseID int64, ssn string) (*dto.StudentItem, error)
}

type waitingListManager interface {
	ListWaiting(ctx context.Context, courseID int64) ([]dto.StudentItem, error)
	AddToWaitingList(ctx context.Context, courseID int64, req dto.AddStudentRequest) (*dto.StudentItem, error)
}

// EnrollmentHandler exposes course rosters and waiting lists.
type EnrollmentHandler struct {
	enrollments enrollmentManager
	waiting     waitingListManager
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentManager, waiting waitingListManager) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, waiting: waiting}
}

// ListStudents godoc
// @Summary List actively enrolled students
// @Tags Enrollments
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *EnrollmentHandler) ListStudents(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.enrollments.ListActiveStudents(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Enroll godoc
// @Summary Enroll a student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body dto.AddStudentRequest true "Student SSN"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/students [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AddStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.enrollments.Enroll(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// GetStudent godoc
// @Summary Get an active enrollment
// @Tags Enrollments
// @Produce json
// @Param id path int true "Course ID"
// @Param ssn path string true "Student SSN"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students/{ssn} [get]
func (h *EnrollmentHandler) GetStudent(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.enrollments.GetSingleActiveEnrollment(c.Request.Context(), id, c.Param("ssn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Withdraw godoc
// @Summary Withdraw a student
// @Tags Enrollments
// @Param id path int true "Course ID"
// @Param ssn path string true "Student SSN"
// @Success 204
// @Router /courses/{id}/students/{ssn} [delete]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.enrollments.Withdraw(c.Request.Context(), id, c.Param("ssn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListWaiting godoc
// @Summary List the waiting list
// @Tags WaitingList
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/waitinglist [get]
func (h *EnrollmentHandler) ListWaiting(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.waiting.ListWaiting(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// AddToWaitingList godoc
// @Summary Add a student to the waiting list
// @Tags WaitingList
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body dto.AddStudentRequest true "Student SSN"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/waitinglist [post]
func (h *EnrollmentHandler) AddToWaitingList(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AddStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.waiting.AddToWaitingList(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}
