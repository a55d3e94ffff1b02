package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

type courseCatalog interface {
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseSummary, error)
	UpdateCourse(ctx context.Context, id int64, req dto.UpdateCourseRequest) (*dto.CourseDetail, error)
	DeleteCourse(ctx context.Context, id int64) error
	GetCourseDetails(ctx context.Context, id int64) (*dto.CourseDetail, error)
	ListCoursesForSemester(ctx context.Context, semester string) ([]dto.CourseSummary, error)
}

type rosterExporter interface {
	ExportRoster(ctx context.Context, courseID int64, format string) (*service.ExportResult, error)
}

// CourseHandler exposes the course catalog.
type CourseHandler struct {
	courses courseCatalog
	exports rosterExporter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseCatalog, exports rosterExporter) *CourseHandler {
	return &CourseHandler{courses: courses, exports: exports}
}

// List godoc
// @Summary List courses of a semester
// @Tags Courses
// @Produce json
// @Param semester query string false "Semester, defaults to the configured semester"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.ListCoursesForSemester(c.Request.Context(), c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Get godoc
// @Summary Get course detail with active roster
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.courses.GetCourseDetails(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Create godoc
// @Summary Create a course offering
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course dates and capacity
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateCourseRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.courses.UpdateCourse(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Delete godoc
// @Summary Delete a course
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.DeleteCourse(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportRoster godoc
// @Summary Download the active roster
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /courses/{id}/students/export [get]
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	id, err := courseIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportRoster(c.Request.Context(), id, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Body)
}
