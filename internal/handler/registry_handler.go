package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

type registry interface {
	CreateTemplate(ctx context.Context, req dto.CreateTemplateRequest) (*dto.TemplateItem, error)
	ListTemplates(ctx context.Context) ([]dto.TemplateItem, error)
	CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentItem, error)
	GetStudent(ctx context.Context, ssn string) (*dto.StudentItem, error)
}

// RegistryHandler exposes course templates and students.
type RegistryHandler struct {
	registry registry
}

// NewRegistryHandler constructs RegistryHandler.
func NewRegistryHandler(registry registry) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

// ListTemplates godoc
// @Summary List course templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *RegistryHandler) ListTemplates(c *gin.Context) {
	templates, err := h.registry.ListTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates)
}

// CreateTemplate godoc
// @Summary Register a course template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.CreateTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /templates [post]
func (h *RegistryHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	tmpl, err := h.registry.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tmpl)
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *RegistryHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.registry.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// GetStudent godoc
// @Summary Get a student by SSN
// @Tags Students
// @Produce json
// @Param ssn path string true "Student SSN"
// @Success 200 {object} response.Envelope
// @Router /students/{ssn} [get]
func (h *RegistryHandler) GetStudent(c *gin.Context) {
	student, err := h.registry.GetStudent(c.Request.Context(), c.Param("ssn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}
