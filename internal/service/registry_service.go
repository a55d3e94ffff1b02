package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// RegistryService registers the course templates and students that courses
// and enrollments refer to.
type RegistryService struct {
	data      DataStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(data DataStore, validate *validator.Validate, logger *zap.Logger) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{data: data, validator: validate, logger: logger}
}

// CreateTemplate registers a course template.
func (s *RegistryService) CreateTemplate(ctx context.Context, req dto.CreateTemplateRequest) (*dto.TemplateItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	tmpl := &models.CourseTemplate{TemplateID: strings.TrimSpace(req.TemplateID), Name: strings.TrimSpace(req.Name)}
	if err := s.data.Stores().Templates.Create(ctx, tmpl); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrIllegalAdd, "course template already exists")
		}
		return nil, internalError(err, "failed to create course template")
	}
	return &dto.TemplateItem{TemplateID: tmpl.TemplateID, Name: tmpl.Name}, nil
}

// ListTemplates returns every registered template.
func (s *RegistryService) ListTemplates(ctx context.Context) ([]dto.TemplateItem, error) {
	templates, err := s.data.Stores().Templates.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list course templates")
	}
	items := make([]dto.TemplateItem, 0, len(templates))
	for _, tmpl := range templates {
		items = append(items, dto.TemplateItem{TemplateID: tmpl.TemplateID, Name: tmpl.Name})
	}
	return items, nil
}

// CreateStudent registers a student. SSNs are unique.
func (s *RegistryService) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{SSN: strings.TrimSpace(req.SSN), Name: strings.TrimSpace(req.Name)}
	if err := s.data.Stores().Students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrIllegalAdd, "student with this SSN already exists")
		}
		return nil, internalError(err, "failed to create student")
	}
	return &dto.StudentItem{Name: student.Name, SSN: student.SSN}, nil
}

// GetStudent returns a student by SSN.
func (s *RegistryService) GetStudent(ctx context.Context, ssn string) (*dto.StudentItem, error) {
	student, err := NewLookupResolver(s.data.Stores()).ResolveStudent(ctx, ssn)
	if err != nil {
		return nil, err
	}
	return &dto.StudentItem{Name: student.Name, SSN: student.SSN}, nil
}
