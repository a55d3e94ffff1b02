package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/pkg/config"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// CourseServiceConfig holds catalog settings.
type CourseServiceConfig struct {
	// DefaultSemester is listed when the caller gives no semester.
	DefaultSemester string
	CacheTTL        time.Duration
}

// CourseServiceParams groups constructor dependencies.
type CourseServiceParams struct {
	Data      DataStore
	Validator *validator.Validate
	Logger    *zap.Logger
	Hooks     ChangeHooks
	Config    CourseServiceConfig
}

// CourseService is the course catalog: offering CRUD, semester listings and
// detail views with the active roster.
type CourseService struct {
	data      DataStore
	validator *validator.Validate
	logger    *zap.Logger
	hooks     ChangeHooks
	cfg       CourseServiceConfig
}

// NewCourseService constructs a CourseService.
func NewCourseService(params CourseServiceParams) *CourseService {
	cfg := params.Config
	if strings.TrimSpace(cfg.DefaultSemester) == "" {
		cfg.DefaultSemester = config.DefaultSemester
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{data: params.Data, validator: validate, logger: logger, hooks: params.Hooks, cfg: cfg}
}

// DefaultSemester returns the semester listed when none is requested.
func (s *CourseService) DefaultSemester() string {
	return s.cfg.DefaultSemester
}

// CreateCourse adds an offering of an existing template. An unknown template
// is reported as a data integrity error.
func (s *CourseService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		TemplateID:  strings.TrimSpace(req.TemplateID),
		Semester:    strings.TrimSpace(req.Semester),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MaxStudents: req.MaxStudents,
	}
	var tmpl *models.CourseTemplate
	err := s.data.WithinTx(ctx, func(st Stores) error {
		var err error
		tmpl, err = st.Templates.FindByTemplateID(ctx, course.TemplateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("course template %s does not exist", course.TemplateID))
			}
			return internalError(err, "failed to load course template")
		}
		if err := st.Courses.Create(ctx, course); err != nil {
			return internalError(err, "failed to create course")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: dto.EventCourseCreated, CourseID: course.ID, Semester: course.Semester})
	summary := toCourseSummary(course, tmpl.Name, 0)
	return &summary, nil
}

// UpdateCourse changes the dates of a course and, when given, its capacity.
// Capacity cannot drop below the number of active enrollments.
func (s *CourseService) UpdateCourse(ctx context.Context, id int64, req dto.UpdateCourseRequest) (*dto.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	var detail *dto.CourseDetail
	err := s.data.WithinTx(ctx, func(st Stores) error {
		lookup := NewLookupResolver(st)
		course, err := lookup.ResolveCourseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		tmpl, err := lookup.template(ctx, course)
		if err != nil {
			return err
		}

		if req.MaxStudents != nil {
			active, err := st.Enrollments.CountActive(ctx, course.ID)
			if err != nil {
				return internalError(err, "failed to count enrollments")
			}
			if *req.MaxStudents < active {
				return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("course has %d active students", active))
			}
			course.MaxStudents = *req.MaxStudents
		}
		course.StartDate = req.StartDate
		course.EndDate = req.EndDate
		if err := st.Courses.Update(ctx, course); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return courseLookupError(id, err)
			}
			return internalError(err, "failed to update course")
		}

		detail, err = s.detail(ctx, st, course, tmpl)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: dto.EventCourseUpdated, CourseID: id, Semester: detail.Semester})
	return detail, nil
}

// DeleteCourse removes a course. Its enrollment and waiting list rows are kept.
func (s *CourseService) DeleteCourse(ctx context.Context, id int64) error {
	var semester string
	err := s.data.WithinTx(ctx, func(st Stores) error {
		course, err := NewLookupResolver(st).ResolveCourseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := st.Courses.Delete(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return courseLookupError(id, err)
			}
			return internalError(err, "failed to delete course")
		}
		semester = course.Semester
		return nil
	})
	if err != nil {
		return err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: dto.EventCourseDeleted, CourseID: id, Semester: semester})
	return nil
}

// GetCourseDetails returns the course with its template name and active roster.
func (s *CourseService) GetCourseDetails(ctx context.Context, id int64) (*dto.CourseDetail, error) {
	return cachedLoad(ctx, s.hooks.Cache, courseDetailCacheKey(id), s.cfg.CacheTTL, func(ctx context.Context) (*dto.CourseDetail, error) {
		stores := s.data.Stores()
		course, tmpl, err := NewLookupResolver(stores).ResolveCourseWithTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.detail(ctx, stores, course, tmpl)
	})
}

// ListCoursesForSemester lists the courses of a semester with their active
// student counts. A blank semester means the configured default.
func (s *CourseService) ListCoursesForSemester(ctx context.Context, semester string) ([]dto.CourseSummary, error) {
	semester = strings.TrimSpace(semester)
	if semester == "" {
		semester = s.cfg.DefaultSemester
	}

	return cachedLoad(ctx, s.hooks.Cache, semesterCacheKey(semester), s.cfg.CacheTTL, func(ctx context.Context) ([]dto.CourseSummary, error) {
		listings, err := s.data.Stores().Courses.ListBySemester(ctx, semester)
		if err != nil {
			return nil, internalError(err, "failed to list courses")
		}
		summaries := make([]dto.CourseSummary, 0, len(listings))
		for i := range listings {
			summaries = append(summaries, toCourseSummary(&listings[i].Course, listings[i].Name, listings[i].StudentCount))
		}
		return summaries, nil
	})
}

// ListCourseListings returns the raw listings of a semester, bypassing the cache.
func (s *CourseService) ListCourseListings(ctx context.Context, semester string) ([]models.CourseListing, error) {
	listings, err := s.data.Stores().Courses.ListBySemester(ctx, semester)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return listings, nil
}

func (s *CourseService) detail(ctx context.Context, st Stores, course *models.Course, tmpl *models.CourseTemplate) (*dto.CourseDetail, error) {
	students, err := st.Enrollments.ListActiveStudents(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to list students")
	}
	return &dto.CourseDetail{
		ID:           course.ID,
		TemplateID:   course.TemplateID,
		Name:         tmpl.Name,
		Semester:     course.Semester,
		StartDate:    course.StartDate,
		EndDate:      course.EndDate,
		MaxStudents:  course.MaxStudents,
		Students:     students,
		StudentCount: len(students),
	}, nil
}

func toCourseSummary(course *models.Course, name string, count int) dto.CourseSummary {
	return dto.CourseSummary{
		ID:           course.ID,
		TemplateID:   course.TemplateID,
		Name:         name,
		Semester:     course.Semester,
		StartDate:    course.StartDate,
		EndDate:      course.EndDate,
		MaxStudents:  course.MaxStudents,
		StudentCount: count,
	}
}
