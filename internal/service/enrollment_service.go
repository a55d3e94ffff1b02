package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// EnrollmentService enforces the seat, uniqueness and waiting list rules
// when a student joins or leaves a course.
type EnrollmentService struct {
	data      DataStore
	validator *validator.Validate
	logger    *zap.Logger
	hooks     ChangeHooks
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(data DataStore, validate *validator.Validate, logger *zap.Logger, hooks ChangeHooks) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{data: data, validator: validate, logger: logger, hooks: hooks}
}

// ListActiveStudents returns the active roster of a course.
func (s *EnrollmentService) ListActiveStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	stores := s.data.Stores()
	if _, err := NewLookupResolver(stores).ResolveCourse(ctx, courseID); err != nil {
		return nil, err
	}
	students, err := stores.Enrollments.ListActiveStudents(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list students")
	}
	return students, nil
}

// Enroll gives the student a seat in the course. An existing withdrawn
// enrollment is reactivated rather than duplicated, and any waiting list
// entry for the pair is removed in the same transaction.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID int64, req dto.AddStudentRequest) (*dto.StudentItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var (
		result    dto.StudentItem
		semester  string
		eventType string
	)
	err := s.data.WithinTx(ctx, func(st Stores) error {
		lookup := NewLookupResolver(st)
		// The course row lock serialises all seat changes for this course.
		course, err := lookup.ResolveCourseForUpdate(ctx, courseID)
		if err != nil {
			return err
		}
		student, err := lookup.ResolveStudent(ctx, req.SSN)
		if err != nil {
			return err
		}

		existing, err := lookup.findEnrollment(ctx, course.ID, student.ID)
		if err != nil {
			return err
		}
		if existing.IsActive() {
			return appErrors.Clone(appErrors.ErrIllegalAdd, "student is already enrolled in this course")
		}

		active, err := st.Enrollments.CountActive(ctx, course.ID)
		if err != nil {
			return internalError(err, "failed to count enrollments")
		}
		if active >= course.MaxStudents {
			return appErrors.Clone(appErrors.ErrCapacityExceeded, "course has no free seats")
		}

		entry, err := lookup.findWaitingEntry(ctx, course.ID, student.ID)
		if err != nil {
			return err
		}
		if entry != nil {
			if err := st.WaitingList.Delete(ctx, entry.ID); err != nil {
				return internalError(err, "failed to remove waiting list entry")
			}
		}

		if existing != nil {
			if err := st.Enrollments.UpdateStatus(ctx, existing.ID, models.EnrollmentStatusActive); err != nil {
				return internalError(err, "failed to reactivate enrollment")
			}
			eventType = dto.EventEnrollmentReactivated
		} else {
			enrollment := &models.Enrollment{CourseID: course.ID, StudentID: student.ID, Status: models.EnrollmentStatusActive}
			if err := st.Enrollments.Create(ctx, enrollment); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return appErrors.Clone(appErrors.ErrIllegalAdd, "student is already enrolled in this course")
				}
				return internalError(err, "failed to create enrollment")
			}
			eventType = dto.EventEnrollmentCreated
		}

		semester = course.Semester
		result = dto.StudentItem{Name: student.Name, SSN: student.SSN}
		return nil
	})
	s.hooks.Metrics.RecordEnrollmentOutcome("enroll", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: eventType, CourseID: courseID, Semester: semester, SSN: result.SSN, Name: result.Name})
	return &result, nil
}

// Withdraw marks the student's active enrollment as withdrawn. The row is
// kept and the waiting list is left untouched.
func (s *EnrollmentService) Withdraw(ctx context.Context, courseID int64, ssn string) error {
	var (
		semester string
		name     string
	)
	err := s.data.WithinTx(ctx, func(st Stores) error {
		lookup := NewLookupResolver(st)
		course, err := lookup.ResolveCourseForUpdate(ctx, courseID)
		if err != nil {
			return err
		}
		student, err := lookup.ResolveStudent(ctx, ssn)
		if err != nil {
			return err
		}
		enrollment, err := lookup.ResolveActiveEnrollment(ctx, course, student)
		if err != nil {
			return err
		}
		if err := st.Enrollments.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusWithdrawn); err != nil {
			return internalError(err, "failed to withdraw enrollment")
		}
		semester, name = course.Semester, student.Name
		return nil
	})
	s.hooks.Metrics.RecordEnrollmentOutcome("withdraw", outcomeOf(err))
	if err != nil {
		return err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: dto.EventEnrollmentWithdrawn, CourseID: courseID, Semester: semester, SSN: ssn, Name: name})
	return nil
}

// GetSingleActiveEnrollment returns the student when actively enrolled in the course.
func (s *EnrollmentService) GetSingleActiveEnrollment(ctx context.Context, courseID int64, ssn string) (*dto.StudentItem, error) {
	lookup := NewLookupResolver(s.data.Stores())
	course, err := lookup.ResolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	student, err := lookup.ResolveStudent(ctx, ssn)
	if err != nil {
		return nil, err
	}
	if _, err := lookup.ResolveActiveEnrollment(ctx, course, student); err != nil {
		return nil, err
	}
	return &dto.StudentItem{Name: student.Name, SSN: student.SSN}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, appErrors.ErrIllegalAdd):
		return OutcomeIllegalAdd
	case errors.Is(err, appErrors.ErrCapacityExceeded):
		return OutcomeCapacityExceeded
	case errors.Is(err, appErrors.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
