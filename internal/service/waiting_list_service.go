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

// WaitingListService manages the queue of students waiting for a seat.
type WaitingListService struct {
	data      DataStore
	validator *validator.Validate
	logger    *zap.Logger
	hooks     ChangeHooks
}

// NewWaitingListService constructs a WaitingListService.
func NewWaitingListService(data DataStore, validate *validator.Validate, logger *zap.Logger, hooks ChangeHooks) *WaitingListService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitingListService{data: data, validator: validate, logger: logger, hooks: hooks}
}

// ListWaiting returns the students queued for a course.
func (s *WaitingListService) ListWaiting(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	stores := s.data.Stores()
	if _, err := NewLookupResolver(stores).ResolveCourse(ctx, courseID); err != nil {
		return nil, err
	}
	students, err := stores.WaitingList.ListStudents(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list waiting list")
	}
	return students, nil
}

// AddToWaitingList queues the student for the course. Any enrollment row for
// the pair blocks the add, including a withdrawn one.
func (s *WaitingListService) AddToWaitingList(ctx context.Context, courseID int64, req dto.AddStudentRequest) (*dto.StudentItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var (
		result   dto.StudentItem
		semester string
	)
	err := s.data.WithinTx(ctx, func(st Stores) error {
		lookup := NewLookupResolver(st)
		course, err := lookup.ResolveCourseForUpdate(ctx, courseID)
		if err != nil {
			return err
		}
		student, err := lookup.ResolveStudent(ctx, req.SSN)
		if err != nil {
			return err
		}

		enrollment, err := lookup.findEnrollment(ctx, course.ID, student.ID)
		if err != nil {
			return err
		}
		if enrollment != nil {
			return appErrors.Clone(appErrors.ErrIllegalAdd, "student has an enrollment record for this course")
		}
		entry, err := lookup.findWaitingEntry(ctx, course.ID, student.ID)
		if err != nil {
			return err
		}
		if entry != nil {
			return appErrors.Clone(appErrors.ErrIllegalAdd, "student is already on the waiting list")
		}

		if err := st.WaitingList.Create(ctx, &models.WaitingListEntry{CourseID: course.ID, StudentID: student.ID}); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrIllegalAdd, "student is already on the waiting list")
			}
			return internalError(err, "failed to add to waiting list")
		}
		semester = course.Semester
		result = dto.StudentItem{Name: student.Name, SSN: student.SSN}
		return nil
	})
	s.hooks.Metrics.RecordEnrollmentOutcome("waitinglist_add", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.hooks.committed(ctx, dto.CourseEvent{Type: dto.EventWaitingListAdded, CourseID: courseID, Semester: semester, SSN: result.SSN, Name: result.Name})
	return &result, nil
}
