package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// LookupResolver turns identifiers into entities, translating missing rows
// into domain errors.
type LookupResolver struct {
	stores Stores
}

// NewLookupResolver binds a resolver to a set of stores, usually a transaction.
func NewLookupResolver(stores Stores) *LookupResolver {
	return &LookupResolver{stores: stores}
}

// ResolveCourse returns the course or NotFound.
func (l *LookupResolver) ResolveCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := l.stores.Courses.FindByID(ctx, id)
	return course, courseLookupError(id, err)
}

// ResolveCourseForUpdate is ResolveCourse that also row-locks the course for
// the rest of the transaction.
func (l *LookupResolver) ResolveCourseForUpdate(ctx context.Context, id int64) (*models.Course, error) {
	course, err := l.stores.Courses.FindByIDForUpdate(ctx, id)
	return course, courseLookupError(id, err)
}

// ResolveCourseWithTemplate returns the course and its template. A course
// whose template is gone is a data integrity fault.
func (l *LookupResolver) ResolveCourseWithTemplate(ctx context.Context, id int64) (*models.Course, *models.CourseTemplate, error) {
	course, err := l.ResolveCourse(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := l.template(ctx, course)
	if err != nil {
		return nil, nil, err
	}
	return course, tmpl, nil
}

// ResolveStudent returns the student with the given SSN or NotFound.
func (l *LookupResolver) ResolveStudent(ctx context.Context, ssn string) (*models.Student, error) {
	student, err := l.stores.Students.FindBySSN(ctx, ssn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", ssn))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ResolveActiveEnrollment returns the active enrollment for the pair or NotFound.
func (l *LookupResolver) ResolveActiveEnrollment(ctx context.Context, course *models.Course, student *models.Student) (*models.Enrollment, error) {
	enrollment, err := l.findEnrollment(ctx, course.ID, student.ID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not enrolled in course %d", student.SSN, course.ID))
	}
	return enrollment, nil
}

func (l *LookupResolver) template(ctx context.Context, course *models.Course) (*models.CourseTemplate, error) {
	tmpl, err := l.stores.Templates.FindByTemplateID(ctx, course.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("course %d references missing template %s", course.ID, course.TemplateID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course template")
	}
	return tmpl, nil
}

// findEnrollment returns nil without error when the pair has never been enrolled.
func (l *LookupResolver) findEnrollment(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	enrollment, err := l.stores.Enrollments.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (l *LookupResolver) findWaitingEntry(ctx context.Context, courseID, studentID int64) (*models.WaitingListEntry, error) {
	entry, err := l.stores.WaitingList.FindByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting list entry")
	}
	return entry, nil
}

func courseLookupError(id int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %d not found", id))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
