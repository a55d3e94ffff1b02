package service

import (
	"context"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
)

type courseTemplateStore interface {
	FindByTemplateID(ctx context.Context, templateID string) (*models.CourseTemplate, error)
	List(ctx context.Context) ([]models.CourseTemplate, error)
	Create(ctx context.Context, tmpl *models.CourseTemplate) error
}

type courseStore interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Course, error)
	ListBySemester(ctx context.Context, semester string) ([]models.CourseListing, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type studentStore interface {
	FindBySSN(ctx context.Context, ssn string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type enrollmentStore interface {
	FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error)
	CountActive(ctx context.Context, courseID int64) (int, error)
	ListActiveStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
}

type waitingListStore interface {
	FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.WaitingListEntry, error)
	ListStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error)
	Create(ctx context.Context, entry *models.WaitingListEntry) error
	Delete(ctx context.Context, id int64) error
}

// Stores is the set of repositories one operation works against. Inside
// WithinTx every member shares the same transaction.
type Stores struct {
	Templates   courseTemplateStore
	Courses     courseStore
	Students    studentStore
	Enrollments enrollmentStore
	WaitingList waitingListStore
}

// DataStore hands out repositories for plain reads and runs multi-step
// mutations atomically.
type DataStore interface {
	Stores() Stores
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

type repositoryDataStore struct {
	store *repository.Store
}

// NewDataStore adapts the SQL repository store to DataStore.
func NewDataStore(store *repository.Store) DataStore {
	return &repositoryDataStore{store: store}
}

func (d *repositoryDataStore) Stores() Stores {
	return storesOf(d.store)
}

func (d *repositoryDataStore) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return d.store.WithinTx(ctx, func(tx *repository.Store) error {
		return fn(storesOf(tx))
	})
}

func storesOf(s *repository.Store) Stores {
	return Stores{
		Templates:   s.Templates,
		Courses:     s.Courses,
		Students:    s.Students,
		Enrollments: s.Enrollments,
		WaitingList: s.WaitingList,
	}
}
