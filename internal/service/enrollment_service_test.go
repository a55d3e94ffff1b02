package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type enrollmentFixture struct {
	data     *memoryData
	events   *recordingEvents
	metrics  *MetricsService
	svc      *EnrollmentService
	waitlist *WaitingListService
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	data := newMemoryData()
	data.addTemplate("T-101", "Programming")
	for i, name := range []string{"Ada", "Grace", "Linus", "Barbara"} {
		data.addStudent(fmt.Sprintf("S%d", i+1), name)
	}
	events := &recordingEvents{}
	metrics := NewMetricsService()
	hooks := ChangeHooks{Events: events, Metrics: metrics}
	return &enrollmentFixture{
		data:     data,
		events:   events,
		metrics:  metrics,
		svc:      NewEnrollmentService(data, nil, zap.NewNop(), hooks),
		waitlist: NewWaitingListService(data, nil, zap.NewNop(), hooks),
	}
}

func (f *enrollmentFixture) enroll(t *testing.T, courseID int64, ssn string) {
	t.Helper()
	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: ssn})
	require.NoError(t, err)
}

func (f *enrollmentFixture) roster(t *testing.T, courseID int64) []string {
	t.Helper()
	students, err := f.svc.ListActiveStudents(context.Background(), courseID)
	require.NoError(t, err)
	ssns := make([]string, 0, len(students))
	for _, s := range students {
		ssns = append(ssns, s.SSN)
	}
	return ssns
}

func TestEnrollmentServiceEnrollCreatesActiveEnrollment(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)

	student, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	require.NoError(t, err)
	assert.Equal(t, dto.StudentItem{Name: "Ada", SSN: "S1"}, *student)

	enrollment, ok := f.data.enrollmentFor(courseID, "S1")
	require.True(t, ok)
	assert.True(t, enrollment.IsActive())
	assert.Equal(t, []string{dto.EventEnrollmentCreated}, f.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.enrollments.WithLabelValues("enroll", OutcomeSuccess)))
}

func TestEnrollmentServiceCapacityExceeded(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)
	f.enroll(t, courseID, "S1")

	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Equal(t, []string{"S1"}, f.roster(t, courseID))
	_, exists := f.data.enrollmentFor(courseID, "S2")
	assert.False(t, exists)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.enrollments.WithLabelValues("enroll", OutcomeCapacityExceeded)))
}

func TestEnrollmentServiceZeroCapacityCourse(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 0)

	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
}

func TestEnrollmentServiceReenrollReusesRow(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)
	f.enroll(t, courseID, "S1")
	f.enroll(t, courseID, "S2")
	original, _ := f.data.enrollmentFor(courseID, "S1")

	require.NoError(t, f.svc.Withdraw(context.Background(), courseID, "S1"))
	withdrawn, _ := f.data.enrollmentFor(courseID, "S1")
	assert.Equal(t, models.EnrollmentStatusWithdrawn, withdrawn.Status)
	assert.Equal(t, []string{"S2"}, f.roster(t, courseID))

	f.enroll(t, courseID, "S1")
	again, _ := f.data.enrollmentFor(courseID, "S1")
	assert.Equal(t, original.ID, again.ID)
	assert.True(t, again.IsActive())
	assert.ElementsMatch(t, []string{"S1", "S2"}, f.roster(t, courseID))
	assert.Equal(t, 2, f.data.enrollmentRows(courseID))
	assert.Equal(t, []string{
		dto.EventEnrollmentCreated,
		dto.EventEnrollmentCreated,
		dto.EventEnrollmentWithdrawn,
		dto.EventEnrollmentReactivated,
	}, f.events.types())
}

func TestEnrollmentServiceReactivationRespectsCapacity(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)
	f.enroll(t, courseID, "S1")
	require.NoError(t, f.svc.Withdraw(context.Background(), courseID, "S1"))
	f.enroll(t, courseID, "S2")

	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
	enrollment, _ := f.data.enrollmentFor(courseID, "S1")
	assert.False(t, enrollment.IsActive())
}

func TestEnrollmentServiceEnrollRemovesWaitingListEntry(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)

	_, err := f.waitlist.AddToWaitingList(context.Background(), courseID, dto.AddStudentRequest{SSN: "S3"})
	require.NoError(t, err)

	f.enroll(t, courseID, "S3")

	waiting, err := f.waitlist.ListWaiting(context.Background(), courseID)
	require.NoError(t, err)
	assert.Empty(t, waiting)
	assert.Equal(t, []string{"S3"}, f.roster(t, courseID))
}

func TestEnrollmentServiceFullCourseKeepsWaitingListEntry(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)
	f.enroll(t, courseID, "S1")
	_, err := f.waitlist.AddToWaitingList(context.Background(), courseID, dto.AddStudentRequest{SSN: "S2"})
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S2"})
	require.ErrorIs(t, err, appErrors.ErrCapacityExceeded)

	waiting, err := f.waitlist.ListWaiting(context.Background(), courseID)
	require.NoError(t, err)
	assert.Equal(t, []dto.StudentItem{{Name: "Grace", SSN: "S2"}}, waiting)
}

func TestEnrollmentServiceDuplicateEnrollIsIllegalAdd(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)
	f.enroll(t, courseID, "S1")

	// Full course: the duplicate is still reported as a duplicate.
	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrIllegalAdd)
	assert.Equal(t, 1, f.data.enrollmentRows(courseID))
	assert.Equal(t, []string{dto.EventEnrollmentCreated}, f.events.types())
}

func TestEnrollmentServiceEnrollNotFound(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 5)

	_, err := f.svc.Enroll(context.Background(), courseID+100, dto.AddStudentRequest{SSN: "S1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "missing"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, f.events.types())
}

func TestEnrollmentServiceEnrollValidation(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 5)

	_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEnrollmentServiceEnrollRollsBackOnStoreFailure(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)
	_, err := f.waitlist.AddToWaitingList(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	require.NoError(t, err)

	f.data.failures["enrollments.create"] = errors.New("connection reset")
	_, err = f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	// The waiting list removal made earlier in the transaction is undone.
	waiting, err := f.waitlist.ListWaiting(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, waiting, 1)
}

func TestEnrollmentServiceWithdraw(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)
	f.enroll(t, courseID, "S1")

	require.NoError(t, f.svc.Withdraw(context.Background(), courseID, "S1"))
	assert.Empty(t, f.roster(t, courseID))

	err := f.svc.Withdraw(context.Background(), courseID, "S1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEnrollmentServiceWithdrawNotFound(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)

	cases := map[string]struct {
		courseID int64
		ssn      string
	}{
		"unknown course":  {courseID: courseID + 100, ssn: "S1"},
		"unknown student": {courseID: courseID, ssn: "missing"},
		"never enrolled":  {courseID: courseID, ssn: "S2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := f.svc.Withdraw(context.Background(), tc.courseID, tc.ssn)
			assert.ErrorIs(t, err, appErrors.ErrNotFound)
		})
	}
	assert.Equal(t, 0, f.data.enrollmentRows(courseID))
}

func TestEnrollmentServiceWithdrawLeavesWaitingListAlone(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 1)
	f.enroll(t, courseID, "S1")
	_, err := f.waitlist.AddToWaitingList(context.Background(), courseID, dto.AddStudentRequest{SSN: "S2"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Withdraw(context.Background(), courseID, "S1"))

	waiting, err := f.waitlist.ListWaiting(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, waiting, 1)
	assert.Empty(t, f.roster(t, courseID))
}

func TestEnrollmentServiceGetSingleActiveEnrollment(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 2)
	f.enroll(t, courseID, "S1")

	student, err := f.svc.GetSingleActiveEnrollment(context.Background(), courseID, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", student.Name)

	_, err = f.svc.GetSingleActiveEnrollment(context.Background(), courseID, "S2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.GetSingleActiveEnrollment(context.Background(), courseID, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, f.svc.Withdraw(context.Background(), courseID, "S1"))
	_, err = f.svc.GetSingleActiveEnrollment(context.Background(), courseID, "S1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEnrollmentServiceListActiveStudentsUnknownCourse(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.svc.ListActiveStudents(context.Background(), 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEnrollmentServiceConcurrentEnrollNeverOverfills(t *testing.T) {
	f := newEnrollmentFixture(t)
	courseID := f.data.addCourse("T-101", "20153", 3)
	const contenders = 20
	for i := 0; i < contenders; i++ {
		f.data.addStudent(fmt.Sprintf("C%02d", i), fmt.Sprintf("Contender %02d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: fmt.Sprintf("C%02d", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, appErrors.ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, contenders-3, rejected)
	assert.Len(t, f.roster(t, courseID), 3)
}

func TestEnrollmentServiceConcurrentEnrollAndWaitlistStayExclusive(t *testing.T) {
	f := newEnrollmentFixture(t)
	const courses = 20
	ids := make([]int64, courses)
	for i := range ids {
		ids[i] = f.data.addCourse("T-101", "20153", 5)
	}

	var wg sync.WaitGroup
	for _, courseID := range ids {
		wg.Add(2)
		go func(courseID int64) {
			defer wg.Done()
			_, err := f.svc.Enroll(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
			if err != nil {
				t.Errorf("enroll course %d: %v", courseID, err)
			}
		}(courseID)
		go func(courseID int64) {
			defer wg.Done()
			_, err := f.waitlist.AddToWaitingList(context.Background(), courseID, dto.AddStudentRequest{SSN: "S1"})
			if err != nil && !errors.Is(err, appErrors.ErrIllegalAdd) {
				t.Errorf("waitlist course %d: %v", courseID, err)
			}
		}(courseID)
	}
	wg.Wait()

	for _, courseID := range ids {
		enrollment, ok := f.data.enrollmentFor(courseID, "S1")
		require.True(t, ok, "course %d", courseID)
		assert.True(t, enrollment.IsActive(), "course %d", courseID)
		assert.False(t, f.data.waitingFor(courseID, "S1"), "course %d keeps a waiting entry next to an active enrollment", courseID)
	}
}
