package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/repository"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// memoryData is an in-memory DataStore. Transactions run concurrently, like
// READ COMMITTED in Postgres: FindByIDForUpdate takes a per-course lock held
// until WithinTx returns, and a failed transaction replays its undo log.
// Check-then-act reads pause briefly so unlocked races surface in tests.
type memoryData struct {
	mu sync.Mutex

	nextID      int64
	templates   map[string]models.CourseTemplate
	courses     map[int64]models.Course
	students    map[string]models.Student
	enrollments map[int64]models.Enrollment
	waiting     map[int64]models.WaitingListEntry
	courseLocks map[int64]*sync.Mutex

	// failures injects an error for the named operation.
	failures map[string]error
	commits  int
	pause    time.Duration
}

// memoryTx tracks the row locks and undo steps of one transaction.
type memoryTx struct {
	locks map[int64]*sync.Mutex
	undo  []func()
}

func newMemoryData() *memoryData {
	return &memoryData{
		templates:   map[string]models.CourseTemplate{},
		courses:     map[int64]models.Course{},
		students:    map[string]models.Student{},
		enrollments: map[int64]models.Enrollment{},
		waiting:     map[int64]models.WaitingListEntry{},
		courseLocks: map[int64]*sync.Mutex{},
		failures:    map[string]error{},
		pause:       time.Millisecond,
	}
}

func (d *memoryData) Stores() Stores {
	return d.storesFor(nil)
}

func (d *memoryData) storesFor(tx *memoryTx) Stores {
	return Stores{
		Templates:   memoryTemplates{d, tx},
		Courses:     memoryCourses{d, tx},
		Students:    memoryStudents{d, tx},
		Enrollments: memoryEnrollments{d, tx},
		WaitingList: memoryWaitingList{d, tx},
	}
}

func (d *memoryData) WithinTx(ctx context.Context, fn func(Stores) error) error {
	tx := &memoryTx{locks: map[int64]*sync.Mutex{}}
	defer func() {
		for _, lock := range tx.locks {
			lock.Unlock()
		}
	}()

	if err := fn(d.storesFor(tx)); err != nil {
		d.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		d.mu.Unlock()
		return err
	}
	d.mu.Lock()
	d.commits++
	d.mu.Unlock()
	return nil
}

// lockCourse blocks until tx holds the row lock of the course.
func (d *memoryData) lockCourse(tx *memoryTx, id int64) {
	if tx == nil {
		return
	}
	if _, held := tx.locks[id]; held {
		return
	}
	d.mu.Lock()
	lock, ok := d.courseLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		d.courseLocks[id] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	tx.locks[id] = lock
}

// record registers an undo step; callers hold d.mu.
func (tx *memoryTx) record(step func()) {
	if tx != nil {
		tx.undo = append(tx.undo, step)
	}
}

func (d *memoryData) yield() {
	if d.pause > 0 {
		time.Sleep(d.pause)
	}
}

func (d *memoryData) fail(op string) error {
	return d.failures[op]
}

func (d *memoryData) id() int64 {
	d.nextID++
	return d.nextID
}

// seed helpers, used outside transactions.

func (d *memoryData) addTemplate(templateID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.templates[templateID] = models.CourseTemplate{ID: d.id(), TemplateID: templateID, Name: name}
}

func (d *memoryData) addCourse(templateID, semester string, maxStudents int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.id()
	d.courses[id] = models.Course{
		ID:          id,
		TemplateID:  templateID,
		Semester:    semester,
		StartDate:   time.Date(2015, 8, 20, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2015, 12, 15, 0, 0, 0, 0, time.UTC),
		MaxStudents: maxStudents,
	}
	return id
}

func (d *memoryData) addStudent(ssn, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[ssn] = models.Student{ID: d.id(), SSN: ssn, Name: name}
}

func (d *memoryData) enrollmentFor(courseID int64, ssn string) (models.Enrollment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	student, ok := d.students[ssn]
	if !ok {
		return models.Enrollment{}, false
	}
	for _, e := range d.enrollments {
		if e.CourseID == courseID && e.StudentID == student.ID {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

func (d *memoryData) waitingFor(courseID int64, ssn string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	student, ok := d.students[ssn]
	if !ok {
		return false
	}
	for _, w := range d.waiting {
		if w.CourseID == courseID && w.StudentID == student.ID {
			return true
		}
	}
	return false
}

func (d *memoryData) enrollmentRows(courseID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.enrollments {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

func (d *memoryData) studentName(id int64) (dto.StudentItem, bool) {
	for _, s := range d.students {
		if s.ID == id {
			return dto.StudentItem{Name: s.Name, SSN: s.SSN}, true
		}
	}
	return dto.StudentItem{}, false
}

type memoryTemplates struct {
	d  *memoryData
	tx *memoryTx
}

func (m memoryTemplates) FindByTemplateID(ctx context.Context, templateID string) (*models.CourseTemplate, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	tmpl, ok := m.d.templates[templateID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tmpl, nil
}

func (m memoryTemplates) List(ctx context.Context) ([]models.CourseTemplate, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if err := m.d.fail("templates.list"); err != nil {
		return nil, err
	}
	out := make([]models.CourseTemplate, 0, len(m.d.templates))
	for _, tmpl := range m.d.templates {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out, nil
}

func (m memoryTemplates) Create(ctx context.Context, tmpl *models.CourseTemplate) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if _, ok := m.d.templates[tmpl.TemplateID]; ok {
		return repository.ErrDuplicate
	}
	tmpl.ID = m.d.id()
	m.d.templates[tmpl.TemplateID] = *tmpl
	key := tmpl.TemplateID
	m.tx.record(func() { delete(m.d.templates, key) })
	return nil
}

type memoryCourses struct {
	d  *memoryData
	tx *memoryTx
}

func (m memoryCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	course, ok := m.d.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m memoryCourses) FindByIDForUpdate(ctx context.Context, id int64) (*models.Course, error) {
	m.d.lockCourse(m.tx, id)
	return m.FindByID(ctx, id)
}

func (m memoryCourses) ListBySemester(ctx context.Context, semester string) ([]models.CourseListing, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if err := m.d.fail("courses.list"); err != nil {
		return nil, err
	}
	out := []models.CourseListing{}
	for _, course := range m.d.courses {
		if course.Semester != semester {
			continue
		}
		tmpl, ok := m.d.templates[course.TemplateID]
		if !ok {
			continue
		}
		count := 0
		for _, e := range m.d.enrollments {
			if e.CourseID == course.ID && e.IsActive() {
				count++
			}
		}
		out = append(out, models.CourseListing{Course: course, Name: tmpl.Name, StudentCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memoryCourses) Create(ctx context.Context, course *models.Course) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if err := m.d.fail("courses.create"); err != nil {
		return err
	}
	course.ID = m.d.id()
	m.d.courses[course.ID] = *course
	id := course.ID
	m.tx.record(func() { delete(m.d.courses, id) })
	return nil
}

func (m memoryCourses) Update(ctx context.Context, course *models.Course) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	prev, ok := m.d.courses[course.ID]
	if !ok {
		return sql.ErrNoRows
	}
	m.d.courses[course.ID] = *course
	m.tx.record(func() { m.d.courses[prev.ID] = prev })
	return nil
}

func (m memoryCourses) Delete(ctx context.Context, id int64) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	prev, ok := m.d.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(m.d.courses, id)
	m.tx.record(func() { m.d.courses[id] = prev })
	return nil
}

type memoryStudents struct {
	d  *memoryData
	tx *memoryTx
}

func (m memoryStudents) FindBySSN(ctx context.Context, ssn string) (*models.Student, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	student, ok := m.d.students[ssn]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (m memoryStudents) Create(ctx context.Context, student *models.Student) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if _, ok := m.d.students[student.SSN]; ok {
		return repository.ErrDuplicate
	}
	student.ID = m.d.id()
	m.d.students[student.SSN] = *student
	ssn := student.SSN
	m.tx.record(func() { delete(m.d.students, ssn) })
	return nil
}

type memoryEnrollments struct {
	d  *memoryData
	tx *memoryTx
}

func (m memoryEnrollments) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	defer m.d.yield()
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, e := range m.d.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memoryEnrollments) CountActive(ctx context.Context, courseID int64) (int, error) {
	defer m.d.yield()
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	count := 0
	for _, e := range m.d.enrollments {
		if e.CourseID == courseID && e.IsActive() {
			count++
		}
	}
	return count, nil
}

func (m memoryEnrollments) ListActiveStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	out := []dto.StudentItem{}
	for _, e := range m.d.enrollments {
		if e.CourseID != courseID || !e.IsActive() {
			continue
		}
		if item, ok := m.d.studentName(e.StudentID); ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].SSN < out[j].SSN
	})
	return out, nil
}

func (m memoryEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if err := m.d.fail("enrollments.create"); err != nil {
		return err
	}
	for _, e := range m.d.enrollments {
		if e.CourseID == enrollment.CourseID && e.StudentID == enrollment.StudentID {
			return repository.ErrDuplicate
		}
	}
	enrollment.ID = m.d.id()
	m.d.enrollments[enrollment.ID] = *enrollment
	id := enrollment.ID
	m.tx.record(func() { delete(m.d.enrollments, id) })
	return nil
}

func (m memoryEnrollments) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	prev, ok := m.d.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	updated := prev
	updated.Status = status
	m.d.enrollments[id] = updated
	m.tx.record(func() { m.d.enrollments[id] = prev })
	return nil
}

type memoryWaitingList struct {
	d  *memoryData
	tx *memoryTx
}

func (m memoryWaitingList) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.WaitingListEntry, error) {
	defer m.d.yield()
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, w := range m.d.waiting {
		if w.CourseID == courseID && w.StudentID == studentID {
			found := w
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memoryWaitingList) ListStudents(ctx context.Context, courseID int64) ([]dto.StudentItem, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	ids := []int64{}
	for id, w := range m.d.waiting {
		if w.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []dto.StudentItem{}
	for _, id := range ids {
		if item, ok := m.d.studentName(m.d.waiting[id].StudentID); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m memoryWaitingList) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	for _, w := range m.d.waiting {
		if w.CourseID == entry.CourseID && w.StudentID == entry.StudentID {
			return repository.ErrDuplicate
		}
	}
	entry.ID = m.d.id()
	m.d.waiting[entry.ID] = *entry
	id := entry.ID
	m.tx.record(func() { delete(m.d.waiting, id) })
	return nil
}

func (m memoryWaitingList) Delete(ctx context.Context, id int64) error {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	prev, ok := m.d.waiting[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(m.d.waiting, id)
	m.tx.record(func() { m.d.waiting[id] = prev })
	return nil
}

// recordingEvents captures published events.
type recordingEvents struct {
	mu     sync.Mutex
	events []dto.CourseEvent
}

func (r *recordingEvents) Publish(ctx context.Context, event dto.CourseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// memoryCache is a CacheRepository backed by a map.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
