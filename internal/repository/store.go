package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store groups the course registry repositories over one connection or transaction.
type Store struct {
	db *sqlx.DB

	Templates   *CourseTemplateRepository
	Courses     *CourseRepository
	Students    *StudentRepository
	Enrollments *EnrollmentRepository
	WaitingList *WaitingListRepository
}

// NewStore constructs a Store backed by the connection pool.
func NewStore(db *sqlx.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(q DBTX) *Store {
	return &Store{
		Templates:   NewCourseTemplateRepository(q),
		Courses:     NewCourseRepository(q),
		Students:    NewStudentRepository(q),
		Enrollments: NewEnrollmentRepository(q),
		WaitingList: NewWaitingListRepository(q),
	}
}

// WithinTx runs fn against repositories bound to a single transaction,
// committing when fn returns nil and rolling back otherwise. Calling it on a
// transaction-bound Store joins the running transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newStore(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// insertedRow receives the generated columns of an INSERT ... RETURNING.
type insertedRow struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
