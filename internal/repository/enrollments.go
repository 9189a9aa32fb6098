package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/MatejStrlek/uni-course-management/internal/enrollment"
	"github.com/MatejStrlek/uni-course-management/internal/model"
)

const enrollmentColumns = `id, student_id, course_id, enrolled_at, status`

func scanEnrollment(row interface{ Scan(...any) error }) (model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt, &e.Status)
	return e, mapErr(err)
}

// pairTx gives the enrollment ledger a transactional view of one
// (student, course) pair.
type pairTx struct {
	tx      pgx.Tx
	current model.Enrollment
	exists  bool
}

func (p *pairTx) Current() (model.Enrollment, bool) {
	return p.current, p.exists
}

func (p *pairTx) Insert(ctx context.Context, e model.Enrollment) (bool, error) {
	tag, err := p.tx.Exec(ctx, `
		INSERT INTO enrollments (`+enrollmentColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id) DO NOTHING
	`, e.ID, e.StudentID, e.CourseID, e.EnrolledAt, e.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *pairTx) SetStatus(ctx context.Context, id string, status model.EnrollmentStatus) error {
	tag, err := p.tx.Exec(ctx, `UPDATE enrollments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// InPairTx runs fn inside a transaction that holds a row lock on the pair's
// enrollment record when one exists. Concurrent transactions on the same
// pair serialize on the lock; when no record exists yet, the unique index on
// (student_id, course_id) arbitrates racing inserts.
func (s *Store) InPairTx(ctx context.Context, studentID, courseID string, fn func(enrollment.PairTx) error) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+enrollmentColumns+`
			FROM enrollments
			WHERE student_id = $1 AND course_id = $2
			FOR UPDATE
		`, studentID, courseID)
		p := &pairTx{tx: tx}
		current, err := scanEnrollment(row)
		switch {
		case err == nil:
			p.current = current
			p.exists = true
		case errors.Is(err, model.ErrNotFound):
		default:
			return err
		}
		return fn(p)
	})
}

func (s *Store) EnrollmentByID(ctx context.Context, id string) (model.Enrollment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE id = $1
	`, id)
	return scanEnrollment(row)
}

func (s *Store) EnrollmentsByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE student_id = $1
		ORDER BY enrolled_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (s *Store) EnrollmentsByCourse(ctx context.Context, courseID string, status model.EnrollmentStatus) ([]model.Enrollment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE course_id = $1 AND status = $2
		ORDER BY enrolled_at
	`, courseID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
