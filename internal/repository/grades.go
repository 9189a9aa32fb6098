package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

const gradeColumns = `id, enrollment_id, grade_value, graded_at`

func scanGrade(row interface{ Scan(...any) error }) (model.Grade, error) {
	var g model.Grade
	err := row.Scan(&g.ID, &g.EnrollmentID, &g.Value, &g.GradedAt)
	return g, mapErr(err)
}

// SaveGradeCompleting upserts the enrollment's grade and marks the
// enrollment Completed, in one transaction. Re-grading replaces the value
// and timestamp but keeps the grade record's identity.
func (s *Store) SaveGradeCompleting(ctx context.Context, enrollmentID string, value int, at time.Time) (model.Grade, error) {
	var g model.Grade
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO grades (`+gradeColumns+`)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (enrollment_id) DO UPDATE
			SET grade_value = EXCLUDED.grade_value, graded_at = EXCLUDED.graded_at
			RETURNING `+gradeColumns+`
		`, uuid.NewString(), enrollmentID, value, at)
		var err error
		if g, err = scanGrade(row); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE enrollments SET status = $2 WHERE id = $1
		`, enrollmentID, model.EnrollmentCompleted)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return model.Grade{}, err
	}
	return g, nil
}

func (s *Store) GradeByEnrollment(ctx context.Context, enrollmentID string) (model.Grade, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+gradeColumns+`
		FROM grades
		WHERE enrollment_id = $1
	`, enrollmentID)
	return scanGrade(row)
}

func (s *Store) GradesByCourse(ctx context.Context, courseID string) ([]model.Grade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.enrollment_id, g.grade_value, g.graded_at
		FROM grades g
		JOIN enrollments e ON e.id = g.enrollment_id
		WHERE e.course_id = $1
		ORDER BY g.graded_at
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

func (s *Store) GradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.enrollment_id, g.grade_value, g.graded_at
		FROM grades g
		JOIN enrollments e ON e.id = g.enrollment_id
		WHERE e.student_id = $1
		ORDER BY g.graded_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
