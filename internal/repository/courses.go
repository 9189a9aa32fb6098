package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

// ErrCourseCodeTaken reports a course code uniqueness violation.
var ErrCourseCodeTaken = errors.New("course code already taken")

const courseColumns = `id, code, name, description, credits, max_students, semester, academic_year, active, professor_id, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (model.Course, error) {
	var c model.Course
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Description,
		&c.Credits,
		&c.MaxStudents,
		&c.Semester,
		&c.AcademicYear,
		&c.Active,
		&c.ProfessorID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, mapErr(err)
}

func (s *Store) CreateCourse(ctx context.Context, c model.Course) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.Code, c.Name, c.Description, c.Credits, c.MaxStudents, c.Semester, c.AcademicYear, c.Active, c.ProfessorID, c.CreatedAt, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrCourseCodeTaken
	}
	return err
}

func (s *Store) CourseByID(ctx context.Context, id string) (model.Course, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+courseColumns+`
		FROM courses
		WHERE id = $1
	`, id)
	return scanCourse(row)
}

func (s *Store) CourseByCode(ctx context.Context, code string) (model.Course, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+courseColumns+`
		FROM courses
		WHERE code = $1
	`, code)
	return scanCourse(row)
}

func (s *Store) ListCourses(ctx context.Context, activeOnly bool) ([]model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY code`
	if activeOnly {
		query = `SELECT ` + courseColumns + ` FROM courses WHERE active = true ORDER BY code`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *Store) CoursesByProfessor(ctx context.Context, professorID string) ([]model.Course, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+courseColumns+`
		FROM courses
		WHERE professor_id = $1
		ORDER BY code
	`, professorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *Store) UpdateCourse(ctx context.Context, c model.Course) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE courses
		SET code = $2, name = $3, description = $4, credits = $5, max_students = $6,
		    semester = $7, academic_year = $8, active = $9, professor_id = $10, updated_at = $11
		WHERE id = $1
	`, c.ID, c.Code, c.Name, c.Description, c.Credits, c.MaxStudents, c.Semester, c.AcademicYear, c.Active, c.ProfessorID, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrCourseCodeTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeactivateCourse closes the course to new enrollments without touching
// existing records.
func (s *Store) DeactivateCourse(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE courses
		SET active = false, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
