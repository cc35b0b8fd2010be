package postgres

import (
	"context"
	"errors"

	"github.com/bd31600/planning/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Email lookups backing the role resolver. Storage satisfies
// schedule.Directory: a missing row is (nil, nil), not an error.

func (s *Storage) InstructorByEmail(ctx context.Context, email string) (*domain.Instructor, error) {
	const query = `SELECT id, last_name, first_name, referent, email FROM instructors WHERE email = $1;`

	var inst domain.Instructor
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&inst.ID, &inst.LastName, &inst.FirstName, &inst.Referent, &inst.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &inst, nil
}

func (s *Storage) StudentByEmail(ctx context.Context, email string) (*domain.Student, error) {
	const query = `SELECT id, last_name, first_name, email, track FROM students WHERE email = $1;`

	var student domain.Student
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&student.ID, &student.LastName, &student.FirstName, &student.Email, &student.Track,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &student, nil
}
