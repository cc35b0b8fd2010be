package postgres

import (
	"context"
	"errors"

	"github.com/bd31600/planning/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Readers backing the event aggregator. Storage satisfies schedule.Source.

func (s *Storage) Sessions(ctx context.Context) ([]domain.Session, error) {
	const query = `
		SELECT id, subject, session_type, start_at, end_at, description, track
		FROM sessions
		ORDER BY start_at, id;
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		err := rows.Scan(
			&sess.ID,
			&sess.Subject,
			&sess.SessionType,
			&sess.StartAt,
			&sess.EndAt,
			&sess.Description,
			&sess.Track,
		)
		if err != nil {
			return nil, err
		}

		sessions = append(sessions, sess)
	}

	return sessions, nil
}

func (s *Storage) SessionModules(ctx context.Context) ([]domain.SessionModule, error) {
	const query = `SELECT session_id, module_id, module_role FROM session_modules;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var links []domain.SessionModule
	for rows.Next() {
		var l domain.SessionModule
		if err := rows.Scan(&l.SessionID, &l.ModuleID, &l.Role); err != nil {
			return nil, err
		}
		links = append(links, l)
	}

	return links, nil
}

func (s *Storage) Reservations(ctx context.Context) ([]domain.Reservation, error) {
	const query = `SELECT session_id, room_id FROM reservations;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var reservations []domain.Reservation
	for rows.Next() {
		var r domain.Reservation
		if err := rows.Scan(&r.SessionID, &r.RoomID); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}

	return reservations, nil
}

func (s *Storage) Rooms(ctx context.Context) ([]domain.Room, error) {
	const query = `SELECT id, building, room_number, capacity FROM rooms ORDER BY building, room_number;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var rooms []domain.Room
	for rows.Next() {
		var r domain.Room
		if err := rows.Scan(&r.ID, &r.Building, &r.RoomNumber, &r.Capacity); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, nil
}

func (s *Storage) Teachings(ctx context.Context) ([]domain.TeachingAssignment, error) {
	const query = `SELECT session_id, instructor_id FROM teachings;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var teachings []domain.TeachingAssignment
	for rows.Next() {
		var t domain.TeachingAssignment
		if err := rows.Scan(&t.SessionID, &t.InstructorID); err != nil {
			return nil, err
		}
		teachings = append(teachings, t)
	}

	return teachings, nil
}

func (s *Storage) Instructors(ctx context.Context) ([]domain.Instructor, error) {
	const query = `SELECT id, last_name, first_name, referent, email FROM instructors ORDER BY last_name, first_name;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var instructors []domain.Instructor
	for rows.Next() {
		var i domain.Instructor
		if err := rows.Scan(&i.ID, &i.LastName, &i.FirstName, &i.Referent, &i.Email); err != nil {
			return nil, err
		}
		instructors = append(instructors, i)
	}

	return instructors, nil
}

func (s *Storage) InstructorModules(ctx context.Context) ([]domain.InstructorModule, error) {
	const query = `SELECT instructor_id, module_id FROM instructor_modules;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var links []domain.InstructorModule
	for rows.Next() {
		var l domain.InstructorModule
		if err := rows.Scan(&l.InstructorID, &l.ModuleID); err != nil {
			return nil, err
		}
		links = append(links, l)
	}

	return links, nil
}

func (s *Storage) Modules(ctx context.Context) ([]domain.Module, error) {
	const query = `SELECT id, name FROM modules ORDER BY name;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var modules []domain.Module
	for rows.Next() {
		var m domain.Module
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	return modules, nil
}

func (s *Storage) StudentByID(ctx context.Context, id int) (*domain.Student, error) {
	const query = `SELECT id, last_name, first_name, email, track FROM students WHERE id = $1;`

	var student domain.Student
	err := s.pool.QueryRow(ctx, query, id).Scan(
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

func (s *Storage) EnrollmentFor(ctx context.Context, studentID int) (*domain.Enrollment, error) {
	const query = `SELECT student_id, major_module_id, minor_module_id FROM enrollments WHERE student_id = $1;`

	var e domain.Enrollment
	err := s.pool.QueryRow(ctx, query, studentID).Scan(&e.StudentID, &e.MajorModuleID, &e.MinorModuleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &e, nil
}
