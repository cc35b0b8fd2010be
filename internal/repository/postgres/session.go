package postgres

import (
	"context"
	"errors"

	"github.com/bd31600/planning/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Session row and link-set mutations composed by the booking flows. Each is
// a single statement; cross-step consistency is the caller's concern.

func (s *Storage) InsertSession(ctx context.Context, sess domain.Session) (int, error) {
	const query = `
		INSERT INTO sessions (subject, session_type, start_at, end_at, description, track)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	var id int
	err := s.pool.QueryRow(ctx, query,
		sess.Subject, sess.SessionType, sess.StartAt, sess.EndAt, sess.Description, sess.Track,
	).Scan(&id)

	return id, err
}

func (s *Storage) UpdateSession(ctx context.Context, sess domain.Session) error {
	const query = `
		UPDATE sessions
		SET subject = $2, session_type = $3, start_at = $4, end_at = $5, description = $6, track = $7
		WHERE id = $1;
	`

	_, err := s.pool.Exec(ctx, query,
		sess.ID, sess.Subject, sess.SessionType, sess.StartAt, sess.EndAt, sess.Description, sess.Track,
	)
	return err
}

func (s *Storage) DeleteSession(ctx context.Context, id int) error {
	const query = `DELETE FROM sessions WHERE id = $1;`
	_, err := s.pool.Exec(ctx, query, id)
	return err
}

func (s *Storage) SessionByID(ctx context.Context, id int) (*domain.Session, error) {
	const query = `SELECT id, subject, session_type, start_at, end_at, description, track FROM sessions WHERE id = $1;`

	var sess domain.Session
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.Subject, &sess.SessionType, &sess.StartAt, &sess.EndAt, &sess.Description, &sess.Track,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sess, nil
}

func (s *Storage) InsertTeaching(ctx context.Context, t domain.TeachingAssignment) error {
	const query = `INSERT INTO teachings (session_id, instructor_id) VALUES ($1, $2);`
	_, err := s.pool.Exec(ctx, query, t.SessionID, t.InstructorID)
	return err
}

func (s *Storage) DeleteTeachings(ctx context.Context, sessionID int) error {
	const query = `DELETE FROM teachings WHERE session_id = $1;`
	_, err := s.pool.Exec(ctx, query, sessionID)
	return err
}

func (s *Storage) TeachingsFor(ctx context.Context, sessionID int) ([]domain.TeachingAssignment, error) {
	const query = `SELECT session_id, instructor_id FROM teachings WHERE session_id = $1;`

	rows, err := s.pool.Query(ctx, query, sessionID)
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

func (s *Storage) InsertSessionModule(ctx context.Context, l domain.SessionModule) error {
	const query = `INSERT INTO session_modules (session_id, module_id, module_role) VALUES ($1, $2, $3);`
	_, err := s.pool.Exec(ctx, query, l.SessionID, l.ModuleID, l.Role)
	return err
}

func (s *Storage) DeleteSessionModules(ctx context.Context, sessionID int) error {
	const query = `DELETE FROM session_modules WHERE session_id = $1;`
	_, err := s.pool.Exec(ctx, query, sessionID)
	return err
}

func (s *Storage) SessionModulesFor(ctx context.Context, sessionID int) ([]domain.SessionModule, error) {
	const query = `SELECT session_id, module_id, module_role FROM session_modules WHERE session_id = $1;`

	rows, err := s.pool.Query(ctx, query, sessionID)
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

func (s *Storage) InsertReservation(ctx context.Context, r domain.Reservation) error {
	const query = `INSERT INTO reservations (session_id, room_id) VALUES ($1, $2);`
	_, err := s.pool.Exec(ctx, query, r.SessionID, r.RoomID)
	return err
}

func (s *Storage) DeleteReservation(ctx context.Context, sessionID, roomID int) error {
	const query = `DELETE FROM reservations WHERE session_id = $1 AND room_id = $2;`
	_, err := s.pool.Exec(ctx, query, sessionID, roomID)
	return err
}

func (s *Storage) DeleteReservations(ctx context.Context, sessionID int) error {
	const query = `DELETE FROM reservations WHERE session_id = $1;`
	_, err := s.pool.Exec(ctx, query, sessionID)
	return err
}

func (s *Storage) ReservationsFor(ctx context.Context, sessionID int) ([]domain.Reservation, error) {
	const query = `SELECT session_id, room_id FROM reservations WHERE session_id = $1;`

	rows, err := s.pool.Query(ctx, query, sessionID)
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
