package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bd31600/planning/internal/schedule"
	"github.com/bd31600/planning/internal/utils"
	"github.com/jackc/pgx/v5"
)

// ReserveRoom books a room for a session's [start,end) range. The room's
// bookings are loaded and the insert runs in one transaction holding a row
// lock on the room, so two concurrent attempts on the same room serialize
// instead of both passing the check. The overlap decision itself is
// schedule.FirstConflict, the same scan the in-memory callers use; the
// session under edit is excluded.
func (s *Storage) ReserveRoom(ctx context.Context, sessionID, roomID int, start, end time.Time) error {
	const lockQuery = `SELECT building || room_number FROM rooms WHERE id = $1 FOR UPDATE;`

	const bookingsQuery = `
		SELECT sess.id, r.room_id, sess.start_at, sess.end_at
		FROM reservations r
		JOIN sessions sess ON sess.id = r.session_id
		WHERE r.room_id = $1;
	`

	const insertQuery = `INSERT INTO reservations (session_id, room_id) VALUES ($1, $2);`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var roomLabel string
	err = tx.QueryRow(ctx, lockQuery, roomID).Scan(&roomLabel)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: room %d", utils.ErrNotFound, roomID)
	}
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx, bookingsQuery, roomID)
	if err != nil {
		return err
	}
	var bookings []schedule.RoomBooking
	for rows.Next() {
		var b schedule.RoomBooking
		if err := rows.Scan(&b.SessionID, &b.RoomID, &b.StartAt, &b.EndAt); err != nil {
			rows.Close()
			return err
		}
		bookings = append(bookings, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if conflicting, found := schedule.FirstConflict(bookings, roomID, sessionID, start, end); found {
		return fmt.Errorf("%w (session %d)", utils.ConflictError(roomLabel), conflicting)
	}

	if _, err := tx.Exec(ctx, insertQuery, sessionID, roomID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
