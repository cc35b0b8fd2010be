package schedule

import "time"

// RoomBooking is one reservation joined with its session's time range,
// the unit the conflict checker scans.
type RoomBooking struct {
	SessionID int
	RoomID    int
	StartAt   time.Time
	EndAt     time.Time
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. A session ending exactly when another begins is not a conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !(!e1.After(s2) || !s1.Before(e2))
}

// FirstConflict scans the bookings of one room for an overlap with the
// candidate [start,end) range, skipping the session being placed. It is an
// existence check: callers need yes/no plus one conflicting session id for
// messaging, not the full set.
func FirstConflict(bookings []RoomBooking, roomID, excludeSessionID int, start, end time.Time) (int, bool) {
	for _, b := range bookings {
		if b.RoomID != roomID || b.SessionID == excludeSessionID {
			continue
		}
		if Overlaps(start, end, b.StartAt, b.EndAt) {
			return b.SessionID, true
		}
	}
	return 0, false
}
