package domain

import "time"

// Track identifies the student cohort a session is restricted to.
// TrackAll means the session is visible to every cohort.
type Track string

const (
	TrackApprentice Track = "Apprenti"
	TrackIntegrated Track = "Intégré"
	TrackAll        Track = "Tous"
)

// ModuleRole tags a session↔module link. The same module can be major in
// one session and minor in another, so the tag lives on the link.
type ModuleRole string

const (
	ModuleMajor ModuleRole = "majeur"
	ModuleMinor ModuleRole = "mineur"
)

type Session struct {
	ID          int       `db:"id" json:"id"`
	Subject     string    `db:"subject" json:"subject"`
	SessionType string    `db:"session_type" json:"session_type"`
	StartAt     time.Time `db:"start_at" json:"start_at"`
	EndAt       time.Time `db:"end_at" json:"end_at"`
	Description *string   `db:"description" json:"description"`
	Track       Track     `db:"track" json:"track"`
}

// Reservation binds a session to a physical room.
type Reservation struct {
	SessionID int `db:"session_id" json:"session_id"`
	RoomID    int `db:"room_id" json:"room_id"`
}

// TeachingAssignment binds a session to an instructor.
type TeachingAssignment struct {
	SessionID    int `db:"session_id" json:"session_id"`
	InstructorID int `db:"instructor_id" json:"instructor_id"`
}

// SessionModule links a session to a curriculum module with a major/minor tag.
type SessionModule struct {
	SessionID int        `db:"session_id" json:"session_id"`
	ModuleID  int        `db:"module_id" json:"module_id"`
	Role      ModuleRole `db:"module_role" json:"module_role"`
}
