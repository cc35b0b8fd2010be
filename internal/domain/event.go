package domain

import "time"

// EventModule is a de-duplicated module entry on a calendar event.
// Dedup key is (ModuleID, Role), never whole-record equality.
type EventModule struct {
	ModuleID int        `json:"module_id"`
	Name     string     `json:"name"`
	Role     ModuleRole `json:"module_role"`
}

// CalendarEvent is a self-contained, denormalized view of one session,
// ready for display without further store access.
type CalendarEvent struct {
	ID            int           `json:"id"`
	Subject       string        `json:"subject"`
	SessionType   string        `json:"session_type"`
	StartAt       time.Time     `json:"start_at"`
	EndAt         time.Time     `json:"end_at"`
	Description   string        `json:"description"`
	Track         Track         `json:"track"`
	Rooms         []string      `json:"rooms"`
	RoomIDs       []int         `json:"room_ids"`
	Instructors   []string      `json:"instructors"`
	InstructorIDs []int         `json:"instructor_ids"`
	Modules       []EventModule `json:"modules"`

	// Decoration marks non-course entries (holidays, celebrations) that the
	// filter engine must always let through.
	Decoration bool `json:"decoration,omitempty"`
}
