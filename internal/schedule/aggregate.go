package schedule

import (
	"context"
	"fmt"
	"sort"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/utils"
)

// Source provides the relations the aggregator joins. The postgres storage
// satisfies it; tests use in-memory fakes.
type Source interface {
	Sessions(ctx context.Context) ([]domain.Session, error)
	SessionModules(ctx context.Context) ([]domain.SessionModule, error)
	Reservations(ctx context.Context) ([]domain.Reservation, error)
	Rooms(ctx context.Context) ([]domain.Room, error)
	Teachings(ctx context.Context) ([]domain.TeachingAssignment, error)
	Instructors(ctx context.Context) ([]domain.Instructor, error)
	InstructorModules(ctx context.Context) ([]domain.InstructorModule, error)
	Modules(ctx context.Context) ([]domain.Module, error)
	StudentByID(ctx context.Context, id int) (*domain.Student, error)
	EnrollmentFor(ctx context.Context, studentID int) (*domain.Enrollment, error)
}

type moduleKey struct {
	id   int
	role domain.ModuleRole
}

// Aggregate joins sessions with their rooms, instructors and module links
// into calendar events, scoped by the actor's role:
//
//   - administrator: every session;
//   - instructor: sessions they teach, or sessions covering a module they own;
//   - student: sessions whose module link matches their enrollment with the
//     same major/minor role, and whose track admits their cohort.
//
// The joins are explicit: each relation is fetched once and joined through
// id-keyed maps, with composite-key sets for de-duplication.
func Aggregate(ctx context.Context, src Source, actor domain.Actor) ([]domain.CalendarEvent, error) {
	switch actor.Role {
	case domain.RoleAdministrator, domain.RoleInstructor, domain.RoleStudent:
	default:
		return nil, fmt.Errorf("%w: no events for unresolved role", utils.ErrAuthorization)
	}

	sessions, err := src.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	links, err := src.SessionModules(ctx)
	if err != nil {
		return nil, err
	}
	reservations, err := src.Reservations(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := src.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	teachings, err := src.Teachings(ctx)
	if err != nil {
		return nil, err
	}
	instructors, err := src.Instructors(ctx)
	if err != nil {
		return nil, err
	}
	modules, err := src.Modules(ctx)
	if err != nil {
		return nil, err
	}

	roomByID := make(map[int]domain.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}
	instructorByID := make(map[int]domain.Instructor, len(instructors))
	for _, i := range instructors {
		instructorByID[i.ID] = i
	}
	moduleByID := make(map[int]domain.Module, len(modules))
	for _, m := range modules {
		moduleByID[m.ID] = m
	}

	linksBySession := make(map[int][]domain.SessionModule)
	for _, l := range links {
		linksBySession[l.SessionID] = append(linksBySession[l.SessionID], l)
	}
	roomIDsBySession := make(map[int][]int)
	for _, r := range reservations {
		roomIDsBySession[r.SessionID] = append(roomIDsBySession[r.SessionID], r.RoomID)
	}
	instructorIDsBySession := make(map[int][]int)
	for _, t := range teachings {
		instructorIDsBySession[t.SessionID] = append(instructorIDsBySession[t.SessionID], t.InstructorID)
	}

	visible, err := visibilityFilter(ctx, src, actor, instructorIDsBySession)
	if err != nil {
		return nil, err
	}

	events := make([]domain.CalendarEvent, 0, len(sessions))
	for _, s := range sessions {
		if !visible(s, linksBySession[s.ID]) {
			continue
		}
		events = append(events, buildEvent(s, linksBySession[s.ID], roomIDsBySession[s.ID],
			instructorIDsBySession[s.ID], roomByID, instructorByID, moduleByID))
	}

	sort.Slice(events, func(a, b int) bool {
		if !events[a].StartAt.Equal(events[b].StartAt) {
			return events[a].StartAt.Before(events[b].StartAt)
		}
		return events[a].ID < events[b].ID
	})
	return events, nil
}

// visibilityFilter returns the role-specific session predicate. Closing over
// the already-built teaching index keeps the scan single-pass.
func visibilityFilter(ctx context.Context, src Source, actor domain.Actor,
	instructorIDsBySession map[int][]int) (func(domain.Session, []domain.SessionModule) bool, error) {

	switch actor.Role {
	case domain.RoleAdministrator:
		return func(domain.Session, []domain.SessionModule) bool { return true }, nil

	case domain.RoleInstructor:
		ownModules, err := src.InstructorModules(ctx)
		if err != nil {
			return nil, err
		}
		owned := make(map[int]bool)
		for _, im := range ownModules {
			if im.InstructorID == actor.ID {
				owned[im.ModuleID] = true
			}
		}
		return func(s domain.Session, links []domain.SessionModule) bool {
			for _, id := range instructorIDsBySession[s.ID] {
				if id == actor.ID {
					return true
				}
			}
			for _, l := range links {
				if owned[l.ModuleID] {
					return true
				}
			}
			return false
		}, nil

	default: // student
		student, err := src.StudentByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if student == nil {
			return nil, fmt.Errorf("%w: student %d is not registered", utils.ErrAuthorization, actor.ID)
		}
		enrollment, err := src.EnrollmentFor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		track := student.Track
		return func(s domain.Session, links []domain.SessionModule) bool {
			if s.Track != domain.TrackAll && s.Track != track {
				return false
			}
			if enrollment == nil {
				return false
			}
			for _, l := range links {
				if l.Role == domain.ModuleMajor && l.ModuleID == enrollment.MajorModuleID {
					return true
				}
				if l.Role == domain.ModuleMinor && l.ModuleID == enrollment.MinorModuleID {
					return true
				}
			}
			return false
		}, nil
	}
}

func buildEvent(s domain.Session, links []domain.SessionModule, roomIDs, instructorIDs []int,
	roomByID map[int]domain.Room, instructorByID map[int]domain.Instructor,
	moduleByID map[int]domain.Module) domain.CalendarEvent {

	ev := domain.CalendarEvent{
		ID:            s.ID,
		Subject:       s.Subject,
		SessionType:   s.SessionType,
		StartAt:       s.StartAt,
		EndAt:         s.EndAt,
		Track:         s.Track,
		Rooms:         []string{},
		RoomIDs:       []int{},
		Instructors:   []string{},
		InstructorIDs: []int{},
		Modules:       []domain.EventModule{},
	}
	if s.Description != nil {
		ev.Description = *s.Description
	}

	seenRooms := make(map[int]bool)
	for _, id := range roomIDs {
		if seenRooms[id] {
			continue
		}
		seenRooms[id] = true
		ev.RoomIDs = append(ev.RoomIDs, id)
	}
	sort.Ints(ev.RoomIDs)
	for _, id := range ev.RoomIDs {
		if room, ok := roomByID[id]; ok {
			ev.Rooms = append(ev.Rooms, room.Label())
		}
	}

	seenInstructors := make(map[int]bool)
	for _, id := range instructorIDs {
		if seenInstructors[id] {
			continue
		}
		seenInstructors[id] = true
		ev.InstructorIDs = append(ev.InstructorIDs, id)
	}
	sort.Ints(ev.InstructorIDs)
	for _, id := range ev.InstructorIDs {
		if inst, ok := instructorByID[id]; ok {
			ev.Instructors = append(ev.Instructors, inst.FullName())
		}
	}

	// The join can legitimately repeat (module, role) pairs; the composite
	// key is what decides duplication, not the whole record.
	seenModules := make(map[moduleKey]bool)
	for _, l := range links {
		key := moduleKey{l.ModuleID, l.Role}
		if seenModules[key] {
			continue
		}
		seenModules[key] = true
		ev.Modules = append(ev.Modules, domain.EventModule{
			ModuleID: l.ModuleID,
			Name:     moduleByID[l.ModuleID].Name,
			Role:     l.Role,
		})
	}
	sort.Slice(ev.Modules, func(a, b int) bool {
		if ev.Modules[a].ModuleID != ev.Modules[b].ModuleID {
			return ev.Modules[a].ModuleID < ev.Modules[b].ModuleID
		}
		return ev.Modules[a].Role < ev.Modules[b].Role
	})
	return ev
}
