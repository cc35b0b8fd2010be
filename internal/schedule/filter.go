package schedule

import "github.com/bd31600/planning/internal/domain"

// ModuleFilter selects events linked to one module under one role tag.
type ModuleFilter struct {
	ModuleID int               `json:"module_id"`
	Role     domain.ModuleRole `json:"module_role"`
}

// FilterOptions narrows an already-aggregated event list. Zero-valued
// predicates are inactive.
type FilterOptions struct {
	Modules      []ModuleFilter
	Tracks       []domain.Track
	MineOnly     bool
	InstructorID int
}

// Filter applies the display-side predicates to events. It never touches the
// store: the input is the denormalized read model. Decoration events
// (holidays, celebrations) always pass.
func Filter(events []domain.CalendarEvent, opts FilterOptions) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.Decoration || passes(ev, opts) {
			out = append(out, ev)
		}
	}
	return out
}

func passes(ev domain.CalendarEvent, opts FilterOptions) bool {
	if len(opts.Modules) > 0 && !matchesModule(ev, opts.Modules) {
		return false
	}
	if len(opts.Tracks) > 0 && !matchesTrack(ev, opts.Tracks) {
		return false
	}
	if opts.MineOnly && !taughtBy(ev, opts.InstructorID) {
		return false
	}
	return true
}

func matchesModule(ev domain.CalendarEvent, filters []ModuleFilter) bool {
	for _, m := range ev.Modules {
		for _, f := range filters {
			if m.ModuleID == f.ModuleID && m.Role == f.Role {
				return true
			}
		}
	}
	return false
}

// Sessions open to every cohort pass any track filter.
func matchesTrack(ev domain.CalendarEvent, tracks []domain.Track) bool {
	if ev.Track == domain.TrackAll {
		return true
	}
	for _, t := range tracks {
		if ev.Track == t {
			return true
		}
	}
	return false
}

func taughtBy(ev domain.CalendarEvent, instructorID int) bool {
	for _, id := range ev.InstructorIDs {
		if id == instructorID {
			return true
		}
	}
	return false
}
