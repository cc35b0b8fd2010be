package schedule

import (
	"reflect"
	"testing"

	"github.com/bd31600/planning/internal/domain"
)

func filterFixture() []domain.CalendarEvent {
	return []domain.CalendarEvent{
		{ID: 1, Subject: "Algorithmique", Track: domain.TrackAll,
			InstructorIDs: []int{2},
			Modules:       []domain.EventModule{{ModuleID: 1, Name: "Algorithmique", Role: domain.ModuleMajor}}},
		{ID: 2, Subject: "Bases", Track: domain.TrackApprentice,
			InstructorIDs: []int{3},
			Modules:       []domain.EventModule{{ModuleID: 1, Name: "Algorithmique", Role: domain.ModuleMinor}}},
		{ID: 3, Subject: "Réseaux", Track: domain.TrackIntegrated,
			InstructorIDs: []int{2},
			Modules:       []domain.EventModule{{ModuleID: 2, Name: "Réseaux", Role: domain.ModuleMajor}}},
		{ID: 4, Subject: "Vacances", Decoration: true, Track: domain.TrackIntegrated},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
		want []int
	}{
		{
			name: "no predicates pass everything",
			opts: FilterOptions{},
			want: []int{1, 2, 3, 4},
		},
		{
			name: "module filter matches id and role together",
			opts: FilterOptions{Modules: []ModuleFilter{{ModuleID: 1, Role: domain.ModuleMajor}}},
			want: []int{1, 4},
		},
		{
			name: "several module filters widen the selection",
			opts: FilterOptions{Modules: []ModuleFilter{
				{ModuleID: 1, Role: domain.ModuleMajor},
				{ModuleID: 2, Role: domain.ModuleMajor},
			}},
			want: []int{1, 3, 4},
		},
		{
			name: "track filter keeps matching cohort and open sessions",
			opts: FilterOptions{Tracks: []domain.Track{domain.TrackApprentice}},
			want: []int{1, 2, 4},
		},
		{
			name: "mine only keeps the instructor's sessions",
			opts: FilterOptions{MineOnly: true, InstructorID: 2},
			want: []int{1, 3, 4},
		},
		{
			name: "predicates combine conjunctively",
			opts: FilterOptions{
				Modules:      []ModuleFilter{{ModuleID: 1, Role: domain.ModuleMajor}, {ModuleID: 2, Role: domain.ModuleMajor}},
				MineOnly:     true,
				InstructorID: 3,
			},
			want: []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eventIDs(Filter(filterFixture(), tt.opts))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterDecorationAlwaysPasses(t *testing.T) {
	// Event 4 carries a track that matches no filter, yet it survives every
	// combination because decoration entries frame the calendar.
	got := Filter(filterFixture(), FilterOptions{
		Modules: []ModuleFilter{{ModuleID: 99, Role: domain.ModuleMajor}},
		Tracks:  []domain.Track{domain.TrackApprentice},
	})
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("got %v, want only the decoration event", eventIDs(got))
	}
}
