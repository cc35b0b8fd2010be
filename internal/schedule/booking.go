package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/utils"
)

// Store is the mutation surface the booking flows compose. Every method is a
// single statement on the storage side; atomicity across steps comes from the
// saga's compensations, not from a wrapping transaction.
type Store interface {
	InsertSession(ctx context.Context, s domain.Session) (int, error)
	UpdateSession(ctx context.Context, s domain.Session) error
	DeleteSession(ctx context.Context, id int) error
	SessionByID(ctx context.Context, id int) (*domain.Session, error)

	InsertTeaching(ctx context.Context, t domain.TeachingAssignment) error
	DeleteTeachings(ctx context.Context, sessionID int) error
	TeachingsFor(ctx context.Context, sessionID int) ([]domain.TeachingAssignment, error)

	InsertSessionModule(ctx context.Context, l domain.SessionModule) error
	DeleteSessionModules(ctx context.Context, sessionID int) error
	SessionModulesFor(ctx context.Context, sessionID int) ([]domain.SessionModule, error)

	// ReserveRoom must refuse overlapping bookings: on conflict it returns an
	// error satisfying errors.Is(err, utils.ErrConflict) that names the room.
	ReserveRoom(ctx context.Context, sessionID, roomID int, start, end time.Time) error
	// InsertReservation bypasses the conflict check. Compensation only: it
	// restores reservations that were valid before a failed update.
	InsertReservation(ctx context.Context, r domain.Reservation) error
	DeleteReservation(ctx context.Context, sessionID, roomID int) error
	DeleteReservations(ctx context.Context, sessionID int) error
	ReservationsFor(ctx context.Context, sessionID int) ([]domain.Reservation, error)
}

// ModuleLink is one module attachment in a session input.
type ModuleLink struct {
	ModuleID int               `json:"module_id"`
	Role     domain.ModuleRole `json:"module_role"`
}

// SessionInput carries a session together with the link sets created or
// replaced alongside it.
type SessionInput struct {
	Session       domain.Session
	InstructorIDs []int
	Modules       []ModuleLink
	RoomIDs       []int
}

// Booker orchestrates session mutations: the session row, its teaching and
// module links, and conflict-checked room reservations, with compensating
// deletes when a later room fails its check.
type Booker struct {
	Store Store
	Log   *slog.Logger
}

// Create inserts a session with its links. Each room is reserved in its own
// step so that a conflict on room k rolls back rooms 1..k-1, the links and
// the session row, in reverse order.
func (b *Booker) Create(ctx context.Context, in SessionInput) (int, error) {
	var sessionID int

	saga := NewSaga(b.Log)
	saga.Add(Step{
		Name: "create session",
		Run: func(ctx context.Context) error {
			id, err := b.Store.InsertSession(ctx, in.Session)
			if err != nil {
				return err
			}
			sessionID = id
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return b.Store.DeleteSession(ctx, sessionID)
		},
	})
	saga.Add(Step{
		Name: "link instructors",
		Run: func(ctx context.Context) error {
			for _, id := range in.InstructorIDs {
				t := domain.TeachingAssignment{SessionID: sessionID, InstructorID: id}
				if err := b.Store.InsertTeaching(ctx, t); err != nil {
					return err
				}
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return b.Store.DeleteTeachings(ctx, sessionID)
		},
	})
	saga.Add(Step{
		Name: "link modules",
		Run: func(ctx context.Context) error {
			for _, m := range in.Modules {
				l := domain.SessionModule{SessionID: sessionID, ModuleID: m.ModuleID, Role: m.Role}
				if err := b.Store.InsertSessionModule(ctx, l); err != nil {
					return err
				}
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return b.Store.DeleteSessionModules(ctx, sessionID)
		},
	})
	for _, roomID := range in.RoomIDs {
		roomID := roomID
		saga.Add(Step{
			Name: fmt.Sprintf("reserve room %d", roomID),
			Run: func(ctx context.Context) error {
				return b.Store.ReserveRoom(ctx, sessionID, roomID, in.Session.StartAt, in.Session.EndAt)
			},
			Compensate: func(ctx context.Context) error {
				return b.Store.DeleteReservation(ctx, sessionID, roomID)
			},
		})
	}

	if err := saga.Run(ctx); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// Update replaces the session row and all three link sets. Link replacement
// is delete-then-insert; the previous state is snapshotted first so the
// compensations can restore it if a room re-reservation conflicts. A nil
// link set in the input keeps the existing one — the rooms are still
// re-reserved under the conflict check, so moving a session's time range
// can never slip past an overlapping booking.
func (b *Booker) Update(ctx context.Context, in SessionInput) error {
	sessionID := in.Session.ID

	old, err := b.Store.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("%w: session %d", utils.ErrNotFound, sessionID)
	}
	oldTeachings, err := b.Store.TeachingsFor(ctx, sessionID)
	if err != nil {
		return err
	}
	oldLinks, err := b.Store.SessionModulesFor(ctx, sessionID)
	if err != nil {
		return err
	}
	oldReservations, err := b.Store.ReservationsFor(ctx, sessionID)
	if err != nil {
		return err
	}

	if in.InstructorIDs == nil {
		for _, t := range oldTeachings {
			in.InstructorIDs = append(in.InstructorIDs, t.InstructorID)
		}
	}
	if in.Modules == nil {
		for _, l := range oldLinks {
			in.Modules = append(in.Modules, ModuleLink{ModuleID: l.ModuleID, Role: l.Role})
		}
	}
	if in.RoomIDs == nil {
		for _, r := range oldReservations {
			in.RoomIDs = append(in.RoomIDs, r.RoomID)
		}
	}

	saga := NewSaga(b.Log)
	saga.Add(Step{
		Name: "update session row",
		Run: func(ctx context.Context) error {
			return b.Store.UpdateSession(ctx, in.Session)
		},
		Compensate: func(ctx context.Context) error {
			return b.Store.UpdateSession(ctx, *old)
		},
	})
	saga.Add(Step{
		Name: "replace teachings",
		Run: func(ctx context.Context) error {
			if err := b.Store.DeleteTeachings(ctx, sessionID); err != nil {
				return err
			}
			for _, id := range in.InstructorIDs {
				t := domain.TeachingAssignment{SessionID: sessionID, InstructorID: id}
				if err := b.Store.InsertTeaching(ctx, t); err != nil {
					return err
				}
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if err := b.Store.DeleteTeachings(ctx, sessionID); err != nil {
				return err
			}
			for _, t := range oldTeachings {
				if err := b.Store.InsertTeaching(ctx, t); err != nil {
					return err
				}
			}
			return nil
		},
	})
	saga.Add(Step{
		Name: "replace module links",
		Run: func(ctx context.Context) error {
			if err := b.Store.DeleteSessionModules(ctx, sessionID); err != nil {
				return err
			}
			for _, m := range in.Modules {
				l := domain.SessionModule{SessionID: sessionID, ModuleID: m.ModuleID, Role: m.Role}
				if err := b.Store.InsertSessionModule(ctx, l); err != nil {
					return err
				}
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if err := b.Store.DeleteSessionModules(ctx, sessionID); err != nil {
				return err
			}
			for _, l := range oldLinks {
				if err := b.Store.InsertSessionModule(ctx, l); err != nil {
					return err
				}
			}
			return nil
		},
	})
	saga.Add(Step{
		Name: "clear reservations",
		Run: func(ctx context.Context) error {
			return b.Store.DeleteReservations(ctx, sessionID)
		},
		Compensate: func(ctx context.Context) error {
			for _, r := range oldReservations {
				if err := b.Store.InsertReservation(ctx, r); err != nil {
					return err
				}
			}
			return nil
		},
	})
	for _, roomID := range in.RoomIDs {
		roomID := roomID
		saga.Add(Step{
			Name: fmt.Sprintf("reserve room %d", roomID),
			Run: func(ctx context.Context) error {
				return b.Store.ReserveRoom(ctx, sessionID, roomID, in.Session.StartAt, in.Session.EndAt)
			},
			Compensate: func(ctx context.Context) error {
				return b.Store.DeleteReservation(ctx, sessionID, roomID)
			},
		})
	}

	return saga.Run(ctx)
}

// Delete removes the three link sets before the session row; the store has
// no cascading deletes.
func (b *Booker) Delete(ctx context.Context, sessionID int) error {
	if err := b.Store.DeleteReservations(ctx, sessionID); err != nil {
		return err
	}
	if err := b.Store.DeleteTeachings(ctx, sessionID); err != nil {
		return err
	}
	if err := b.Store.DeleteSessionModules(ctx, sessionID); err != nil {
		return err
	}
	return b.Store.DeleteSession(ctx, sessionID)
}
