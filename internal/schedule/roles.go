package schedule

import (
	"context"
	"fmt"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/utils"
)

// Directory looks up registered actors by email. Implementations return
// (nil, nil) when no row matches; errors are reserved for store failures.
type Directory interface {
	InstructorByEmail(ctx context.Context, email string) (*domain.Instructor, error)
	StudentByEmail(ctx context.Context, email string) (*domain.Student, error)
}

// ResolveRole maps a verified email to exactly one actor. Order matters:
// a referent-flagged instructor resolves to administrator before any other
// match is considered. An unregistered email is a normal forbidden outcome.
func ResolveRole(ctx context.Context, dir Directory, email string) (domain.Actor, error) {
	inst, err := dir.InstructorByEmail(ctx, email)
	if err != nil {
		return domain.Actor{}, err
	}
	if inst != nil {
		if inst.Referent {
			return domain.Actor{Role: domain.RoleAdministrator, ID: inst.ID}, nil
		}
		return domain.Actor{Role: domain.RoleInstructor, ID: inst.ID}, nil
	}

	student, err := dir.StudentByEmail(ctx, email)
	if err != nil {
		return domain.Actor{}, err
	}
	if student != nil {
		return domain.Actor{Role: domain.RoleStudent, ID: student.ID}, nil
	}

	return domain.Actor{}, fmt.Errorf("%w: email %s is not registered", utils.ErrAuthorization, email)
}
