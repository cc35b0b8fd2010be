package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/middleware"
	"github.com/bd31600/planning/internal/schedule"
	"github.com/bd31600/planning/internal/utils"
)

// Gateway is the generic allow-listed CRUD surface behind the RPC endpoint.
type Gateway interface {
	List(ctx context.Context, entity string) ([]map[string]any, error)
	Insert(ctx context.Context, entity string, payload map[string]any) (int, error)
	Update(ctx context.Context, entity string, payload map[string]any) error
	Delete(ctx context.Context, entity string, payload map[string]any) error
	ModuleOptions(ctx context.Context) ([]domain.ModuleOption, error)
}

// Reserver books a room for a session with the conflict check applied.
type Reserver interface {
	ReserveRoom(ctx context.Context, sessionID, roomID int, start, end time.Time) error
}

// SessionReader resolves the time range a reservation insert applies to.
type SessionReader interface {
	SessionByID(ctx context.Context, id int) (*domain.Session, error)
}

type Deps struct {
	Directory schedule.Directory
	Source    schedule.Source
	Gateway   Gateway
	Booker    *schedule.Booker
	Reserver  Reserver
	Sessions  SessionReader
	Log       *slog.Logger
}

// Request is the RPC envelope. Everything outside the action set is rejected
// at the boundary.
type Request struct {
	Action  string         `json:"action" validate:"required,oneof=getRole list insert update delete"`
	Entity  string         `json:"entity"`
	Payload map[string]any `json:"payload"`
}

func SetupRPCRoutes(e *echo.Echo, deps Deps, authMiddleware echo.MiddlewareFunc) {
	e.POST("/api/rpc", RPC(deps), authMiddleware)
}

// RPC godoc
// @Summary Execute a scheduling action
// @Description Single RPC endpoint: getRole, list, insert, update or delete on an allow-listed entity
// @Tags rpc
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handler.Request true "Action envelope"
// @Param X-Timezone-Offset header int false "Client timezone offset in minutes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /rpc [post]
func RPC(deps Deps) echo.HandlerFunc {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return func(c echo.Context) error {
		var req Request
		if err := c.Bind(&req); err != nil {
			return fail(c, log, fmt.Errorf("%w: invalid request body", utils.ErrValidation))
		}
		if err := c.Validate(&req); err != nil {
			return fail(c, log, fmt.Errorf("%w: unrecognized action %q", utils.ErrValidation, req.Action))
		}

		ctx := c.Request().Context()
		if header := c.Request().Header.Get("X-Timezone-Offset"); header != "" {
			if minutes, err := strconv.Atoi(header); err == nil {
				ctx = utils.WithTimezoneOffset(ctx, minutes)
			}
		}

		email, ok := c.Get(middleware.EmailContextKey).(string)
		if !ok || email == "" {
			return fail(c, log, fmt.Errorf("%w: no verified email", utils.ErrAuthentication))
		}

		actor, err := schedule.ResolveRole(ctx, deps.Directory, email)
		if err != nil {
			return fail(c, log, err)
		}

		if req.Action == "getRole" {
			return success(c, map[string]any{"role": actor.Role, "id": actor.ID})
		}

		if req.Entity == "" {
			return fail(c, log, fmt.Errorf("%w: entity is required for action %s", utils.ErrValidation, req.Action))
		}

		if req.Action == "list" {
			return list(c, ctx, deps, log, actor, req.Entity, req.Payload)
		}

		// Mutations are an administrator/instructor concern; students are
		// rejected before any entity-specific logic runs.
		if actor.Role == domain.RoleStudent {
			return fail(c, log, fmt.Errorf("%w: students cannot modify the schedule", utils.ErrAuthorization))
		}
		if req.Payload == nil {
			return fail(c, log, fmt.Errorf("%w: payload is required for action %s", utils.ErrValidation, req.Action))
		}

		switch req.Action {
		case "insert":
			return insert(c, ctx, deps, log, req.Entity, req.Payload)
		case "update":
			return update(c, ctx, deps, log, req.Entity, req.Payload)
		default:
			return remove(c, ctx, deps, log, req.Entity, req.Payload)
		}
	}
}

func list(c echo.Context, ctx context.Context, deps Deps, log *slog.Logger, actor domain.Actor, entity string, payload map[string]any) error {
	switch entity {
	case "sessions":
		// The session list is the aggregated read model, never raw rows. An
		// optional payload narrows it with display predicates.
		events, err := schedule.Aggregate(ctx, deps.Source, actor)
		if err != nil {
			return fail(c, log, err)
		}
		if len(payload) > 0 {
			opts, err := parseFilterOptions(payload, actor)
			if err != nil {
				return fail(c, log, err)
			}
			events = schedule.Filter(events, opts)
		}
		return success(c, map[string]any{"data": events})
	case "module_options":
		options, err := deps.Gateway.ModuleOptions(ctx)
		if err != nil {
			return fail(c, log, err)
		}
		if options == nil {
			options = []domain.ModuleOption{}
		}
		return success(c, map[string]any{"data": options})
	default:
		records, err := deps.Gateway.List(ctx, entity)
		if err != nil {
			return fail(c, log, err)
		}
		return success(c, map[string]any{"data": records})
	}
}

func insert(c echo.Context, ctx context.Context, deps Deps, log *slog.Logger, entity string, payload map[string]any) error {
	switch {
	case entity == "sessions" && hasLinkKeys(payload):
		input, err := parseSessionInput(ctx, payload)
		if err != nil {
			return fail(c, log, err)
		}
		id, err := deps.Booker.Create(ctx, input)
		if err != nil {
			return fail(c, log, err)
		}
		return success(c, map[string]any{"insertedId": id})

	case entity == "reservations":
		sessionID, roomID, err := reservationKeys(payload)
		if err != nil {
			return fail(c, log, err)
		}
		sess, err := deps.Sessions.SessionByID(ctx, sessionID)
		if err != nil {
			return fail(c, log, err)
		}
		if sess == nil {
			return fail(c, log, fmt.Errorf("%w: session %d", utils.ErrNotFound, sessionID))
		}
		if err := deps.Reserver.ReserveRoom(ctx, sessionID, roomID, sess.StartAt, sess.EndAt); err != nil {
			return fail(c, log, err)
		}
		return success(c, nil)

	default:
		id, err := deps.Gateway.Insert(ctx, entity, payload)
		if err != nil {
			return fail(c, log, err)
		}
		if id == 0 {
			return success(c, nil)
		}
		return success(c, map[string]any{"insertedId": id})
	}
}

func update(c echo.Context, ctx context.Context, deps Deps, log *slog.Logger, entity string, payload map[string]any) error {
	switch {
	case entity == "sessions":
		// Every session update runs through the booking flow, even when the
		// payload touches no link set: a time change must re-reserve the
		// session's rooms under the conflict check.
		id, err := intField(payload, "id")
		if err != nil {
			return fail(c, log, err)
		}
		current, err := deps.Sessions.SessionByID(ctx, id)
		if err != nil {
			return fail(c, log, err)
		}
		if current == nil {
			return fail(c, log, fmt.Errorf("%w: session %d", utils.ErrNotFound, id))
		}
		input, err := parseSessionUpdate(ctx, payload, *current)
		if err != nil {
			return fail(c, log, err)
		}
		if err := deps.Booker.Update(ctx, input); err != nil {
			return fail(c, log, err)
		}
		return success(c, nil)

	case entity == "reservations":
		// A reservation changes by updating its session (the booking flow
		// re-runs the conflict check per room); direct updates would bypass
		// the checker.
		return fail(c, log, fmt.Errorf("%w: reservations are replaced through their session", utils.ErrValidation))

	default:
		if err := deps.Gateway.Update(ctx, entity, payload); err != nil {
			return fail(c, log, err)
		}
		return success(c, nil)
	}
}

func remove(c echo.Context, ctx context.Context, deps Deps, log *slog.Logger, entity string, payload map[string]any) error {
	if entity == "sessions" {
		id, err := intField(payload, "id")
		if err != nil {
			return fail(c, log, err)
		}
		// Link sets go first; the store does not cascade.
		if err := deps.Booker.Delete(ctx, id); err != nil {
			return fail(c, log, err)
		}
		return success(c, nil)
	}

	if err := deps.Gateway.Delete(ctx, entity, payload); err != nil {
		return fail(c, log, err)
	}
	return success(c, nil)
}

func success(c echo.Context, data map[string]any) error {
	body := map[string]any{"success": true}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

func fail(c echo.Context, log *slog.Logger, err error) error {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, utils.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, utils.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, utils.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, utils.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrNotFound):
		status = http.StatusNotFound
	default:
		log.Error("rpc request failed", "error", err)
		message = "internal error"
	}

	return c.JSON(status, map[string]any{"success": false, "error": message})
}
