package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/schedule"
	"github.com/bd31600/planning/internal/utils"
)

// hasLinkKeys reports whether a session payload carries link sets and must
// go through the booking flow instead of the plain gateway.
func hasLinkKeys(payload map[string]any) bool {
	for _, key := range []string{"rooms", "instructors", "modules"} {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}

// parseSessionInput turns an insert payload into a booking input. Timestamp
// literals are interpreted with the request's timezone offset.
func parseSessionInput(ctx context.Context, payload map[string]any) (schedule.SessionInput, error) {
	var in schedule.SessionInput

	subject, err := stringField(payload, "subject")
	if err != nil {
		return in, err
	}
	in.Session.Subject = subject

	start, err := timeField(ctx, payload, "start_at")
	if err != nil {
		return in, err
	}
	end, err := timeField(ctx, payload, "end_at")
	if err != nil {
		return in, err
	}
	if !end.After(start) {
		return in, fmt.Errorf("%w: end_at must be after start_at", utils.ErrValidation)
	}
	in.Session.StartAt = start
	in.Session.EndAt = end

	if v, ok := payload["session_type"].(string); ok {
		in.Session.SessionType = v
	}
	if v, ok := payload["description"].(string); ok {
		in.Session.Description = &v
	}
	in.Session.Track = domain.TrackAll
	if v, ok := payload["track"].(string); ok && v != "" {
		track := domain.Track(v)
		switch track {
		case domain.TrackApprentice, domain.TrackIntegrated, domain.TrackAll:
			in.Session.Track = track
		default:
			return in, fmt.Errorf("%w: unknown track %q", utils.ErrValidation, v)
		}
	}

	in.RoomIDs, err = intList(payload, "rooms")
	if err != nil {
		return in, err
	}
	in.InstructorIDs, err = intList(payload, "instructors")
	if err != nil {
		return in, err
	}
	in.Modules, err = moduleList(payload)
	if err != nil {
		return in, err
	}
	if len(in.Modules) == 0 {
		return in, fmt.Errorf("%w: at least one module is required", utils.ErrValidation)
	}

	return in, nil
}

// parseSessionUpdate overlays an update payload onto the current session row.
// Keys absent from the payload keep their stored value; absent link-set keys
// come back nil, which the booking flow reads as keep-the-existing-set.
func parseSessionUpdate(ctx context.Context, payload map[string]any, current domain.Session) (schedule.SessionInput, error) {
	in := schedule.SessionInput{Session: current}

	if _, ok := payload["subject"]; ok {
		subject, err := stringField(payload, "subject")
		if err != nil {
			return in, err
		}
		in.Session.Subject = subject
	}
	if v, ok := payload["session_type"].(string); ok {
		in.Session.SessionType = v
	}
	if v, ok := payload["description"].(string); ok {
		in.Session.Description = &v
	}
	if _, ok := payload["start_at"]; ok {
		start, err := timeField(ctx, payload, "start_at")
		if err != nil {
			return in, err
		}
		in.Session.StartAt = start
	}
	if _, ok := payload["end_at"]; ok {
		end, err := timeField(ctx, payload, "end_at")
		if err != nil {
			return in, err
		}
		in.Session.EndAt = end
	}
	if !in.Session.EndAt.After(in.Session.StartAt) {
		return in, fmt.Errorf("%w: end_at must be after start_at", utils.ErrValidation)
	}
	if v, ok := payload["track"].(string); ok && v != "" {
		track := domain.Track(v)
		switch track {
		case domain.TrackApprentice, domain.TrackIntegrated, domain.TrackAll:
			in.Session.Track = track
		default:
			return in, fmt.Errorf("%w: unknown track %q", utils.ErrValidation, v)
		}
	}

	var err error
	in.RoomIDs, err = intList(payload, "rooms")
	if err != nil {
		return in, err
	}
	in.InstructorIDs, err = intList(payload, "instructors")
	if err != nil {
		return in, err
	}
	in.Modules, err = moduleList(payload)
	if err != nil {
		return in, err
	}
	if _, ok := payload["modules"]; ok && len(in.Modules) == 0 {
		return in, fmt.Errorf("%w: at least one module is required", utils.ErrValidation)
	}

	return in, nil
}

// parseFilterOptions reads display predicates from a session list payload:
// module pairs, tracks and a mine flag that scopes to the calling instructor.
func parseFilterOptions(payload map[string]any, actor domain.Actor) (schedule.FilterOptions, error) {
	var opts schedule.FilterOptions

	links, err := moduleList(payload)
	if err != nil {
		return opts, err
	}
	for _, l := range links {
		opts.Modules = append(opts.Modules, schedule.ModuleFilter{ModuleID: l.ModuleID, Role: l.Role})
	}

	if raw, ok := payload["tracks"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return opts, fmt.Errorf("%w: tracks must be a list", utils.ErrValidation)
		}
		for _, item := range items {
			track := domain.Track(fmt.Sprint(item))
			switch track {
			case domain.TrackApprentice, domain.TrackIntegrated, domain.TrackAll:
				opts.Tracks = append(opts.Tracks, track)
			default:
				return opts, fmt.Errorf("%w: unknown track %q", utils.ErrValidation, item)
			}
		}
	}

	if mine, ok := payload["mine"].(bool); ok && mine {
		if actor.Role != domain.RoleInstructor && actor.Role != domain.RoleAdministrator {
			return opts, fmt.Errorf("%w: mine applies to instructors only", utils.ErrValidation)
		}
		opts.MineOnly = true
		opts.InstructorID = actor.ID
	}

	return opts, nil
}

func reservationKeys(payload map[string]any) (int, int, error) {
	sessionID, err := intField(payload, "session_id")
	if err != nil {
		return 0, 0, err
	}
	roomID, err := intField(payload, "room_id")
	if err != nil {
		return 0, 0, err
	}
	return sessionID, roomID, nil
}

func stringField(payload map[string]any, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s is required", utils.ErrValidation, key)
	}
	return v, nil
}

func timeField(ctx context.Context, payload map[string]any, key string) (t time.Time, err error) {
	literal, ok := payload[key].(string)
	if !ok || literal == "" {
		return t, fmt.Errorf("%w: %s is required", utils.ErrValidation, key)
	}
	return utils.ParseClientTime(ctx, literal)
}

// intValue accepts the numeric shapes JSON decoding produces.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func intField(payload map[string]any, key string) (int, error) {
	n, ok := intValue(payload[key])
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", utils.ErrValidation, key)
	}
	return n, nil
}

func intList(payload map[string]any, key string) ([]int, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list of ids", utils.ErrValidation, key)
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := intValue(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list of ids", utils.ErrValidation, key)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func moduleList(payload map[string]any) ([]schedule.ModuleLink, error) {
	raw, ok := payload["modules"]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: modules must be a list", utils.ErrValidation)
	}
	links := make([]schedule.ModuleLink, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: each module entry needs module_id and module_role", utils.ErrValidation)
		}
		id, ok := intValue(entry["module_id"])
		if !ok {
			return nil, fmt.Errorf("%w: each module entry needs module_id and module_role", utils.ErrValidation)
		}
		role := domain.ModuleRole(fmt.Sprint(entry["module_role"]))
		if role != domain.ModuleMajor && role != domain.ModuleMinor {
			return nil, fmt.Errorf("%w: unknown module role %q", utils.ErrValidation, entry["module_role"])
		}
		links = append(links, schedule.ModuleLink{ModuleID: id, Role: role})
	}
	return links, nil
}
