package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/middleware"
	"github.com/bd31600/planning/internal/schedule"
	"github.com/bd31600/planning/internal/utils"
)

// staticVerifier treats the bearer token as the verified email itself.
type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "expired" {
		return "", utils.ErrExpiredToken
	}
	return token, nil
}

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// fakeBackend is the whole storage surface behind the RPC handler: the role
// directory, the aggregation source, the booking store and the generic
// gateway, all over in-memory maps so list-after-mutate round-trips work.
type fakeBackend struct {
	instructorsByEmail map[string]domain.Instructor
	studentsByEmail    map[string]domain.Student

	nextID       int
	sessions     map[int]domain.Session
	teachings    []domain.TeachingAssignment
	links        []domain.SessionModule
	reservations []domain.Reservation
	rooms        []domain.Room
	modules      []domain.Module
	enrollments  map[int]domain.Enrollment

	gatewayCalls []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		instructorsByEmail: map[string]domain.Instructor{
			"direction@school.fr": {ID: 1, FirstName: "Claire", LastName: "Dumont", Referent: true, Email: "direction@school.fr"},
			"jm@school.fr":        {ID: 2, FirstName: "Julien", LastName: "Moreau", Email: "jm@school.fr"},
		},
		studentsByEmail: map[string]domain.Student{
			"lea@school.fr": {ID: 10, FirstName: "Léa", LastName: "Bernard", Track: domain.TrackApprentice, Email: "lea@school.fr"},
		},
		nextID:   1,
		sessions: map[int]domain.Session{},
		rooms: []domain.Room{
			{ID: 101, Building: "B", RoomNumber: "101", Capacity: 30},
			{ID: 102, Building: "B", RoomNumber: "102", Capacity: 20},
		},
		modules: []domain.Module{
			{ID: 1, Name: "Algorithmique"},
			{ID: 2, Name: "Réseaux"},
		},
		enrollments: map[int]domain.Enrollment{
			10: {StudentID: 10, MajorModuleID: 1, MinorModuleID: 2},
		},
	}
}

// Directory.

func (f *fakeBackend) InstructorByEmail(_ context.Context, email string) (*domain.Instructor, error) {
	if inst, ok := f.instructorsByEmail[email]; ok {
		return &inst, nil
	}
	return nil, nil
}

func (f *fakeBackend) StudentByEmail(_ context.Context, email string) (*domain.Student, error) {
	if s, ok := f.studentsByEmail[email]; ok {
		return &s, nil
	}
	return nil, nil
}

// Source.

func (f *fakeBackend) Sessions(context.Context) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBackend) SessionModules(context.Context) ([]domain.SessionModule, error) {
	return f.links, nil
}

func (f *fakeBackend) Reservations(context.Context) ([]domain.Reservation, error) {
	return f.reservations, nil
}

func (f *fakeBackend) Rooms(context.Context) ([]domain.Room, error) { return f.rooms, nil }

func (f *fakeBackend) Teachings(context.Context) ([]domain.TeachingAssignment, error) {
	return f.teachings, nil
}

func (f *fakeBackend) Instructors(context.Context) ([]domain.Instructor, error) {
	out := make([]domain.Instructor, 0, len(f.instructorsByEmail))
	for _, inst := range f.instructorsByEmail {
		out = append(out, inst)
	}
	return out, nil
}

func (f *fakeBackend) InstructorModules(context.Context) ([]domain.InstructorModule, error) {
	return nil, nil
}

func (f *fakeBackend) Modules(context.Context) ([]domain.Module, error) { return f.modules, nil }

func (f *fakeBackend) StudentByID(_ context.Context, id int) (*domain.Student, error) {
	for _, s := range f.studentsByEmail {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) EnrollmentFor(_ context.Context, studentID int) (*domain.Enrollment, error) {
	if e, ok := f.enrollments[studentID]; ok {
		return &e, nil
	}
	return nil, nil
}

// Store.

func (f *fakeBackend) InsertSession(_ context.Context, s domain.Session) (int, error) {
	s.ID = f.nextID
	f.nextID++
	f.sessions[s.ID] = s
	return s.ID, nil
}

func (f *fakeBackend) UpdateSession(_ context.Context, s domain.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id int) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeBackend) SessionByID(_ context.Context, id int) (*domain.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeBackend) InsertTeaching(_ context.Context, t domain.TeachingAssignment) error {
	f.teachings = append(f.teachings, t)
	return nil
}

func (f *fakeBackend) DeleteTeachings(_ context.Context, sessionID int) error {
	var out []domain.TeachingAssignment
	for _, t := range f.teachings {
		if t.SessionID != sessionID {
			out = append(out, t)
		}
	}
	f.teachings = out
	return nil
}

func (f *fakeBackend) TeachingsFor(_ context.Context, sessionID int) ([]domain.TeachingAssignment, error) {
	var out []domain.TeachingAssignment
	for _, t := range f.teachings {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertSessionModule(_ context.Context, l domain.SessionModule) error {
	f.links = append(f.links, l)
	return nil
}

func (f *fakeBackend) DeleteSessionModules(_ context.Context, sessionID int) error {
	var out []domain.SessionModule
	for _, l := range f.links {
		if l.SessionID != sessionID {
			out = append(out, l)
		}
	}
	f.links = out
	return nil
}

func (f *fakeBackend) SessionModulesFor(_ context.Context, sessionID int) ([]domain.SessionModule, error) {
	var out []domain.SessionModule
	for _, l := range f.links {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBackend) ReserveRoom(_ context.Context, sessionID, roomID int, start, end time.Time) error {
	var bookings []schedule.RoomBooking
	for _, r := range f.reservations {
		other, ok := f.sessions[r.SessionID]
		if !ok {
			continue
		}
		bookings = append(bookings, schedule.RoomBooking{
			SessionID: r.SessionID, RoomID: r.RoomID, StartAt: other.StartAt, EndAt: other.EndAt,
		})
	}
	if conflicting, found := schedule.FirstConflict(bookings, roomID, sessionID, start, end); found {
		return fmt.Errorf("%w (session %d)", utils.ConflictError(f.roomLabel(roomID)), conflicting)
	}
	f.reservations = append(f.reservations, domain.Reservation{SessionID: sessionID, RoomID: roomID})
	return nil
}

func (f *fakeBackend) InsertReservation(_ context.Context, r domain.Reservation) error {
	f.reservations = append(f.reservations, r)
	return nil
}

func (f *fakeBackend) DeleteReservation(_ context.Context, sessionID, roomID int) error {
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.SessionID == sessionID && r.RoomID == roomID {
			continue
		}
		out = append(out, r)
	}
	f.reservations = out
	return nil
}

func (f *fakeBackend) DeleteReservations(_ context.Context, sessionID int) error {
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.SessionID != sessionID {
			out = append(out, r)
		}
	}
	f.reservations = out
	return nil
}

func (f *fakeBackend) ReservationsFor(_ context.Context, sessionID int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) roomLabel(roomID int) string {
	for _, r := range f.rooms {
		if r.ID == roomID {
			return r.Label()
		}
	}
	return fmt.Sprintf("room %d", roomID)
}

// Gateway.

func (f *fakeBackend) List(_ context.Context, entity string) ([]map[string]any, error) {
	f.gatewayCalls = append(f.gatewayCalls, "list "+entity)
	return []map[string]any{{"entity": entity}}, nil
}

func (f *fakeBackend) Insert(_ context.Context, entity string, _ map[string]any) (int, error) {
	f.gatewayCalls = append(f.gatewayCalls, "insert "+entity)
	return 42, nil
}

func (f *fakeBackend) Update(_ context.Context, entity string, _ map[string]any) error {
	f.gatewayCalls = append(f.gatewayCalls, "update "+entity)
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, entity string, _ map[string]any) error {
	f.gatewayCalls = append(f.gatewayCalls, "delete "+entity)
	return nil
}

func (f *fakeBackend) ModuleOptions(context.Context) ([]domain.ModuleOption, error) {
	return []domain.ModuleOption{
		{ModuleID: 1, Name: "Algorithmique", Role: domain.ModuleMajor},
		{ModuleID: 2, Name: "Réseaux", Role: domain.ModuleMinor},
	}, nil
}

func newTestServer(backend *fakeBackend) *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Deps{
		Directory: backend,
		Source:    backend,
		Gateway:   backend,
		Booker:    &schedule.Booker{Store: backend, Log: log},
		Reserver:  backend,
		Sessions:  backend,
		Log:       log,
	}
	SetupRPCRoutes(e, deps, middleware.Auth(staticVerifier{}))
	return e
}

// doRPC posts an action envelope as the given email. The stub verifier
// accepts the email itself as the bearer token.
func doRPC(t *testing.T, e *echo.Echo, email string, body map[string]any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/rpc", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+email)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func algoSessionPayload() map[string]any {
	return map[string]any{
		"subject":     "Algorithmique",
		"start_at":    "2024-03-01T09:00",
		"end_at":      "2024-03-01T11:00",
		"rooms":       []int{101},
		"instructors": []int{2},
		"modules":     []map[string]any{{"module_id": 1, "module_role": "majeur"}},
	}
}

func TestRPCGetRole(t *testing.T) {
	e := newTestServer(newFakeBackend())

	tests := []struct {
		email string
		role  string
		id    float64
	}{
		{"direction@school.fr", "admin", 1},
		{"jm@school.fr", "intervenant", 2},
		{"lea@school.fr", "eleve", 10},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			code, body := doRPC(t, e, tt.email, map[string]any{"action": "getRole"})
			if code != http.StatusOK {
				t.Fatalf("status = %d, body = %v", code, body)
			}
			if body["role"] != tt.role || body["id"] != tt.id {
				t.Errorf("body = %v, want role %q id %v", body, tt.role, tt.id)
			}
		})
	}
}

func TestRPCRejectsBadCredentials(t *testing.T) {
	e := newTestServer(newFakeBackend())

	code, _ := doRPC(t, e, "", map[string]any{"action": "getRole"})
	if code != http.StatusUnauthorized {
		t.Errorf("missing credential: status = %d, want 401", code)
	}

	code, _ = doRPC(t, e, "expired", map[string]any{"action": "getRole"})
	if code != http.StatusUnauthorized {
		t.Errorf("expired credential: status = %d, want 401", code)
	}
}

func TestRPCUnregisteredEmailIsForbidden(t *testing.T) {
	e := newTestServer(newFakeBackend())
	code, body := doRPC(t, e, "nobody@elsewhere.fr", map[string]any{"action": "getRole"})
	if code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestRPCUnknownActionIsRejected(t *testing.T) {
	e := newTestServer(newFakeBackend())
	code, _ := doRPC(t, e, "direction@school.fr", map[string]any{"action": "drop", "entity": "sessions"})
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestRPCStudentMutationsAreForbidden(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)
	for _, action := range []string{"insert", "update", "delete"} {
		code, _ := doRPC(t, e, "lea@school.fr", map[string]any{
			"action": action, "entity": "rooms", "payload": map[string]any{"id": 101},
		})
		if code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", action, code)
		}
	}
	if len(backend.gatewayCalls) != 0 {
		t.Errorf("gateway reached despite student role: %v", backend.gatewayCalls)
	}
}

func TestRPCSessionLifecycle(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("insert: status = %d, body = %v", code, body)
	}
	insertedID, ok := body["insertedId"].(float64)
	if !ok {
		t.Fatalf("insert: body = %v, want insertedId", body)
	}

	// The instructor teaching the session sees it as one aggregated event
	// carrying the room label and module link.
	code, body = doRPC(t, e, "jm@school.fr", map[string]any{"action": "list", "entity": "sessions"})
	if code != http.StatusOK {
		t.Fatalf("list: status = %d, body = %v", code, body)
	}
	events, ok := body["data"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("list: data = %v, want one event", body["data"])
	}
	event := events[0].(map[string]any)
	if event["subject"] != "Algorithmique" {
		t.Errorf("subject = %v", event["subject"])
	}
	rooms, _ := event["rooms"].([]any)
	if len(rooms) != 1 || rooms[0] != "B101" {
		t.Errorf("rooms = %v, want [B101]", event["rooms"])
	}

	// The enrolled student sees it too: module 1 is their major.
	code, body = doRPC(t, e, "lea@school.fr", map[string]any{"action": "list", "entity": "sessions"})
	if code != http.StatusOK {
		t.Fatalf("student list: status = %d, body = %v", code, body)
	}
	if events, _ := body["data"].([]any); len(events) != 1 {
		t.Errorf("student list: data = %v, want one event", body["data"])
	}

	// An overlapping booking of the same room is refused and names the room.
	overlapping := algoSessionPayload()
	overlapping["subject"] = "Réseaux"
	overlapping["start_at"] = "2024-03-01T10:00"
	overlapping["end_at"] = "2024-03-01T12:00"
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": overlapping,
	})
	if code != http.StatusConflict {
		t.Fatalf("overlap: status = %d, body = %v", code, body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "B101") {
		t.Errorf("error = %q, want the room label in it", msg)
	}
	if len(backend.sessions) != 1 {
		t.Errorf("sessions = %v, want the failed insert rolled back", backend.sessions)
	}

	// Back to back is fine.
	following := algoSessionPayload()
	following["start_at"] = "2024-03-01T11:00"
	following["end_at"] = "2024-03-01T12:00"
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": following,
	})
	if code != http.StatusOK {
		t.Fatalf("back-to-back: status = %d, body = %v", code, body)
	}

	// Deleting the first session clears its links and reservations.
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "delete", "entity": "sessions", "payload": map[string]any{"id": insertedID},
	})
	if code != http.StatusOK {
		t.Fatalf("delete: status = %d, body = %v", code, body)
	}
	if _, ok := backend.sessions[int(insertedID)]; ok {
		t.Error("session row survived the delete")
	}
	for _, r := range backend.reservations {
		if r.SessionID == int(insertedID) {
			t.Errorf("dangling reservation: %+v", r)
		}
	}
	for _, l := range backend.links {
		if l.SessionID == int(insertedID) {
			t.Errorf("dangling module link: %+v", l)
		}
	}
}

func TestRPCSessionUpdateRechecksConflicts(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("seed first: status = %d, body = %v", code, body)
	}

	second := algoSessionPayload()
	second["subject"] = "Réseaux"
	second["rooms"] = []int{102}
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": second,
	})
	if code != http.StatusOK {
		t.Fatalf("seed second: status = %d, body = %v", code, body)
	}
	secondID := body["insertedId"].(float64)

	// Moving the second session into the first one's room must conflict and
	// leave the old reservation in place.
	moved := algoSessionPayload()
	moved["id"] = secondID
	moved["subject"] = "Réseaux"
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "update", "entity": "sessions", "payload": moved,
	})
	if code != http.StatusConflict {
		t.Fatalf("update: status = %d, body = %v", code, body)
	}
	got, _ := backend.ReservationsFor(context.Background(), int(secondID))
	if len(got) != 1 || got[0].RoomID != 102 {
		t.Errorf("reservations = %+v, want room 102 restored", got)
	}
}

func TestRPCPlainSessionUpdateRechecksConflicts(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("seed first: status = %d, body = %v", code, body)
	}

	second := algoSessionPayload()
	second["subject"] = "Réseaux"
	second["start_at"] = "2024-03-01T11:00"
	second["end_at"] = "2024-03-01T12:00"
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": second,
	})
	if code != http.StatusOK {
		t.Fatalf("seed second: status = %d, body = %v", code, body)
	}
	secondID := int(body["insertedId"].(float64))
	before := backend.sessions[secondID]

	// A payload touching only the time range carries no link-set keys; the
	// re-check must still run against the session's kept room.
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "update", "entity": "sessions",
		"payload": map[string]any{
			"id":       secondID,
			"start_at": "2024-03-01T10:00",
			"end_at":   "2024-03-01T12:00",
		},
	})
	if code != http.StatusConflict {
		t.Fatalf("update: status = %d, body = %v, want 409", code, body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "B101") {
		t.Errorf("error = %q, want the room label in it", msg)
	}

	after := backend.sessions[secondID]
	if !after.StartAt.Equal(before.StartAt) || !after.EndAt.Equal(before.EndAt) {
		t.Errorf("session times changed: %v-%v, want %v-%v restored",
			after.StartAt, after.EndAt, before.StartAt, before.EndAt)
	}
	got, _ := backend.ReservationsFor(context.Background(), secondID)
	if len(got) != 1 || got[0].RoomID != 101 {
		t.Errorf("reservations = %+v, want room 101 restored", got)
	}
}

func TestRPCPlainSessionUpdateKeepsLinks(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("seed: status = %d, body = %v", code, body)
	}
	id := int(body["insertedId"].(float64))

	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "update", "entity": "sessions",
		"payload": map[string]any{"id": id, "subject": "Algorithmique avancée"},
	})
	if code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %v", code, body)
	}
	if got := backend.sessions[id].Subject; got != "Algorithmique avancée" {
		t.Errorf("subject = %q", got)
	}
	if len(backend.teachings) != 1 || backend.teachings[0].InstructorID != 2 {
		t.Errorf("teachings = %+v, want the original kept", backend.teachings)
	}
	if len(backend.links) != 1 || backend.links[0].ModuleID != 1 {
		t.Errorf("module links = %+v, want the original kept", backend.links)
	}
	got, _ := backend.ReservationsFor(context.Background(), id)
	if len(got) != 1 || got[0].RoomID != 101 {
		t.Errorf("reservations = %+v, want room 101 kept", got)
	}
}

func TestRPCSessionValidation(t *testing.T) {
	e := newTestServer(newFakeBackend())

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing subject", func(p map[string]any) { delete(p, "subject") }},
		{"missing end", func(p map[string]any) { delete(p, "end_at") }},
		{"end before start", func(p map[string]any) { p["end_at"] = "2024-03-01T08:00" }},
		{"end equals start", func(p map[string]any) { p["end_at"] = "2024-03-01T09:00" }},
		{"unknown track", func(p map[string]any) { p["track"] = "Externe" }},
		{"no modules", func(p map[string]any) { p["modules"] = []map[string]any{} }},
		{"bad module role", func(p map[string]any) {
			p["modules"] = []map[string]any{{"module_id": 1, "module_role": "optionnel"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := algoSessionPayload()
			tt.mutate(payload)
			code, body := doRPC(t, e, "direction@school.fr", map[string]any{
				"action": "insert", "entity": "sessions", "payload": payload,
			})
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %v, want 400", code, body)
			}
		})
	}
}

func TestRPCFilteredSessionList(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("seed first: status = %d, body = %v", code, body)
	}
	second := algoSessionPayload()
	second["subject"] = "Réseaux"
	second["rooms"] = []int{102}
	second["modules"] = []map[string]any{{"module_id": 2, "module_role": "mineur"}}
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": second,
	})
	if code != http.StatusOK {
		t.Fatalf("seed second: status = %d, body = %v", code, body)
	}

	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "list", "entity": "sessions",
		"payload": map[string]any{"modules": []map[string]any{{"module_id": 2, "module_role": "mineur"}}},
	})
	if code != http.StatusOK {
		t.Fatalf("filtered list: status = %d, body = %v", code, body)
	}
	events, _ := body["data"].([]any)
	if len(events) != 1 {
		t.Fatalf("data = %v, want one event", body["data"])
	}
	if subject := events[0].(map[string]any)["subject"]; subject != "Réseaux" {
		t.Errorf("subject = %v, want Réseaux", subject)
	}

	// The mine flag is meaningless for students.
	code, _ = doRPC(t, e, "lea@school.fr", map[string]any{
		"action": "list", "entity": "sessions", "payload": map[string]any{"mine": true},
	})
	if code != http.StatusBadRequest {
		t.Errorf("student mine: status = %d, want 400", code)
	}
}

func TestRPCReservationInsert(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "sessions", "payload": algoSessionPayload(),
	})
	if code != http.StatusOK {
		t.Fatalf("seed: status = %d, body = %v", code, body)
	}
	id := int(body["insertedId"].(float64))

	// Adding the second room to the session runs the conflict check.
	code, _ = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "reservations",
		"payload": map[string]any{"session_id": id, "room_id": 102},
	})
	if code != http.StatusOK {
		t.Fatalf("reserve: status = %d, want 200", code)
	}
	if len(backend.reservations) != 2 {
		t.Errorf("reservations = %+v", backend.reservations)
	}

	code, _ = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "reservations",
		"payload": map[string]any{"session_id": 404, "room_id": 102},
	})
	if code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", code)
	}
}

func TestRPCReservationDirectUpdateIsRejected(t *testing.T) {
	e := newTestServer(newFakeBackend())
	code, body := doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "update", "entity": "reservations",
		"payload": map[string]any{"session_id": 1, "room_id": 102},
	})
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %v, want 400", code, body)
	}
}

func TestRPCPlainEntitiesGoThroughGateway(t *testing.T) {
	backend := newFakeBackend()
	e := newTestServer(backend)

	code, body := doRPC(t, e, "jm@school.fr", map[string]any{"action": "list", "entity": "rooms"})
	if code != http.StatusOK {
		t.Fatalf("list: status = %d, body = %v", code, body)
	}
	code, body = doRPC(t, e, "direction@school.fr", map[string]any{
		"action": "insert", "entity": "rooms",
		"payload": map[string]any{"building": "C", "room_number": "201", "capacity": 15},
	})
	if code != http.StatusOK {
		t.Fatalf("insert: status = %d, body = %v", code, body)
	}
	if body["insertedId"] != float64(42) {
		t.Errorf("insertedId = %v", body["insertedId"])
	}

	want := []string{"list rooms", "insert rooms"}
	if len(backend.gatewayCalls) != len(want) {
		t.Fatalf("gateway calls = %v, want %v", backend.gatewayCalls, want)
	}
	for i, call := range want {
		if backend.gatewayCalls[i] != call {
			t.Errorf("gateway call %d = %q, want %q", i, backend.gatewayCalls[i], call)
		}
	}
}

func TestRPCModuleOptionsList(t *testing.T) {
	e := newTestServer(newFakeBackend())
	code, body := doRPC(t, e, "lea@school.fr", map[string]any{"action": "list", "entity": "module_options"})
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	options, ok := body["data"].([]any)
	if !ok || len(options) != 2 {
		t.Fatalf("data = %v, want two options", body["data"])
	}
	first := options[0].(map[string]any)
	if first["name"] != "Algorithmique" || first["module_role"] != "majeur" {
		t.Errorf("first option = %v", first)
	}
}
