package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bd31600/planning/internal/domain"
	"github.com/bd31600/planning/internal/utils"
)

// relation describes one allow-listed target of the generic gateway. Table
// and column names are only ever interpolated after validation against this
// table; payload values are always bound parameters.
type relation struct {
	table      string
	columns    []string
	keyColumn  string          // serial primary key, "" for link tables
	timestamps map[string]bool // columns parsed with the request timezone
	upsertKey  string          // insert becomes an upsert keyed on this column
}

var relations = map[string]relation{
	"sessions": {
		table:      "sessions",
		columns:    []string{"id", "subject", "session_type", "start_at", "end_at", "description", "track"},
		keyColumn:  "id",
		timestamps: map[string]bool{"start_at": true, "end_at": true},
	},
	"rooms": {
		table:     "rooms",
		columns:   []string{"id", "building", "room_number", "capacity"},
		keyColumn: "id",
	},
	"instructors": {
		table:     "instructors",
		columns:   []string{"id", "last_name", "first_name", "referent", "email"},
		keyColumn: "id",
	},
	"students": {
		table:     "students",
		columns:   []string{"id", "last_name", "first_name", "email", "track"},
		keyColumn: "id",
	},
	"modules": {
		table:     "modules",
		columns:   []string{"id", "name"},
		keyColumn: "id",
	},
	"reservations": {
		table:   "reservations",
		columns: []string{"session_id", "room_id"},
	},
	"teachings": {
		table:   "teachings",
		columns: []string{"session_id", "instructor_id"},
	},
	"session_modules": {
		table:   "session_modules",
		columns: []string{"session_id", "module_id", "module_role"},
	},
	"instructor_modules": {
		table:   "instructor_modules",
		columns: []string{"instructor_id", "module_id"},
	},
	"enrollments": {
		table:     "enrollments",
		columns:   []string{"student_id", "major_module_id", "minor_module_id"},
		upsertKey: "student_id",
	},
	"module_associations": {
		table:     "module_associations",
		columns:   []string{"id", "major_module_id", "minor_module_id"},
		keyColumn: "id",
	},
	"module_colors": {
		table:     "module_colors",
		columns:   []string{"id", "module_id", "color"},
		keyColumn: "id",
	},
}

func lookupRelation(entity string) (relation, error) {
	rel, ok := relations[entity]
	if !ok {
		return relation{}, fmt.Errorf("%w: unknown entity %q", utils.ErrValidation, entity)
	}
	return rel, nil
}

// isIdentifierKey matches the naming convention for primary-key columns.
func isIdentifierKey(key string) bool {
	return key == "id" || strings.HasPrefix(key, "id_") || strings.HasSuffix(key, "_id")
}

// sortedKeys gives builders a deterministic column order; JSON objects do
// not preserve key order once decoded.
func sortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (rel relation) allows(column string) bool {
	for _, c := range rel.columns {
		if c == column {
			return true
		}
	}
	return false
}

func buildList(entity string) (string, error) {
	rel, err := lookupRelation(entity)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s;", strings.Join(rel.columns, ", "), rel.table), nil
}

func buildInsert(entity string, payload map[string]any) (string, []any, bool, error) {
	rel, err := lookupRelation(entity)
	if err != nil {
		return "", nil, false, err
	}
	if len(payload) == 0 {
		return "", nil, false, fmt.Errorf("%w: insert into %s requires a payload", utils.ErrValidation, entity)
	}

	var columns []string
	var placeholders []string
	var args []any
	for _, key := range sortedKeys(payload) {
		if !rel.allows(key) {
			return "", nil, false, fmt.Errorf("%w: unknown column %q for entity %s", utils.ErrValidation, key, entity)
		}
		columns = append(columns, key)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, payload[key])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		rel.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if rel.upsertKey != "" {
		var sets []string
		for _, c := range columns {
			if c == rel.upsertKey {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
		if len(sets) == 0 {
			return "", nil, false, fmt.Errorf("%w: upsert into %s needs at least one non-key column", utils.ErrValidation, entity)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", rel.upsertKey, strings.Join(sets, ", "))
	}

	returning := rel.keyColumn != ""
	if returning {
		fmt.Fprintf(&b, " RETURNING %s", rel.keyColumn)
	}
	b.WriteString(";")
	return b.String(), args, returning, nil
}

func buildUpdate(entity string, payload map[string]any) (string, []any, error) {
	rel, err := lookupRelation(entity)
	if err != nil {
		return "", nil, err
	}
	// A keyless link relation has no column that names a single row; an
	// update keyed on one of its id columns would rewrite every matching
	// link. Link rows change by delete and insert.
	if rel.keyColumn == "" && rel.upsertKey == "" {
		return "", nil, fmt.Errorf("%w: %s rows are replaced by delete and insert", utils.ErrValidation, entity)
	}

	// The row key is the exact "id" column when present, then the relation's
	// declared upsert key, then the first identifier-named key in sorted
	// order; the rest form the SET clause.
	keys := sortedKeys(payload)
	idKey := ""
	for _, key := range keys {
		if key == "id" && rel.allows(key) {
			idKey = key
			break
		}
	}
	if idKey == "" && rel.upsertKey != "" {
		if _, ok := payload[rel.upsertKey]; ok {
			idKey = rel.upsertKey
		}
	}
	if idKey == "" {
		for _, key := range keys {
			if isIdentifierKey(key) && rel.allows(key) {
				idKey = key
				break
			}
		}
	}
	if idKey == "" {
		return "", nil, fmt.Errorf("%w: update of %s requires an identifier key", utils.ErrValidation, entity)
	}

	var sets []string
	var args []any
	for _, key := range keys {
		if key == idKey {
			continue
		}
		if !rel.allows(key) {
			return "", nil, fmt.Errorf("%w: unknown column %q for entity %s", utils.ErrValidation, key, entity)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", key, len(args)+1))
		args = append(args, payload[key])
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("%w: update of %s has nothing to set", utils.ErrValidation, entity)
	}

	args = append(args, payload[idKey])
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d;",
		rel.table, strings.Join(sets, ", "), idKey, len(args))
	return query, args, nil
}

func buildDelete(entity string, payload map[string]any) (string, []any, error) {
	rel, err := lookupRelation(entity)
	if err != nil {
		return "", nil, err
	}
	// An empty payload would delete every row of the relation.
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("%w: delete from %s requires at least one key", utils.ErrValidation, entity)
	}

	var conditions []string
	var args []any
	for _, key := range sortedKeys(payload) {
		if !rel.allows(key) {
			return "", nil, fmt.Errorf("%w: unknown column %q for entity %s", utils.ErrValidation, key, entity)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", key, len(args)+1))
		args = append(args, payload[key])
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s;", rel.table, strings.Join(conditions, " AND "))
	return query, args, nil
}

// coercePayload resolves timestamp literals with the request's timezone
// offset before the values are bound.
func coercePayload(ctx context.Context, entity string, payload map[string]any) (map[string]any, error) {
	rel, err := lookupRelation(entity)
	if err != nil {
		return nil, err
	}
	if len(rel.timestamps) == 0 {
		return payload, nil
	}

	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if rel.timestamps[key] {
			if literal, ok := value.(string); ok {
				t, err := utils.ParseClientTime(ctx, literal)
				if err != nil {
					return nil, err
				}
				out[key] = t
				continue
			}
		}
		out[key] = value
	}
	return out, nil
}

// Gateway executes allow-listed generic actions against the store. It is the
// only path for plain entity CRUD; the booking flows compose its single-
// statement semantics with saga compensation.
type Gateway struct {
	storage *Storage
}

func NewGateway(storage *Storage) *Gateway {
	return &Gateway{storage: storage}
}

func (g *Gateway) List(ctx context.Context, entity string) ([]map[string]any, error) {
	query, err := buildList(entity)
	if err != nil {
		return nil, err
	}

	rows, err := g.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	fields := rows.FieldDescriptions()
	records := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fields))
		for i, f := range fields {
			record[string(f.Name)] = values[i]
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (g *Gateway) Insert(ctx context.Context, entity string, payload map[string]any) (int, error) {
	payload, err := coercePayload(ctx, entity, payload)
	if err != nil {
		return 0, err
	}
	query, args, returning, err := buildInsert(entity, payload)
	if err != nil {
		return 0, err
	}

	if !returning {
		_, err := g.storage.pool.Exec(ctx, query, args...)
		return 0, err
	}

	var id int
	if err := g.storage.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (g *Gateway) Update(ctx context.Context, entity string, payload map[string]any) error {
	payload, err := coercePayload(ctx, entity, payload)
	if err != nil {
		return err
	}
	query, args, err := buildUpdate(entity, payload)
	if err != nil {
		return err
	}
	_, err = g.storage.pool.Exec(ctx, query, args...)
	return err
}

func (g *Gateway) Delete(ctx context.Context, entity string, payload map[string]any) error {
	query, args, err := buildDelete(entity, payload)
	if err != nil {
		return err
	}
	_, err = g.storage.pool.Exec(ctx, query, args...)
	return err
}

// ModuleOptions enumerates the selectable major/minor entries, pre-joined
// through the administrator-maintained association table.
func (g *Gateway) ModuleOptions(ctx context.Context) ([]domain.ModuleOption, error) {
	const query = `
		SELECT m.id, m.name, 'majeur' AS module_role
		FROM modules m
		JOIN module_associations a ON a.major_module_id = m.id
		UNION
		SELECT m.id, m.name, 'mineur' AS module_role
		FROM modules m
		JOIN module_associations a ON a.minor_module_id = m.id
		ORDER BY module_role, name;
	`

	rows, err := g.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	var options []domain.ModuleOption
	for rows.Next() {
		var o domain.ModuleOption
		if err := rows.Scan(&o.ModuleID, &o.Name, &o.Role); err != nil {
			return nil, err
		}
		options = append(options, o)
	}

	return options, nil
}
