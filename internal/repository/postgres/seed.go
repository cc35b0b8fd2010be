package postgres

import (
	"context"
	"embed"
	"encoding/csv"
	"fmt"
	"strconv"
)

//go:embed seed/*.csv
var seedFiles embed.FS

// SeedDatabase loads the reference data (rooms, modules, instructors,
// students) on an empty database. It is a no-op once instructors exist.
func (s *Storage) SeedDatabase(ctx context.Context) error {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM instructors").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check instructors: %w", err)
	}
	if count > 0 {
		return nil
	}

	rooms, err := readSeed("seed/rooms.csv")
	if err != nil {
		return err
	}
	for _, rec := range rooms {
		capacity, err := strconv.Atoi(rec[2])
		if err != nil {
			return fmt.Errorf("bad room capacity %q: %w", rec[2], err)
		}
		_, err = s.pool.Exec(ctx,
			"INSERT INTO rooms (building, room_number, capacity) VALUES ($1, $2, $3)",
			rec[0], rec[1], capacity)
		if err != nil {
			return err
		}
	}

	modules, err := readSeed("seed/modules.csv")
	if err != nil {
		return err
	}
	for _, rec := range modules {
		_, err = s.pool.Exec(ctx, "INSERT INTO modules (name) VALUES ($1)", rec[0])
		if err != nil {
			return err
		}
	}

	instructors, err := readSeed("seed/instructors.csv")
	if err != nil {
		return err
	}
	for _, rec := range instructors {
		referent := rec[2] == "1"
		_, err = s.pool.Exec(ctx,
			"INSERT INTO instructors (last_name, first_name, referent, email) VALUES ($1, $2, $3, $4)",
			rec[0], rec[1], referent, rec[3])
		if err != nil {
			return err
		}
	}

	students, err := readSeed("seed/students.csv")
	if err != nil {
		return err
	}
	for _, rec := range students {
		_, err = s.pool.Exec(ctx,
			"INSERT INTO students (last_name, first_name, email, track) VALUES ($1, $2, $3, $4)",
			rec[0], rec[1], rec[2], rec[3])
		if err != nil {
			return err
		}
	}

	return nil
}

func readSeed(name string) ([][]string, error) {
	f, err := seedFiles.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil // skip header
}
