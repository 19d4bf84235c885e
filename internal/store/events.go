package store

import (
	"database/sql"
	"fmt"

	"github.com/tangentlab/switchyard/pkg/types"
)

// RecordChangeEvents persists detected drift events, assigning IDs to any
// event without one. Events from a fresh detection replace previously
// recorded, still-unresolved events for the same paths.
func (s *Store) RecordChangeEvents(events []types.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.write(func(tx *sql.Tx) error {
		for i := range events {
			if events[i].ID == "" {
				events[i].ID = newID()
			}
			if _, err := tx.Exec("DELETE FROM change_events WHERE path = ?", events[i].Path); err != nil {
				return fmt.Errorf("replace event for %s: %w", events[i].Path, err)
			}
			_, err := tx.Exec(
				"INSERT INTO change_events (id, type, app, resource_id, path, detail, detected_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				events[i].ID, string(events[i].Type), string(events[i].App),
				events[i].ResourceID, events[i].Path, events[i].Detail,
				events[i].DetectedAt.UTC().Format(timeFormat),
			)
			if err != nil {
				return fmt.Errorf("record event: %w", err)
			}
		}
		return nil
	})
}

// ListChangeEvents returns unresolved drift events, newest first.
func (s *Store) ListChangeEvents() ([]types.ChangeEvent, error) {
	var events []types.ChangeEvent
	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT id, type, app, resource_id, path, detail, detected_at FROM change_events ORDER BY detected_at DESC")
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e        types.ChangeEvent
				typ      string
				app      sql.NullString
				resource sql.NullString
				detail   sql.NullString
				detected string
			)
			if err := rows.Scan(&e.ID, &typ, &app, &resource, &e.Path, &detail, &detected); err != nil {
				return fmt.Errorf("scan event: %w", err)
			}
			e.Type = types.ChangeEventType(typ)
			e.App = types.AppType(app.String)
			e.ResourceID = resource.String
			e.Detail = detail.String
			e.DetectedAt = parseTime(detected)
			events = append(events, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetChangeEvent returns one recorded event by ID.
func (s *Store) GetChangeEvent(id string) (*types.ChangeEvent, error) {
	events, err := s.ListChangeEvents()
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == id {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("%w: change event %s", types.ErrNotFound, id)
}

// ResolveChangeEvent removes a recorded event once it has been settled.
func (s *Store) ResolveChangeEvent(id string) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM change_events WHERE id = ?", id); err != nil {
			return fmt.Errorf("resolve event: %w", err)
		}
		return nil
	})
}
