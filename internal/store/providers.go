package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

const providerColumns = "id, app, display_name, config, active, created_at"

// SaveProvider inserts or updates a provider. An empty ID means create; the
// generated ID is written back to p. New providers start inactive;
// activation only happens through SwitchActiveProvider.
func (s *Store) SaveProvider(p *types.Provider) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: invalid provider", err)
	}
	create := p.ID == ""
	if create {
		p.ID = newID()
		p.Active = false
		p.CreatedAt = time.Now().UTC()
	}

	return s.write(func(tx *sql.Tx) error {
		if create {
			_, err := tx.Exec(
				"INSERT INTO providers (id, app, display_name, config, active, created_at) VALUES (?, ?, ?, ?, 0, ?)",
				p.ID, string(p.App), p.DisplayName, string(p.Config), p.CreatedAt.Format(timeFormat),
			)
			if err != nil {
				return fmt.Errorf("insert provider: %w", err)
			}
			return nil
		}

		res, err := tx.Exec(
			"UPDATE providers SET display_name = ?, config = ? WHERE id = ? AND app = ?",
			p.DisplayName, string(p.Config), p.ID, string(p.App),
		)
		if err != nil {
			return fmt.Errorf("update provider: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: provider %s", types.ErrNotFound, p.ID)
		}
		return nil
	})
}

// GetProvider returns one provider by ID.
func (s *Store) GetProvider(id string) (*types.Provider, error) {
	var p *types.Provider
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow("SELECT "+providerColumns+" FROM providers WHERE id = ?", id)
		var err error
		p, err = scanProvider(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProviders returns providers for one app, or all providers when app is
// empty, ordered by creation time.
func (s *Store) ListProviders(app types.AppType) ([]*types.Provider, error) {
	var providers []*types.Provider
	err := s.read(func(db *sql.DB) error {
		query := "SELECT " + providerColumns + " FROM providers ORDER BY created_at"
		args := []any{}
		if app != "" {
			query = "SELECT " + providerColumns + " FROM providers WHERE app = ? ORDER BY created_at"
			args = append(args, string(app))
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("list providers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProvider(rows)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return providers, nil
}

// ActiveProvider returns the active provider of an app, or ErrNotFound when
// none is active.
func (s *Store) ActiveProvider(app types.AppType) (*types.Provider, error) {
	var p *types.Provider
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow("SELECT "+providerColumns+" FROM providers WHERE app = ? AND active = 1", string(app))
		var err error
		p, err = scanProvider(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProvider removes a provider. Deleting an absent provider is a no-op.
func (s *Store) DeleteProvider(id string) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM providers WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete provider: %w", err)
		}
		return nil
	})
}

// SwitchActiveProvider deactivates the currently active provider of app and
// activates the requested one as a single transaction: either both sides
// change or neither does.
func (s *Store) SwitchActiveProvider(app types.AppType, id string) error {
	if !app.Valid() {
		return fmt.Errorf("%w: unknown app %q", types.ErrValidation, app)
	}
	return s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE providers SET active = 1 WHERE id = ? AND app = ?", id, string(app))
		if err != nil {
			return fmt.Errorf("activate provider: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: provider %s for app %s", types.ErrNotFound, id, app)
		}
		if _, err := tx.Exec("UPDATE providers SET active = 0 WHERE app = ? AND id != ?", string(app), id); err != nil {
			return fmt.Errorf("deactivate previous provider: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*types.Provider, error) {
	var (
		p         types.Provider
		app       string
		config    string
		active    int
		createdAt string
	)
	err := row.Scan(&p.ID, &app, &p.DisplayName, &config, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: provider", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan provider: %w", err)
	}
	p.App = types.AppType(app)
	p.Config = []byte(config)
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
