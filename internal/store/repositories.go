package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

const repositoryColumns = "owner, name, branch, enabled, builtin, descriptions, added_at"

// UpsertRepository inserts a repository or updates its branch, builtin flag,
// and descriptions. The enabled flag of an existing row is preserved so a
// manifest reconcile never re-enables a repository the user disabled.
func (s *Store) UpsertRepository(r types.Repository) error {
	if err := r.Validate(); err != nil {
		return err
	}
	descs, err := marshalJSON(r.Descriptions)
	if err != nil {
		return err
	}
	if r.AddedAt.IsZero() {
		r.AddedAt = time.Now().UTC()
	}
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO repositories (owner, name, branch, enabled, builtin, descriptions, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner, name) DO UPDATE SET
				branch = excluded.branch,
				builtin = excluded.builtin,
				descriptions = excluded.descriptions`,
			r.Owner, r.Name, r.Branch, boolInt(r.Enabled), boolInt(r.Builtin), descs, r.AddedAt.Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("upsert repository %s: %w", r.Slug(), err)
		}
		return nil
	})
}

// GetRepository returns one repository by owner and name.
func (s *Store) GetRepository(owner, name string) (*types.Repository, error) {
	var repo *types.Repository
	err := s.read(func(db *sql.DB) error {
		row := db.QueryRow("SELECT "+repositoryColumns+" FROM repositories WHERE owner = ? AND name = ?", owner, name)
		var err error
		repo, err = scanRepository(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// ListRepositories returns all repositories ordered by owner and name.
func (s *Store) ListRepositories() ([]types.Repository, error) {
	var repos []types.Repository
	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT " + repositoryColumns + " FROM repositories ORDER BY owner, name")
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRepository(rows)
			if err != nil {
				return err
			}
			repos = append(repos, *r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// SetRepositoryEnabled flips the enabled flag of a repository.
func (s *Store) SetRepositoryEnabled(owner, name string, enabled bool) error {
	return s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE repositories SET enabled = ? WHERE owner = ? AND name = ?", boolInt(enabled), owner, name)
		if err != nil {
			return fmt.Errorf("update repository: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: repository %s/%s", types.ErrNotFound, owner, name)
		}
		return nil
	})
}

// DeleteRepository removes a user-added repository. Builtin repositories
// cannot be deleted, only disabled.
func (s *Store) DeleteRepository(owner, name string) error {
	return s.write(func(tx *sql.Tx) error {
		var builtin int
		err := tx.QueryRow("SELECT builtin FROM repositories WHERE owner = ? AND name = ?", owner, name).Scan(&builtin)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: repository %s/%s", types.ErrNotFound, owner, name)
		}
		if err != nil {
			return fmt.Errorf("look up repository: %w", err)
		}
		if builtin != 0 {
			return fmt.Errorf("%w: %s/%s", types.ErrBuiltinRepo, owner, name)
		}
		if _, err := tx.Exec("DELETE FROM repositories WHERE owner = ? AND name = ?", owner, name); err != nil {
			return fmt.Errorf("delete repository: %w", err)
		}
		return nil
	})
}

func scanRepository(row rowScanner) (*types.Repository, error) {
	var (
		r       types.Repository
		enabled int
		builtin int
		descs   sql.NullString
		added   string
	)
	err := row.Scan(&r.Owner, &r.Name, &r.Branch, &enabled, &builtin, &descs, &added)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: repository", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan repository: %w", err)
	}
	r.Enabled = enabled != 0
	r.Builtin = builtin != 0
	if descs.Valid && descs.String != "" && descs.String != "null" {
		if err := json.Unmarshal([]byte(descs.String), &r.Descriptions); err != nil {
			return nil, fmt.Errorf("decode repository descriptions: %w", err)
		}
	}
	r.AddedAt = parseTime(added)
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
