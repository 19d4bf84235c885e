package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

const resourceColumns = `kind, namespace, filename, scope, project_path, description,
	repo_owner, repo_name, repo_branch, apps, content, file_hash, installed_at, last_synced`

// InstallGlobal installs (or updates) the global copy of a resource. Any
// project copies of the same identity are removed in the same transaction,
// so the scope-exclusivity invariant holds at every observable point.
// Returns the project paths whose copies were displaced.
func (s *Store) InstallGlobal(res *types.Resource) ([]string, error) {
	res.Scope = types.GlobalScope()
	if err := validateResource(res); err != nil {
		return nil, err
	}

	var displaced []string
	err := s.write(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			"SELECT project_path FROM resources WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ?",
			string(res.Kind), res.Namespace, res.Filename, string(types.ScopeProject),
		)
		if err != nil {
			return fmt.Errorf("list project copies: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			displaced = append(displaced, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.Exec(
			"DELETE FROM resources WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ?",
			string(res.Kind), res.Namespace, res.Filename, string(types.ScopeProject),
		)
		if err != nil {
			return fmt.Errorf("remove project copies: %w", err)
		}
		return upsertResource(tx, res)
	})
	if err != nil {
		return nil, err
	}
	return displaced, nil
}

// InstallProject installs (or updates) a project-scoped copy. It fails with
// ErrConflict, mutating nothing, when a global copy of the same identity
// exists; other project copies may coexist.
func (s *Store) InstallProject(res *types.Resource, projectPath string) error {
	res.Scope = types.ProjectScope(projectPath)
	if err := validateResource(res); err != nil {
		return err
	}

	return s.write(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow(
			"SELECT 1 FROM resources WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ?",
			string(res.Kind), res.Namespace, res.Filename, string(types.ScopeGlobal),
		).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s is installed globally; the global install shadows all projects", types.ErrConflict, res.ID())
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check global copy: %w", err)
		}
		return upsertResource(tx, res)
	})
}

// Uninstall removes the copy of an identity at the given scope. Removing an
// absent copy is a no-op, not an error.
func (s *Store) Uninstall(id types.Identity, scope types.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"DELETE FROM resources WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
			string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
		)
		if err != nil {
			return fmt.Errorf("uninstall %s: %w", id.ID(), err)
		}
		return nil
	})
}

// ResourceCopies returns every installed copy of an identity, global first.
func (s *Store) ResourceCopies(id types.Identity) ([]*types.Resource, error) {
	return s.queryResources(
		"WHERE kind = ? AND namespace = ? AND filename = ? ORDER BY scope DESC, project_path",
		string(id.Kind), id.Namespace, id.Filename,
	)
}

// GetResource returns the copy of an identity at one scope.
func (s *Store) GetResource(id types.Identity, scope types.Scope) (*types.Resource, error) {
	list, err := s.queryResources(
		"WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
		string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
	)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: resource %s (%s)", types.ErrNotFound, id.ID(), scope)
	}
	return list[0], nil
}

// ListResources returns every installed copy, ordered by kind, namespace,
// and filename.
func (s *Store) ListResources() ([]*types.Resource, error) {
	return s.queryResources("ORDER BY kind, namespace, filename, scope, project_path")
}

// ResourcesInNamespace returns the installed copies referencing a namespace.
func (s *Store) ResourcesInNamespace(namespace string) ([]*types.Resource, error) {
	return s.queryResources("WHERE namespace = ? ORDER BY kind, filename", namespace)
}

// NamespaceCount holds the aggregation of one namespace over resources.
type NamespaceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Namespaces returns the namespace aggregation: explicitly created
// namespaces plus those implied by installed resources, with resource
// counts. The root namespace appears as "".
func (s *Store) Namespaces() ([]NamespaceCount, error) {
	counts := map[string]int{}
	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT namespace, COUNT(*) FROM resources GROUP BY namespace")
		if err != nil {
			return fmt.Errorf("aggregate namespaces: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ns string
			var n int
			if err := rows.Scan(&ns, &n); err != nil {
				return err
			}
			counts[ns] = n
		}
		if err := rows.Err(); err != nil {
			return err
		}

		nsRows, err := db.Query("SELECT name FROM namespaces")
		if err != nil {
			return fmt.Errorf("list namespaces: %w", err)
		}
		defer nsRows.Close()
		for nsRows.Next() {
			var name string
			if err := nsRows.Scan(&name); err != nil {
				return err
			}
			if _, ok := counts[name]; !ok {
				counts[name] = 0
			}
		}
		return nsRows.Err()
	})
	if err != nil {
		return nil, err
	}

	out := make([]NamespaceCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamespaceCount{Name: name, Count: n})
	}
	sortNamespaces(out)
	return out, nil
}

// CreateNamespace records an explicitly created namespace. Fails with
// ErrConflict when the namespace already exists, either as a row or implied
// by an installed resource.
func (s *Store) CreateNamespace(name string) error {
	return s.write(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow("SELECT 1 FROM namespaces WHERE repo_key = '' AND name = ?", name).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: namespace %q already exists", types.ErrConflict, name)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check namespace: %w", err)
		}
		err = tx.QueryRow("SELECT 1 FROM resources WHERE namespace = ? LIMIT 1", name).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: namespace %q already exists", types.ErrConflict, name)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check namespace resources: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO namespaces (repo_key, name, created_at) VALUES ('', ?, ?)",
			name, time.Now().UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("create namespace: %w", err)
		}
		return nil
	})
}

// DeleteNamespace removes a namespace. Fails with ErrNamespaceNotEmpty when
// any resource still references it.
func (s *Store) DeleteNamespace(name string) error {
	return s.write(func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow("SELECT COUNT(*) FROM resources WHERE namespace = ?", name).Scan(&n); err != nil {
			return fmt.Errorf("count namespace resources: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: namespace %q holds %d resource(s)", types.ErrNamespaceNotEmpty, name, n)
		}
		res, err := tx.Exec("DELETE FROM namespaces WHERE repo_key = '' AND name = ?", name)
		if err != nil {
			return fmt.Errorf("delete namespace: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: namespace %q", types.ErrNotFound, name)
		}
		return nil
	})
}

// MarkSynced records a successful sync of one copy to one app.
func (s *Store) MarkSynced(id types.Identity, scope types.Scope, app types.AppType, at time.Time) error {
	return s.write(func(tx *sql.Tx) error {
		var raw sql.NullString
		err := tx.QueryRow(
			"SELECT last_synced FROM resources WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
			string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
		).Scan(&raw)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: resource %s", types.ErrNotFound, id.ID())
		}
		if err != nil {
			return fmt.Errorf("read sync state: %w", err)
		}

		synced := map[types.AppType]time.Time{}
		if raw.Valid && raw.String != "" && raw.String != "null" {
			if err := json.Unmarshal([]byte(raw.String), &synced); err != nil {
				return fmt.Errorf("decode sync state: %w", err)
			}
		}
		synced[app] = at.UTC()

		encoded, err := marshalJSON(synced)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"UPDATE resources SET last_synced = ? WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
			encoded, string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
		)
		if err != nil {
			return fmt.Errorf("update sync state: %w", err)
		}
		return nil
	})
}

// UpdateResourceContent replaces the content and hash of an installed copy;
// the sync state is cleared so the next sync pushes the new content.
func (s *Store) UpdateResourceContent(id types.Identity, scope types.Scope, content []byte, hash string) error {
	return s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE resources SET content = ?, file_hash = ?, last_synced = NULL WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
			content, hash, string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
		)
		if err != nil {
			return fmt.Errorf("update content: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: resource %s", types.ErrNotFound, id.ID())
		}
		return nil
	})
}

// SetResourceApps updates the per-app enabled flags of an installed copy.
func (s *Store) SetResourceApps(id types.Identity, scope types.Scope, apps map[types.AppType]bool) error {
	encoded, err := marshalJSON(apps)
	if err != nil {
		return err
	}
	return s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE resources SET apps = ? WHERE kind = ? AND namespace = ? AND filename = ? AND scope = ? AND project_path = ?",
			encoded, string(id.Kind), id.Namespace, id.Filename, string(scope.Kind), scope.ProjectPath,
		)
		if err != nil {
			return fmt.Errorf("update apps: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: resource %s", types.ErrNotFound, id.ID())
		}
		return nil
	})
}

func validateResource(res *types.Resource) error {
	if !res.Kind.Valid() {
		return fmt.Errorf("%w: unknown resource kind %q", types.ErrValidation, res.Kind)
	}
	if res.Filename == "" {
		return fmt.Errorf("%w: resource filename is required", types.ErrValidation)
	}
	if err := res.Scope.Validate(); err != nil {
		return err
	}
	if res.Apps == nil {
		res.Apps = map[types.AppType]bool{types.AppClaude: true}
	}
	if res.InstalledAt.IsZero() {
		res.InstalledAt = time.Now().UTC()
	}
	return nil
}

func upsertResource(tx *sql.Tx, res *types.Resource) error {
	apps, err := marshalJSON(res.Apps)
	if err != nil {
		return err
	}
	var synced any
	if len(res.LastSynced) > 0 {
		synced, err = marshalJSON(res.LastSynced)
		if err != nil {
			return err
		}
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO resources
			(kind, namespace, filename, scope, project_path, description,
			 repo_owner, repo_name, repo_branch, apps, content, file_hash, installed_at, last_synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(res.Kind), res.Namespace, res.Filename, string(res.Scope.Kind), res.Scope.ProjectPath,
		res.Description, res.RepoOwner, res.RepoName, res.RepoBranch,
		apps, res.Content, res.FileHash, res.InstalledAt.Format(timeFormat), synced,
	)
	if err != nil {
		return fmt.Errorf("upsert resource %s: %w", res.ID(), err)
	}
	return nil
}

func (s *Store) queryResources(clause string, args ...any) ([]*types.Resource, error) {
	var out []*types.Resource
	err := s.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT "+resourceColumns+" FROM resources "+clause, args...)
		if err != nil {
			return fmt.Errorf("query resources: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanResource(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanResource(row rowScanner) (*types.Resource, error) {
	var (
		r           types.Resource
		kind        string
		scopeKind   string
		projectPath string
		desc        sql.NullString
		repoOwner   sql.NullString
		repoName    sql.NullString
		repoBranch  sql.NullString
		apps        string
		installedAt string
		lastSynced  sql.NullString
	)
	err := row.Scan(&kind, &r.Namespace, &r.Filename, &scopeKind, &projectPath, &desc,
		&repoOwner, &repoName, &repoBranch, &apps, &r.Content, &r.FileHash, &installedAt, &lastSynced)
	if err != nil {
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	r.Kind = types.ResourceKind(kind)
	r.Scope = types.Scope{Kind: types.ScopeKind(scopeKind), ProjectPath: projectPath}
	r.Description = desc.String
	r.RepoOwner = repoOwner.String
	r.RepoName = repoName.String
	r.RepoBranch = repoBranch.String
	if err := json.Unmarshal([]byte(apps), &r.Apps); err != nil {
		return nil, fmt.Errorf("decode resource apps: %w", err)
	}
	r.InstalledAt = parseTime(installedAt)
	if lastSynced.Valid && lastSynced.String != "" && lastSynced.String != "null" {
		if err := json.Unmarshal([]byte(lastSynced.String), &r.LastSynced); err != nil {
			return nil, fmt.Errorf("decode resource sync state: %w", err)
		}
	}
	return &r, nil
}

func sortNamespaces(list []NamespaceCount) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
