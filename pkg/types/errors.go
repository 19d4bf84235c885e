package types

import "errors"

// Standard errors returned by the engine. Callers match them with errors.Is;
// wrapped messages carry the affected app, resource, or path.
var (
	// ErrNotFound indicates a missing provider, repository, resource,
	// namespace, or project.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input such as an invalid namespace
	// name or an unknown app. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a scope-exclusivity or duplication violation.
	// The store is unchanged when it is returned.
	ErrConflict = errors.New("conflict")

	// ErrNamespaceNotEmpty blocks deletion of a namespace that still has
	// resources referencing it.
	ErrNamespaceNotEmpty = errors.New("namespace not empty")

	// ErrParse indicates a malformed external file encountered during
	// import or drift resolution.
	ErrParse = errors.New("parse error")

	// ErrRemote indicates a discovery fetch failure.
	ErrRemote = errors.New("remote error")

	// ErrStoreClosed is returned by store operations after Close.
	ErrStoreClosed = errors.New("store is closed")

	// ErrBuiltinRepo blocks deletion of a packaged builtin repository.
	ErrBuiltinRepo = errors.New("builtin repository cannot be deleted")

	// ErrLocked indicates another engine instance holds the data-dir lock.
	ErrLocked = errors.New("data directory is locked by another instance")
)
