package types

import "time"

// ChangeEventType classifies a detected drift between SSOT state and a live
// external file.
type ChangeEventType string

const (
	// ChangeExternalModified: live file content differs from the hash last
	// written by the engine.
	ChangeExternalModified ChangeEventType = "externalModified"
	// ChangeExternalDeleted: a file the engine wrote no longer exists.
	ChangeExternalDeleted ChangeEventType = "externalDeleted"
	// ChangeExternalAdded: an unmanaged file appeared in a managed directory.
	ChangeExternalAdded ChangeEventType = "externalAdded"
	// ChangeExternalConflict: the same identity diverged differently across
	// apps, so no single external version can be taken as the new truth.
	ChangeExternalConflict ChangeEventType = "externalConflict"
)

// ChangeEvent records one unit of detected drift. Events are surfaced to the
// caller; resolution is a separate explicit operation.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Type       ChangeEventType `json:"type"`
	App        AppType         `json:"app,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Path       string          `json:"path"`
	Detail     string          `json:"detail,omitempty"`
	DetectedAt time.Time       `json:"detectedAt"`
}

// Resolution selects how a drift event is settled.
type Resolution string

const (
	// ResolutionKeepLocal re-pushes SSOT state over the external file.
	ResolutionKeepLocal Resolution = "keepLocal"
	// ResolutionAcceptExternal imports the external content into the SSOT.
	ResolutionAcceptExternal Resolution = "acceptExternal"
)
