package types

import (
	"fmt"
	"time"
)

// Repository identifies a remote source of discoverable resources.
// Builtin repositories come from the packaged manifest and cannot be
// deleted, only disabled.
type Repository struct {
	Owner        string            `json:"owner"`
	Name         string            `json:"name"`
	Branch       string            `json:"branch"`
	Enabled      bool              `json:"enabled"`
	Builtin      bool              `json:"builtin"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
	AddedAt      time.Time         `json:"addedAt"`
}

// Key returns the cache and identity key "owner/name@branch".
func (r Repository) Key() string {
	return fmt.Sprintf("%s/%s@%s", r.Owner, r.Name, r.Branch)
}

// Slug returns "owner/name" without the branch.
func (r Repository) Slug() string {
	return r.Owner + "/" + r.Name
}

// Description returns the localized description for lang, falling back to
// English and then to any available language.
func (r Repository) Description(lang string) string {
	if d, ok := r.Descriptions[lang]; ok && d != "" {
		return d
	}
	if d, ok := r.Descriptions["en"]; ok && d != "" {
		return d
	}
	for _, d := range r.Descriptions {
		if d != "" {
			return d
		}
	}
	return ""
}

// Validate checks the identifying fields.
func (r Repository) Validate() error {
	if r.Owner == "" || r.Name == "" {
		return fmt.Errorf("%w: repository owner and name are required", ErrValidation)
	}
	if r.Branch == "" {
		return fmt.Errorf("%w: repository branch is required", ErrValidation)
	}
	return nil
}
