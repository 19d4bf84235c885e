package types

import (
	"encoding/json"
	"time"
)

// Provider is a named configuration profile for one app. The Config blob is
// the canonical record the app's adapter renders into that app's live
// config files; its shape is adapter-specific JSON.
//
// At most one provider per app is active at a time. Activation changes go
// through the store's SwitchActiveProvider so that deactivating the previous
// provider and activating the next one is a single transaction.
type Provider struct {
	ID          string          `json:"id"`
	App         AppType         `json:"app"`
	DisplayName string          `json:"displayName"`
	Config      json.RawMessage `json:"config"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Validate checks the fields a caller must supply before saving.
func (p *Provider) Validate() error {
	if !p.App.Valid() {
		return ErrValidation
	}
	if p.DisplayName == "" {
		return ErrValidation
	}
	if len(p.Config) == 0 {
		return ErrValidation
	}
	if !json.Valid(p.Config) {
		return ErrValidation
	}
	return nil
}
