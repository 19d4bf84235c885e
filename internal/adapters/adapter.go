// Package adapters translates canonical provider records to and from the
// native config file formats of each managed app.
//
// Rendering is deterministic and idempotent: re-encoding an unchanged
// canonical record yields byte-identical output, which backup diffing and
// drift detection both rely on. Parsing reads externally modified files for
// import and drift resolution and fails with ErrParse on malformed input.
package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tangentlab/switchyard/pkg/types"
)

// Adapter is the per-app codec. The set of implementations is closed;
// selection goes through the For lookup table.
type Adapter interface {
	App() types.AppType

	// Roles lists the live config files this adapter renders, in stable
	// order.
	Roles() []types.FileRole

	// Render encodes a canonical provider config into native file bytes,
	// one entry per role.
	Render(config json.RawMessage) (map[types.FileRole][]byte, error)

	// Parse decodes native file bytes back into a canonical provider
	// config. Missing roles are tolerated; malformed content is ErrParse.
	Parse(files map[types.FileRole][]byte) (json.RawMessage, error)
}

// registry is the closed lookup table keyed by app.
var registry = map[types.AppType]Adapter{
	types.AppClaude: claudeAdapter{},
	types.AppCodex:  codexAdapter{},
	types.AppGemini: geminiAdapter{},
}

// For returns the adapter of one app.
func For(app types.AppType) (Adapter, error) {
	a, ok := registry[app]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for app %q", types.ErrValidation, app)
	}
	return a, nil
}

// All returns every adapter in AllApps order.
func All() []Adapter {
	out := make([]Adapter, 0, len(registry))
	for _, app := range types.AllApps {
		out = append(out, registry[app])
	}
	return out
}

// canonicalJSON re-encodes raw JSON with sorted keys, two-space indentation,
// and a trailing newline. json.Number preserves numeric literals exactly so
// a decode/encode cycle is stable.
func canonicalJSON(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return append(out, '\n'), nil
}

// parseJSONValue decodes raw JSON into a generic value, preserving numeric
// literals, wrapping failures as ErrParse.
func parseJSONValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return v, nil
}

// decodeSection extracts one top-level object section from a canonical
// provider config blob.
func decodeSection(config json.RawMessage, section string) (json.RawMessage, error) {
	var blob map[string]json.RawMessage
	if err := json.Unmarshal(config, &blob); err != nil {
		return nil, fmt.Errorf("%w: provider config: %v", types.ErrParse, err)
	}
	raw, ok := blob[section]
	if !ok {
		return json.RawMessage("{}"), nil
	}
	return raw, nil
}
