package adapters

import (
	"encoding/json"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/tangentlab/switchyard/pkg/types"
)

// codexAdapter renders the codex pair: ~/.codex/auth.json (credentials) and
// ~/.codex/config.toml (structured settings). The canonical blob is
// {"auth": {...}, "config": {...}}; the config section is a JSON mirror of
// the TOML document.
type codexAdapter struct{}

func (codexAdapter) App() types.AppType { return types.AppCodex }

func (codexAdapter) Roles() []types.FileRole {
	return []types.FileRole{types.RoleAuth, types.RoleConfig}
}

func (codexAdapter) Render(config json.RawMessage) (map[types.FileRole][]byte, error) {
	authRaw, err := decodeSection(config, "auth")
	if err != nil {
		return nil, err
	}
	auth, err := canonicalJSON(authRaw)
	if err != nil {
		return nil, fmt.Errorf("codex auth: %w", err)
	}

	cfgRaw, err := decodeSection(config, "config")
	if err != nil {
		return nil, err
	}
	cfg, err := renderTOML(cfgRaw)
	if err != nil {
		return nil, fmt.Errorf("codex config: %w", err)
	}

	return map[types.FileRole][]byte{
		types.RoleAuth:   auth,
		types.RoleConfig: cfg,
	}, nil
}

func (codexAdapter) Parse(files map[types.FileRole][]byte) (json.RawMessage, error) {
	blob := map[string]any{}

	if auth, ok := files[types.RoleAuth]; ok {
		v, err := parseJSONValue(auth)
		if err != nil {
			return nil, fmt.Errorf("codex auth: %w", err)
		}
		blob["auth"] = v
	}
	if cfg, ok := files[types.RoleConfig]; ok {
		var v map[string]any
		if err := toml.Unmarshal(cfg, &v); err != nil {
			return nil, fmt.Errorf("%w: codex config: %v", types.ErrParse, err)
		}
		blob["config"] = v
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: no codex files to parse", types.ErrParse)
	}
	return json.Marshal(blob)
}

// renderTOML encodes a JSON object as a TOML document. go-toml emits table
// keys in sorted order, keeping the output deterministic.
func renderTOML(raw json.RawMessage) ([]byte, error) {
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	out, err := toml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return out, nil
}
