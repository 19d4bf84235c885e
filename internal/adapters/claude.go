package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/tangentlab/switchyard/pkg/types"
)

// claudeAdapter renders ~/.claude/settings.json. The canonical config blob
// is {"settings": {...}} where the settings object is written verbatim,
// canonicalized.
type claudeAdapter struct{}

func (claudeAdapter) App() types.AppType { return types.AppClaude }

func (claudeAdapter) Roles() []types.FileRole {
	return []types.FileRole{types.RoleSettings}
}

func (claudeAdapter) Render(config json.RawMessage) (map[types.FileRole][]byte, error) {
	settings, err := decodeSection(config, "settings")
	if err != nil {
		return nil, err
	}
	out, err := canonicalJSON(settings)
	if err != nil {
		return nil, err
	}
	return map[types.FileRole][]byte{types.RoleSettings: out}, nil
}

func (claudeAdapter) Parse(files map[types.FileRole][]byte) (json.RawMessage, error) {
	settings, ok := files[types.RoleSettings]
	if !ok {
		return nil, fmt.Errorf("%w: claude settings file missing", types.ErrParse)
	}
	v, err := parseJSONValue(settings)
	if err != nil {
		return nil, fmt.Errorf("claude settings: %w", err)
	}
	return json.Marshal(map[string]any{"settings": v})
}
