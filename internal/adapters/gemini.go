package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/tangentlab/switchyard/pkg/types"
)

// geminiAdapter renders the gemini pair: ~/.gemini/.env (API credentials as
// KEY=value lines) and ~/.gemini/settings.json. The canonical blob is
// {"env": {...}, "settings": {...}} where env values are strings.
type geminiAdapter struct{}

func (geminiAdapter) App() types.AppType { return types.AppGemini }

func (geminiAdapter) Roles() []types.FileRole {
	return []types.FileRole{types.RoleEnv, types.RoleSettings}
}

func (geminiAdapter) Render(config json.RawMessage) (map[types.FileRole][]byte, error) {
	envRaw, err := decodeSection(config, "env")
	if err != nil {
		return nil, err
	}
	env, err := renderEnv(envRaw)
	if err != nil {
		return nil, fmt.Errorf("gemini env: %w", err)
	}

	settingsRaw, err := decodeSection(config, "settings")
	if err != nil {
		return nil, err
	}
	settings, err := canonicalJSON(settingsRaw)
	if err != nil {
		return nil, fmt.Errorf("gemini settings: %w", err)
	}

	return map[types.FileRole][]byte{
		types.RoleEnv:      env,
		types.RoleSettings: settings,
	}, nil
}

func (geminiAdapter) Parse(files map[types.FileRole][]byte) (json.RawMessage, error) {
	blob := map[string]any{}

	if env, ok := files[types.RoleEnv]; ok {
		vars, err := godotenv.Unmarshal(string(env))
		if err != nil {
			return nil, fmt.Errorf("%w: gemini env: %v", types.ErrParse, err)
		}
		blob["env"] = vars
	}
	if settings, ok := files[types.RoleSettings]; ok {
		v, err := parseJSONValue(settings)
		if err != nil {
			return nil, fmt.Errorf("gemini settings: %w", err)
		}
		blob["settings"] = v
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: no gemini files to parse", types.ErrParse)
	}
	return json.Marshal(blob)
}

// renderEnv encodes a JSON object of string values as dotenv lines. godotenv
// sorts keys when marshalling, so output is deterministic.
func renderEnv(raw json.RawMessage) ([]byte, error) {
	var vars map[string]string
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("%w: env values must be strings: %v", types.ErrParse, err)
	}
	out, err := godotenv.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return []byte(out + "\n"), nil
}
