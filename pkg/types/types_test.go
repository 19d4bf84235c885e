package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		id        string
		namespace string
		filename  string
	}{
		{"commit", "", "commit"},
		{"sc/agent", "sc", "agent"},
		{"tools/git/commit", "tools/git", "commit"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := ParseIdentity(KindCommand, tt.id)
			assert.Equal(t, tt.namespace, got.Namespace)
			assert.Equal(t, tt.filename, got.Filename)
			assert.Equal(t, tt.id, got.ID())
		})
	}
}

func TestIdentityRelPath(t *testing.T) {
	id := Identity{Kind: KindCommand, Namespace: "sc", Filename: "agent"}
	assert.Equal(t, "sc/agent.md", id.RelPath())

	root := Identity{Kind: KindCommand, Filename: "commit"}
	assert.Equal(t, "commit.md", root.RelPath())
}

func TestScopeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"global", GlobalScope(), false},
		{"project", ProjectScope("/home/me/proj"), false},
		{"global with path", Scope{Kind: ScopeGlobal, ProjectPath: "/x"}, true},
		{"project without path", Scope{Kind: ScopeProject}, true},
		{"unknown kind", Scope{Kind: "local"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProviderValidate(t *testing.T) {
	p := &Provider{
		App:         AppClaude,
		DisplayName: "Anthropic Official",
		Config:      json.RawMessage(`{"settings":{}}`),
	}
	require.NoError(t, p.Validate())

	bad := &Provider{App: "cursor", DisplayName: "x", Config: json.RawMessage(`{}`)}
	assert.Error(t, bad.Validate())

	noConfig := &Provider{App: AppClaude, DisplayName: "x"}
	assert.Error(t, noConfig.Validate())
}

func TestRepositoryDescriptionFallback(t *testing.T) {
	r := Repository{
		Owner:  "octo",
		Name:   "toolkit",
		Branch: "main",
		Descriptions: map[string]string{
			"en": "Shared commands",
			"ja": "共有コマンド",
		},
	}
	assert.Equal(t, "共有コマンド", r.Description("ja"))
	assert.Equal(t, "Shared commands", r.Description("fr"))
	assert.Equal(t, "octo/toolkit@main", r.Key())
}

func TestParseApp(t *testing.T) {
	app, err := ParseApp("codex")
	require.NoError(t, err)
	assert.Equal(t, AppCodex, app)

	_, err = ParseApp("cursor")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseKindAcceptsDirForm(t *testing.T) {
	for _, s := range []string{"command", "commands"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, KindCommand, k)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{DataDir: "/tmp/sw"}
	c.ApplyDefaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultBackupKeep, c.BackupKeep)
	assert.Equal(t, 24*time.Hour, c.CacheTTL)
	assert.NotEmpty(t, c.BackupDir)

	empty := Config{}
	assert.ErrorIs(t, empty.Validate(), ErrValidation)
}
