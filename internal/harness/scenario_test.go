package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: parsed
description: all fields
fault_threshold: 2
offline: [b]
steps:
  - node: a
    method: post
    path: /users
    headers: {X-Replicated: "true"}
    no_auth: true
    body: {name: Ada}
    expect:
      status: 201
      body: {name: Ada}
    save: {user: external_id}
assertions:
  - {type: state, node: a, path: "/users/${user}", status: 200, expect: {name: Ada}}
  - {type: count, node: a, path: /users, count: 1}
  - {type: received, node: a, replicated: true, method: POST, count: 1}
`))
	require.NoError(t, err)

	assert.Equal(t, "parsed", sc.Name)
	require.NotNil(t, sc.FaultThreshold)
	assert.Equal(t, int64(2), *sc.FaultThreshold)
	assert.Equal(t, []string{"b"}, sc.Offline)

	require.Len(t, sc.Steps, 1)
	step := sc.Steps[0]
	assert.Equal(t, "true", step.Headers["X-Replicated"])
	assert.True(t, step.NoAuth)
	assert.Equal(t, map[string]any{"name": "Ada"}, step.Body)
	assert.Equal(t, 201, step.Expect.Status)
	assert.Equal(t, map[string]string{"user": "external_id"}, step.Save)

	require.Len(t, sc.Assertions, 3)
	require.NotNil(t, sc.Assertions[2].Replicated)
	assert.True(t, *sc.Assertions[2].Replicated)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "steps: [{node: a, method: GET, path: /users}]", "name is required"},
		{"no steps", "name: x", "has no steps"},
		{"unknown node", "name: x\nsteps: [{node: c, method: GET, path: /users}]", `unknown node "c"`},
		{"bad method", "name: x\nsteps: [{node: a, method: PATCH, path: /users}]", `unsupported method "PATCH"`},
		{"relative path", "name: x\nsteps: [{node: a, method: GET, path: users}]", "path must start with /"},
		{"offline step", "name: x\noffline: [a]\nsteps: [{node: a, method: GET, path: /users}]", `node "a" is offline`},
		{"negative threshold", "name: x\nfault_threshold: -1\nsteps: [{node: a, method: GET, path: /users}]", "must not be negative"},
		{"unknown assertion", "name: x\nsteps: [{node: a, method: GET, path: /users}]\nassertions: [{type: eventually, node: a}]", `unknown type "eventually"`},
		{"state without path", "name: x\nsteps: [{node: a, method: GET, path: /users}]\nassertions: [{type: state, node: a}]", "state requires path"},
		{"unknown field", "name: x\nstep: []", "field step not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)
}

func TestLoadScenario_NamesFileOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ''\nsteps: []"), 0o600))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
