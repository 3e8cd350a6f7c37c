package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginFeature = `feature: Login
tags: [smoke]
scenarios:
  - name: Valid credentials
    steps:
      - Given a registered user
      - When they sign in
      - Then they see the dashboard
  - name: Credential matrix
    examples:
      headers: [user, password]
      rows:
        - [alice, pw1]
        - [bob, pw2]
`

func writeFeature(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFeature(t, t.TempDir(), "login.yaml", loginFeature)

	feature, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Login", feature.Name)
	assert.Equal(t, []string{"smoke"}, feature.Tags)
	require.Len(t, feature.Scenarios, 2)
	assert.False(t, feature.Scenarios[0].HasExamples())
	require.True(t, feature.Scenarios[1].HasExamples())
	assert.Equal(t, [][]string{{"alice", "pw1"}, {"bob", "pw2"}}, feature.Scenarios[1].Examples.Rows)
}

func TestLoadFileWithExternalSource(t *testing.T) {
	content := `feature: Roles
scenarios:
  - name: Role access
    examples:
      source:
        path: users.csv
        filter: role = admin
`
	path := writeFeature(t, t.TempDir(), "roles.yaml", content)

	feature, err := LoadFile(path)
	require.NoError(t, err)
	src := feature.Scenarios[0].Examples.Source
	require.NotNil(t, src)
	assert.Equal(t, "users.csv", src.Path)
	assert.Equal(t, "role = admin", src.Filter)
}

func TestLoadFileRejectsMissingNames(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFeature(t, dir, "noname.yaml", "scenarios:\n  - name: s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature name")

	_, err = LoadFile(writeFeature(t, dir, "noscenario.yaml", "feature: F\nscenarios:\n  - steps: [a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")
}

func TestLoadFileMalformedYAML(t *testing.T) {
	_, err := LoadFile(writeFeature(t, t.TempDir(), "bad.yaml", "feature: [unclosed"))
	require.Error(t, err)
}

func TestLoadDirSortedAndRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFeature(t, dir, "b.yaml", "feature: B\nscenarios:\n  - name: s\n")
	writeFeature(t, dir, "a.yml", "feature: A\nscenarios:\n  - name: s\n")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFeature(t, sub, "c.yaml", "feature: C\nscenarios:\n  - name: s\n")
	writeFeature(t, dir, "ignored.txt", "not a feature")

	features, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, "A", features[0].Name)
	assert.Equal(t, "B", features[1].Name)
	assert.Equal(t, "C", features[2].Name)
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature files")
}
