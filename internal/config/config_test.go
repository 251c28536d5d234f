package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saturnin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: debug\nbundle:\n  worker:\n    agent: saturnin.worker\n")

	tree, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", tree.String("log.level"))
	assert.Equal(t, "saturnin.worker", tree.String("bundle.worker.agent"))
}

func TestLoadEnvOverlayOverridesFileValue(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: info\n")

	t.Setenv("SATURNIN_LOG_LEVEL", "trace")
	tree, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "trace", tree.String("log.level"))
}

func TestSubReturnsScopedTree(t *testing.T) {
	path := writeConfigFile(t, "bundle:\n  worker:\n    agent: saturnin.worker\n    replicas: 3\n")

	tree, err := Load(path)
	require.NoError(t, err)
	sub := tree.Sub("bundle.worker")
	assert.Equal(t, "saturnin.worker", sub.String("agent"))
	assert.Equal(t, 3, sub.Int("replicas"))
}

func TestMapKeysListsImmediateChildren(t *testing.T) {
	path := writeConfigFile(t, "bundle:\n  worker:\n    agent: a\n  collector:\n    agent: b\n")

	tree, err := Load(path)
	require.NoError(t, err)
	keys := tree.MapKeys("bundle")
	assert.ElementsMatch(t, []string{"worker", "collector"}, keys)
}

func TestExistsReflectsPresence(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: info\n")
	tree, err := Load(path)
	require.NoError(t, err)
	assert.True(t, tree.Exists("log.level"))
	assert.False(t, tree.Exists("log.missing"))
}

func TestMarshalRoundTripsThroughYAML(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.Set("log.level", "warn"))

	b, err := tree.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(b), "level")
}

func TestUnmarshalDecodesStruct(t *testing.T) {
	path := writeConfigFile(t, "worker:\n  replicas: 4\n  name: saturnin\n")
	tree, err := Load(path)
	require.NoError(t, err)

	var cfg struct {
		Replicas int    `koanf:"replicas"`
		Name     string `koanf:"name"`
	}
	require.NoError(t, tree.Unmarshal("worker", &cfg))
	assert.Equal(t, 4, cfg.Replicas)
	assert.Equal(t, "saturnin", cfg.Name)
}
