package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasAllSubcommands(t *testing.T) {
	root := Root()

	want := []string{"deploy", "operators", "cleanup", "delete", "dry-run", "init", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootPersistentFlags(t *testing.T) {
	root := Root()

	for _, flag := range []string{"config", "remote-host", "remote-user", "remote-key"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestDeployFlags(t *testing.T) {
	root := Root()
	cmd, _, err := root.Find([]string{"deploy"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("kubeconfig-out"))
}

func TestInitFlags(t *testing.T) {
	root := Root()
	cmd, _, err := root.Find([]string{"init"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("output"))
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestVersionOutputDefaults(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2026-08-29")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "abc1234", commit)
}
