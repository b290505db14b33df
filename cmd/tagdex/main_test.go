package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "provision", "load", "sweep"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_Version(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tagdex version dev")
}

func TestLoadCmd_RequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"load"})

	assert.Error(t, root.Execute())
}

func TestLoadCmd_MissingFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"load", t.TempDir() + "/absent.jsonl"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.jsonl")
}

func TestServeCmd_ProvisionFlag(t *testing.T) {
	cmd := newServeCmd()
	f := cmd.Flags().Lookup("provision")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}
