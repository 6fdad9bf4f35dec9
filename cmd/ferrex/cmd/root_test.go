package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersAllSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// When: listing its subcommands
	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}

	// Then: add, search, and settings are all present
	assert.True(t, names["add"])
	assert.True(t, names["search"])
	assert.True(t, names["settings"])
}

func TestNewRootCmd_HasIndexPathAndSizeFlags(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: the persistent index flags exist with their documented defaults
	pathFlag := cmd.PersistentFlags().Lookup("index-path")
	require.NotNil(t, pathFlag)
	assert.Equal(t, "./ferrex-index", pathFlag.DefValue)

	sizeFlag := cmd.PersistentFlags().Lookup("index-size")
	require.NotNil(t, sizeFlag)
	assert.Equal(t, "0", sizeFlag.DefValue)
}
