package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"migrate", "ingest", "search", "classify", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "tradecheck", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_Flags(t *testing.T) {
	flag := ingestCmd.Flags().Lookup("csv")
	require.NotNil(t, flag, "ingest command should have --csv flag")

	flag = ingestCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "2", flag.DefValue)
}

func TestClassifyCommand_Flags(t *testing.T) {
	for _, name := range []string{"csv", "output", "format", "summary", "sheet", "encoding", "concurrency", "limit", "on-error"} {
		assert.NotNil(t, classifyCmd.Flags().Lookup(name), "classify should have --%s flag", name)
	}
}

func TestSearchCommand_Flags(t *testing.T) {
	assert.NotNil(t, searchCmd.Flags().Lookup("code"))
	assert.NotNil(t, searchCmd.Flags().Lookup("text"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
