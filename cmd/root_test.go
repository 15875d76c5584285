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

	for _, name := range []string{"serve", "export", "markers", "options", "import"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ooh-map", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Equal(t, version, rootCmd.Version)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCommand_LogOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	logLevel, logFormat = "debug", "console"
	defer func() { logLevel, logFormat = "", "" }()

	require.NoError(t, rootCmd.PersistentPreRunE(optionsCmd, nil))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSelectionFlags_Registered(t *testing.T) {
	for _, cmd := range []string{"export", "markers"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for _, name := range []string{"uf", "operadora", "data", "tipo", "foco"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s", cmd, name)
		}
	}
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)
	assert.NotNil(t, exportCmd.Flags().ShorthandLookup("o"))
}

func TestImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "delimiter", "sheet", "replace"} {
		assert.NotNil(t, importCmd.Flags().Lookup(name), "import should have --%s", name)
	}
}
