package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/buildinfo"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("1.0.0", "2025-03-27", "test"))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"scan", "capture", "lookup", "routes", "history", "locations", "seed", "serve", "mqtt-test"} {
		assert.Contains(t, names, want)
	}
}

// Commands share the global viper instance, so this test runs serially.
func TestCatalogCommands(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	config := "catalog:\n  path: " + filepath.Join(dir, "blink.db") + "\nlogging:\n  console:\n    enabled: false\n"
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0o600))

	run := func(args ...string) string {
		t.Helper()
		root := RootCommand(buildinfo.NewContext("1.0.0", "", "test"))
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--config", configFile}, args...))
		require.NoError(t, root.ExecuteContext(t.Context()), out.String())
		return out.String()
	}

	out := run("lookup", "b", "7366", "je", "--from", "Greenwich", "--to", "Sektor")
	assert.Contains(t, out, "Plate:     B 7366 JE")
	assert.Contains(t, out, "Route:     GS")
	assert.Contains(t, out, "B 7366 JE serves this trip")

	out = run("routes", "--from", "breeze")
	assert.Contains(t, out, "BC")

	out = run("history", "--journeys")
	assert.Contains(t, out, "breeze")

	out = run("locations")
	assert.Contains(t, out, "Home")

	out = run("seed")
	assert.Contains(t, out, "Catalog holds 2 routes")
}
