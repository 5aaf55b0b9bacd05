package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, run(t, "", "version"), "turnstile version")
}

func TestValidateCommand(t *testing.T) {
	assert.Contains(t, run(t, "", "validate"), "Dialogs are valid!")
}

func TestGraphCommand(t *testing.T) {
	out := run(t, "", "graph")
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "pizza")
}

func TestChatCommand_JSON(t *testing.T) {
	out := run(t, "Ada\n", "chat", "--json", "--greet=true")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Welcome to the pizza ordering bot!")
	assert.Contains(t, lines[1], "nice to meet you Ada")
}
