package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := buildRootCommand()

	want := []string{"run", "simulate", "status", "purge", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCommandRequiresSubcommand(t *testing.T) {
	_, err := runRootCommandForTest()
	if err == nil {
		t.Fatal("expected error when no subcommand given")
	}
	if !strings.Contains(err.Error(), "subcommand") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRootCommandHelpMentionsCommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"run", "simulate", "purge"} {
		if !strings.Contains(output, name) {
			t.Errorf("help output missing %q:\n%s", name, output)
		}
	}
}
