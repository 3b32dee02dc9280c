package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/queuecheck"
	"github.com/newtron-network/queuecheck/pkg/settings"
)

func testCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	var ifname string
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVarP(&ifname, "interface", "i", "", "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cmd
}

func TestResolveInterface(t *testing.T) {
	suite := &queuecheck.Suite{Interface: "from-suite"}
	s := &settings.Settings{DefaultInterface: "from-settings"}

	tests := []struct {
		name  string
		flags []string
		env   string
		suite *queuecheck.Suite
		args  []string
		want  string
	}{
		{"arg wins", []string{"-i", "from-flag"}, "from-env", suite, []string{"from-arg"}, "from-arg"},
		{"flag over env", []string{"-i", "from-flag"}, "from-env", suite, nil, "from-flag"},
		{"env over suite", nil, "from-env", suite, nil, "from-env"},
		{"suite over settings", nil, "", suite, nil, "from-suite"},
		{"settings last", nil, "", nil, nil, "from-settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envIfname, tt.env)
			cmd := testCmd(t, tt.flags...)
			got, err := resolveInterface(cmd, cmd.Flags().Lookup("interface").Value.String(), tt.suite, s, tt.args)
			if err != nil {
				t.Fatalf("resolveInterface: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveInterfaceNone(t *testing.T) {
	t.Setenv(envIfname, "")
	_, err := resolveInterface(testCmd(t), "", nil, &settings.Settings{}, nil)
	if err == nil || !strings.Contains(err.Error(), "no interface") {
		t.Errorf("expected no interface error, got %v", err)
	}
}

func TestPick(t *testing.T) {
	if got := pick("", "", "c", "d"); got != "c" {
		t.Errorf("pick = %q, want c", got)
	}
	if got := pick(); got != "" {
		t.Errorf("pick() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errCheckFailure, 1},
		{fmt.Errorf("%w: link eth9 not found", errInfraError), 2},
		{errors.New("bad flag"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envIfname, "")
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list", "--color", "never")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"check_static_consistency", "addremove_queues", "root,disruptive"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestRunRejectsUnknownCheck(t *testing.T) {
	_, err := execute(t, "run", "eth0", "--check", "nope")
	if err == nil || !strings.Contains(err.Error(), `unknown check "nope"`) {
		t.Fatalf("expected unknown check error, got %v", err)
	}
	if errors.Is(err, errInfraError) {
		t.Error("unknown check must not be an infrastructure error")
	}
}

func TestRunRequiresInterface(t *testing.T) {
	_, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "no interface") {
		t.Fatalf("expected no interface error, got %v", err)
	}
}

func TestBadColorFlag(t *testing.T) {
	_, err := execute(t, "list", "--color", "sometimes")
	if err == nil {
		t.Fatal("expected error for bad --color")
	}
}

func TestSettingsCommands(t *testing.T) {
	home := t.TempDir()
	run := func(args ...string) string {
		t.Helper()
		t.Setenv("HOME", home)
		var buf bytes.Buffer
		root := newRootCmd()
		root.SetOut(&buf)
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return buf.String()
	}

	run("settings", "set", "default_interface", "enp3s0f0")
	if got := strings.TrimSpace(run("settings", "get", "default_interface")); got != "enp3s0f0" {
		t.Errorf("get default_interface = %q", got)
	}
	if out := run("settings", "show"); !strings.Contains(out, "enp3s0f0") || !strings.Contains(out, "(not set)") {
		t.Errorf("show output:\n%s", out)
	}
	run("settings", "clear")
	if got := strings.TrimSpace(run("settings", "get", "default_interface")); got != "" {
		t.Errorf("after clear = %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "queuecheck dev build") {
		t.Errorf("version output = %q", out)
	}
}
