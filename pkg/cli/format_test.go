package cli

import (
	"strings"
	"testing"
)

func TestDotPad(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "normal case",
			input:    "get_queues",
			width:    30,
			expected: "get_queues " + strings.Repeat(".", 19),
		},
		{
			name:     "short name",
			input:    "ok",
			width:    10,
			expected: "ok " + strings.Repeat(".", 7),
		},
		{
			name:     "name equals width minus one",
			input:    "abcde",
			width:    6,
			expected: "abcde",
		},
		{
			name:     "name longer than width",
			input:    "check_reconfigure_roundtrip",
			width:    5,
			expected: "check_reconfigure_roundtrip",
		},
		{
			name:     "empty string",
			input:    "",
			width:    10,
			expected: " " + strings.Repeat(".", 9),
		},
		{
			name:     "zero width",
			input:    "x",
			width:    0,
			expected: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DotPad(tt.input, tt.width)
			if got != tt.expected {
				t.Errorf("DotPad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestColorOverride(t *testing.T) {
	defer func() { colorOverride = nil }()

	SetColor(false)
	if got := Red("FAIL"); got != "FAIL" {
		t.Errorf("Red with color off = %q", got)
	}

	SetColor(true)
	if got := Green("PASS"); got != "\033[32mPASS\033[0m" {
		t.Errorf("Green with color on = %q", got)
	}
}

func TestNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if got := Yellow("SKIP"); got != "SKIP" {
		t.Errorf("Yellow with NO_COLOR = %q", got)
	}
}

func TestOnOffDash(t *testing.T) {
	if OnOff(true) != "on" || OnOff(false) != "off" {
		t.Error("OnOff")
	}
	if Dash("") != "-" || Dash("x") != "x" {
		t.Error("Dash")
	}
}
