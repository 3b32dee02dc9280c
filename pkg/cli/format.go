// Package cli provides shared formatting helpers for the queuecheck CLI.
package cli

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	colorOnce     sync.Once
	colorOverride *bool
	colorAuto     bool
)

// SetColor forces colored output on or off, overriding terminal detection.
func SetColor(on bool) {
	colorOverride = &on
}

// colorEnabled reports whether ANSI colors should be emitted: never when
// NO_COLOR is set (per no-color.org), otherwise only when stdout is a terminal.
func colorEnabled() bool {
	if colorOverride != nil {
		return *colorOverride
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	colorOnce.Do(func() {
		colorAuto = term.IsTerminal(int(os.Stdout.Fd()))
	})
	return colorAuto
}

func wrap(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Green wraps s in ANSI green.
func Green(s string) string { return wrap("32", s) }

// Yellow wraps s in ANSI yellow.
func Yellow(s string) string { return wrap("33", s) }

// Red wraps s in ANSI red.
func Red(s string) string { return wrap("31", s) }

// Bold wraps s in ANSI bold.
func Bold(s string) string { return wrap("1", s) }

// Dim wraps s in ANSI dim.
func Dim(s string) string { return wrap("2", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("get_queues", 20) → "get_queues ........."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// OnOff renders a boolean as "on" or "off".
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Dash returns "-" for empty strings.
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
