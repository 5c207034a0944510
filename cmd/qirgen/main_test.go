package main

import (
	"testing"

	"github.com/fatih/color"
)

func TestApplyColorMode(t *testing.T) {
	prev := color.NoColor
	defer func() { color.NoColor = prev }()

	if err := applyColorMode("always"); err != nil || color.NoColor {
		t.Fatalf("always: err=%v NoColor=%v", err, color.NoColor)
	}
	if err := applyColorMode("never"); err != nil || !color.NoColor {
		t.Fatalf("never: err=%v NoColor=%v", err, color.NoColor)
	}
	if err := applyColorMode("NEVER"); err != nil || !color.NoColor {
		t.Fatalf("case folding: err=%v NoColor=%v", err, color.NoColor)
	}
	if err := applyColorMode("rainbow"); err == nil {
		t.Fatal("expected error for invalid color mode")
	}
}
