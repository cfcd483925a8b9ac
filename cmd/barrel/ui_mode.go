package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(flag, value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// applyColorMode configures fatih/color for the whole process. Auto keeps
// the library's own detection (NO_COLOR, TERM=dumb, non-tty stdout).
func applyColorMode(mode uiMode) {
	switch mode {
	case uiModeOn:
		color.NoColor = false
	case uiModeOff:
		color.NoColor = true
	}
}
