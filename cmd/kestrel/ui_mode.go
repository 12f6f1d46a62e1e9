package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of --ui.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	v := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch v {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return v, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI reports whether to draw the progress view. In auto mode the
// view needs more than one unit and a terminal on stderr.
func shouldUseTUI(mode uiMode, units int, quiet bool) bool {
	if mode != uiModeAuto {
		return mode == uiModeOn
	}
	return !quiet && units > 1 && isTerminal(os.Stderr)
}
