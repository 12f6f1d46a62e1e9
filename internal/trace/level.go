package trace

import (
	"fmt"
	"slices"
	"strings"
)

// Level controls tracing verbosity. Each level admits events up to a scope.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring only, dumped on failure
	LevelPhase        // driver and pass boundaries
	LevelDetail       // per unit
	LevelDebug        // everything
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

// deepest scope admitted per level; LevelOff admits nothing
var levelCeiling = [...]Scope{
	LevelError:  ScopePass,
	LevelPhase:  ScopePass,
	LevelDetail: ScopeUnit,
	LevelDebug:  ScopeFunc,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	i := slices.Index(levelNames, strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames, "|"))
	}
	return Level(i), nil
}

// ShouldEmit reports whether events of scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff || int(l) >= len(levelCeiling) {
		return false
	}
	return scope <= levelCeiling[l]
}
