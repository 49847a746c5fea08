package subst

import (
	"fmt"
	"strings"
)

// UnresolvedBehaviour selects what happens to a reference whose key has no
// value and no applicable fallback default.
type UnresolvedBehaviour int

const (
	// Throw fails the resolution with an UndefinedVariableError.
	Throw UnresolvedBehaviour = iota
	// IgnorePattern replaces the reference with empty content.
	IgnorePattern
	// KeepPattern leaves the delimited reference verbatim in the output.
	KeepPattern
)

func (b UnresolvedBehaviour) String() string {
	switch b {
	case Throw:
		return "throw"
	case IgnorePattern:
		return "ignore"
	case KeepPattern:
		return "keep"
	default:
		return fmt.Sprintf("UnresolvedBehaviour(%d)", int(b))
	}
}

func (b UnresolvedBehaviour) valid() bool {
	return b >= Throw && b <= KeepPattern
}

func errUnknownBehaviour(b UnresolvedBehaviour) error {
	return fmt.Errorf("unknown value %d", int(b))
}

// ParseUnresolvedBehaviour converts a textual behaviour. Matching is case
// insensitive and accepts both the short ("keep") and long ("KeepPattern")
// spellings.
func ParseUnresolvedBehaviour(value string) (UnresolvedBehaviour, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "throw", "error", "fail":
		return Throw, nil
	case "ignore", "ignorepattern", "ignore_pattern", "ignore-pattern":
		return IgnorePattern, nil
	case "keep", "keeppattern", "keep_pattern", "keep-pattern":
		return KeepPattern, nil
	default:
		return Throw, &ConfigError{
			Field: "unresolved variable behaviour",
			Err:   fmt.Errorf("unknown value %q", value),
		}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b UnresolvedBehaviour) MarshalText() ([]byte, error) {
	if !b.valid() {
		return nil, fmt.Errorf("subst: cannot marshal %s", b)
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *UnresolvedBehaviour) UnmarshalText(text []byte) error {
	parsed, err := ParseUnresolvedBehaviour(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
