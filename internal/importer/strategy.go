package importer

import (
	"fmt"
	"strings"
)

// Strategy selects how imported records merge into the store.
type Strategy string

const (
	// StrategyReplace swaps the whole collection for the imported records.
	StrategyReplace Strategy = "replace"
	// StrategyAppend adds the imported records after the existing ones.
	StrategyAppend Strategy = "append"
)

// ParseStrategy maps user input onto a Strategy. There is no default.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", ErrStrategyRequired
	case "replace", "replace-all":
		return StrategyReplace, nil
	case "append", "add":
		return StrategyAppend, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}

func (s Strategy) validate() error {
	switch s {
	case StrategyReplace, StrategyAppend:
		return nil
	case "":
		return ErrStrategyRequired
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, string(s))
	}
}
