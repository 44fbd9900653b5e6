package model

import (
	"fmt"
	"strings"
)

// Strategy decides when a step is satisfied.
type Strategy string

const (
	// StrategyAny advances on the first affirmative vote.
	StrategyAny Strategy = "any"
	// StrategyAll advances once every assigned approver has voted.
	StrategyAll Strategy = "all"
)

// ParseStrategy converts text into a Strategy; blank text means StrategyAny.
func ParseStrategy(text string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", string(StrategyAny):
		return StrategyAny, nil
	case string(StrategyAll):
		return StrategyAll, nil
	}
	return "", fmt.Errorf("unsupported strategy: %q", text)
}

// OrDefault returns the canonical strategy: StrategyAny for a blank value,
// and a case insensitive match otherwise. Unknown values are returned as is.
func (s Strategy) OrDefault() Strategy {
	ret, err := ParseStrategy(string(s))
	if err != nil {
		return s
	}
	return ret
}
