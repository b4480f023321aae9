// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Tier is the ordinal experience classification of a trainee.
// Neutral is only valid as a signal indicator, never as a user's tier.
type Tier int

const (
	Neutral Tier = iota - 1
	Beginner
	Intermediate
	Advanced
	HighlyAdvanced
)

var tierNames = map[Tier]string{
	Neutral:        "neutral",
	Beginner:       "beginner",
	Intermediate:   "intermediate",
	Advanced:       "advanced",
	HighlyAdvanced: "highly_advanced",
}

// Tiers lists the real tiers in ascending order.
func Tiers() []Tier {
	return []Tier{Beginner, Intermediate, Advanced, HighlyAdvanced}
}

// String returns the snake_case tier name.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// IsReal reports whether t is one of the four classification tiers.
func (t Tier) IsReal() bool {
	return t >= Beginner && t <= HighlyAdvanced
}

// ParseTier converts a tier name, including "neutral", into a Tier.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range tierNames {
		if n == name {
			return t, nil
		}
	}
	return Neutral, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if _, ok := tierNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
