package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scope is the time window a breakdown covers.
type Scope int

const (
	ScopeLifetime Scope = iota
	ScopeYear
	ScopeMonth
)

// Scopes lists every scope, widest first.
var Scopes = []Scope{ScopeLifetime, ScopeYear, ScopeMonth}

func (s Scope) String() string {
	switch s {
	case ScopeLifetime:
		return "lifetime"
	case ScopeYear:
		return "year"
	case ScopeMonth:
		return "month"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope parses a scope name. "yearly" and "monthly" are accepted as
// aliases.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lifetime", "all":
		return ScopeLifetime, nil
	case "year", "yearly":
		return ScopeYear, nil
	case "month", "monthly":
		return ScopeMonth, nil
	default:
		return ScopeLifetime, fmt.Errorf("unknown scope %q (expected lifetime, year or month)", s)
	}
}

func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Scope) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("scope must be a string: %w", err)
	}
	if name == "" {
		*s = ScopeLifetime
		return nil
	}
	parsed, err := ParseScope(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
