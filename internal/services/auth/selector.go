// -----------------------------------------------------------------------
// Selector Resolver - fallback element-location chains per form role
// -----------------------------------------------------------------------

package auth

import (
	"fmt"
	"strings"
)

// Role identifies a form field the login flow needs to locate.
type Role string

const (
	RoleUsername Role = "username"
	RolePassword Role = "password"
	RoleCode     Role = "code"
	RoleSubmit   Role = "submit"
)

// StrategyKind distinguishes how a location query is interpreted.
type StrategyKind string

const (
	StrategyCSS   StrategyKind = "css"
	StrategyXPath StrategyKind = "xpath"
	StrategyText  StrategyKind = "text"
)

// LocationStrategy is one way of locating an element. Strategies are tried
// in order; the first one matching a currently visible element wins.
type LocationStrategy struct {
	Kind  StrategyKind
	Query string
}

// XPathQuery renders the strategy as an XPath expression where the kind
// requires one. Text strategies match any button, link or input whose
// rendered text contains the query.
func (s LocationStrategy) XPathQuery() string {
	switch s.Kind {
	case StrategyXPath:
		return s.Query
	case StrategyText:
		q := strings.ReplaceAll(s.Query, "'", "\\'")
		return fmt.Sprintf("//*[self::button or self::a or self::input][contains(normalize-space(.), '%s') or contains(@value, '%s')]", q, q)
	default:
		return s.Query
	}
}

func (s LocationStrategy) String() string {
	if s.Kind == StrategyCSS {
		return s.Query
	}
	return string(s.Kind) + "=" + s.Query
}

// ParseStrategy interprets a stored query string. "xpath=" and "text="
// prefixes select those kinds; everything else is a CSS selector.
func ParseStrategy(raw string) LocationStrategy {
	switch {
	case strings.HasPrefix(raw, "xpath="):
		return LocationStrategy{Kind: StrategyXPath, Query: strings.TrimPrefix(raw, "xpath=")}
	case strings.HasPrefix(raw, "text="):
		return LocationStrategy{Kind: StrategyText, Query: strings.TrimPrefix(raw, "text=")}
	default:
		return LocationStrategy{Kind: StrategyCSS, Query: raw}
	}
}

// defaultChains covers the common broker login markup. Account overrides
// replace the entire chain for a role, never individual entries.
var defaultChains = map[Role][]LocationStrategy{
	RoleUsername: {
		{Kind: StrategyCSS, Query: "input[name='userid']"},
		{Kind: StrategyCSS, Query: "input[id='userid']"},
		{Kind: StrategyCSS, Query: "input[name='username']"},
		{Kind: StrategyCSS, Query: "input[type='email']"},
		{Kind: StrategyXPath, Query: "//input[contains(@placeholder, 'User')]"},
	},
	RolePassword: {
		{Kind: StrategyCSS, Query: "input[type='password']"},
		{Kind: StrategyCSS, Query: "input[name='password']"},
		{Kind: StrategyXPath, Query: "//input[contains(@placeholder, 'Password')]"},
	},
	RoleCode: {
		{Kind: StrategyCSS, Query: "input[name='totp']"},
		{Kind: StrategyCSS, Query: "input[id='totp']"},
		{Kind: StrategyCSS, Query: "input[name='pin']"},
		{Kind: StrategyCSS, Query: "input[autocomplete='one-time-code']"},
		{Kind: StrategyXPath, Query: "//input[contains(@placeholder, 'TOTP') or contains(@placeholder, 'PIN') or contains(@placeholder, 'code')]"},
	},
	RoleSubmit: {
		{Kind: StrategyCSS, Query: "button[type='submit']"},
		{Kind: StrategyCSS, Query: "input[type='submit']"},
		{Kind: StrategyText, Query: "Login"},
		{Kind: StrategyText, Query: "Continue"},
	},
}

// Resolver produces the ordered strategy chain for each form role,
// merging per-account overrides over the built-in defaults.
type Resolver struct {
	overrides map[Role][]LocationStrategy
}

// NewResolver builds a resolver from an account's raw override table. Keys
// are role names; values are stored query strings in ParseStrategy form.
func NewResolver(rawOverrides map[string][]string) *Resolver {
	r := &Resolver{overrides: make(map[Role][]LocationStrategy)}
	for roleName, queries := range rawOverrides {
		role := Role(roleName)
		chain := make([]LocationStrategy, 0, len(queries))
		for _, q := range queries {
			chain = append(chain, ParseStrategy(q))
		}
		if len(chain) > 0 {
			r.overrides[role] = chain
		}
	}
	return r
}

// Chain returns the strategies to try for a role, in priority order. An
// override replaces the whole default chain for that role.
func (r *Resolver) Chain(role Role) []LocationStrategy {
	if chain, ok := r.overrides[role]; ok {
		return chain
	}
	return defaultChains[role]
}
