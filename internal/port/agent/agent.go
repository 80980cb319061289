// Package agent defines the capability interface every advisory agent implements.
package agent

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

// GlobalJurisdiction in an agent's supported set matches every jurisdiction.
const GlobalJurisdiction = "GLOBAL"

// Capabilities declares what contexts an agent accepts and how long it may take.
type Capabilities struct {
	Jurisdictions   []string      `json:"jurisdictions"`
	Frameworks      []string      `json:"frameworks"`
	MaxQueryLength  int           `json:"max_query_length"`
	ResponseTimeout time.Duration `json:"response_timeout"`
}

// Agent is the port interface for one independent advisory producer.
type Agent interface {
	// Tag returns the unique identifier of this agent.
	Tag() advisory.AgentTag

	// Capabilities returns what this agent supports.
	Capabilities() Capabilities

	// Initialize loads the agent's reference data. It is called once before use.
	Initialize(ctx context.Context) error

	// CanHandle is a pure predicate over the context.
	CanHandle(c *advisory.Context) bool

	// ProcessQuery returns a fully populated response or an error, never a partial response.
	ProcessQuery(ctx context.Context, c *advisory.Context) (*advisory.Response, error)

	// HealthCheck reports whether the agent can serve queries.
	HealthCheck(ctx context.Context) bool

	// Cleanup releases resources held by the agent.
	Cleanup(ctx context.Context) error
}

// Supports implements the shared CanHandle rule: the jurisdiction is supported
// (or the agent is GLOBAL), at least one framework overlaps, and the query is
// not longer than the agent's limit. A zero MaxQueryLength means unlimited.
func Supports(caps Capabilities, c *advisory.Context) bool {
	if caps.MaxQueryLength > 0 && len([]rune(c.Query)) > caps.MaxQueryLength {
		return false
	}
	if !slices.ContainsFunc(caps.Jurisdictions, func(j string) bool {
		return strings.EqualFold(j, c.Jurisdiction) || strings.EqualFold(j, GlobalJurisdiction)
	}) {
		return false
	}
	for _, f := range c.Frameworks {
		if slices.ContainsFunc(caps.Frameworks, func(s string) bool { return strings.EqualFold(s, f) }) {
			return true
		}
	}
	return false
}

// Limits are the operator-tunable bounds applied to every builtin agent.
type Limits struct {
	MaxQueryLength  int
	ResponseTimeout time.Duration
	MaxSnippets     int
}
