// Package advisory defines the shared contract exchanged between agents and the
// orchestrator: the per-query context, evidence, follow-up suggestions and responses.
package advisory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RiskTolerance is the requester's appetite for residual compliance risk.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "low"
	RiskToleranceMedium RiskTolerance = "medium"
	RiskToleranceHigh   RiskTolerance = "high"
)

// IsValid reports whether t is one of the known tolerances.
func (t RiskTolerance) IsValid() bool {
	switch t {
	case RiskToleranceLow, RiskToleranceMedium, RiskToleranceHigh:
		return true
	}
	return false
}

// Role identifies who is asking.
type Role string

const (
	RoleComplianceOfficer   Role = "compliance_officer"
	RoleAnalyst             Role = "analyst"
	RoleRelationshipManager Role = "relationship_manager"
	RoleAuditor             Role = "auditor"
	RoleExecutive           Role = "executive"
)

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Context is the input bundle for one advisory query. It is built once by the
// caller and must be treated as read-only by every agent.
type Context struct {
	QueryID       string        `json:"query_id"`
	Query         string        `json:"query"`
	History       []Turn        `json:"history,omitempty"`
	Jurisdiction  string        `json:"jurisdiction"`
	Frameworks    []string      `json:"frameworks"`
	RiskTolerance RiskTolerance `json:"risk_tolerance"`
	Role          Role          `json:"role"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Validate checks that the context carries the fields every agent relies on.
func (c *Context) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return errors.New("query is required")
	}
	if strings.TrimSpace(c.Jurisdiction) == "" {
		return errors.New("jurisdiction is required")
	}
	if c.RiskTolerance != "" && !c.RiskTolerance.IsValid() {
		return fmt.Errorf("invalid risk_tolerance %q", c.RiskTolerance)
	}
	return nil
}

// NormalizedQuery returns the query lowercased and trimmed.
func (c *Context) NormalizedQuery() string {
	return strings.ToLower(strings.TrimSpace(c.Query))
}

// Tolerance returns the risk tolerance, defaulting to medium when unset.
func (c *Context) Tolerance() RiskTolerance {
	if c.RiskTolerance == "" {
		return RiskToleranceMedium
	}
	return c.RiskTolerance
}

// HasFramework reports whether the context lists framework f (case-insensitive).
func (c *Context) HasFramework(f string) bool {
	return slices.ContainsFunc(c.Frameworks, func(s string) bool {
		return strings.EqualFold(s, f)
	})
}

// ContainsAny reports whether text contains any of the given words.
// Both sides are compared lowercased.
func ContainsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// CountMatches returns how many of the given words appear in text.
func CountMatches(text string, words ...string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			n++
		}
	}
	return n
}
