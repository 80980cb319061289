package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

// ErrNotInitialized is returned by ProcessQuery before Initialize succeeded
// or after Cleanup.
var ErrNotInitialized = errors.New("agent not initialized")

// Base carries the lifecycle and capability plumbing shared by concrete agents.
// Embed it and implement Initialize and ProcessQuery.
type Base struct {
	tag    advisory.AgentTag
	caps   Capabilities
	source evidence.Source
	ready  atomic.Bool
}

// NewBase creates the shared agent core. source may be nil.
func NewBase(tag advisory.AgentTag, caps Capabilities, source evidence.Source) *Base {
	return &Base{tag: tag, caps: caps, source: source}
}

// Tag returns the agent tag.
func (b *Base) Tag() advisory.AgentTag { return b.tag }

// Capabilities returns the declared capabilities.
func (b *Base) Capabilities() Capabilities { return b.caps }

// CanHandle reports whether the context is within the declared capabilities.
func (b *Base) CanHandle(c *advisory.Context) bool { return Supports(b.caps, c) }

// MarkReady flags the agent as initialized.
func (b *Base) MarkReady() { b.ready.Store(true) }

// Ready reports whether the agent is initialized.
func (b *Base) Ready() bool { return b.ready.Load() }

// CheckReady returns ErrNotInitialized wrapped with the agent tag when not ready.
func (b *Base) CheckReady() error {
	if !b.Ready() {
		return fmt.Errorf("%s: %w", b.tag, ErrNotInitialized)
	}
	return nil
}

// HealthCheck is true when initialized and the evidence source reports healthy.
func (b *Base) HealthCheck(ctx context.Context) bool {
	if !b.Ready() {
		return false
	}
	if b.source == nil {
		return true
	}
	ok, err := b.source.Health(ctx)
	return err == nil && ok
}

// Cleanup marks the agent as not ready.
func (b *Base) Cleanup(context.Context) error {
	b.ready.Store(false)
	return nil
}

// Retrieve asks the evidence source for material scoped to c. With no source
// configured it returns an empty result.
func (b *Base) Retrieve(ctx context.Context, c *advisory.Context, query string, maxSnippets int) (*evidence.Result, error) {
	if b.source == nil {
		return &evidence.Result{}, nil
	}
	res, err := b.source.Retrieve(ctx, evidence.Request{
		Query:        query,
		Jurisdiction: c.Jurisdiction,
		Frameworks:   c.Frameworks,
		Purpose:      string(b.tag),
		MaxSnippets:  maxSnippets,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: retrieve evidence: %w", b.tag, err)
	}
	return res, nil
}
