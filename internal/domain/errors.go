// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrContextRejected indicates an agent cannot handle the given context.
// The orchestrator treats it as an omission, not a failure.
var ErrContextRejected = errors.New("context rejected by agent")

// ErrAgentFailure indicates an agent failed while processing a query.
var ErrAgentFailure = errors.New("agent processing failed")

// ErrInvalidResponse indicates an agent returned a response missing a mandatory field.
var ErrInvalidResponse = errors.New("invalid agent response")

// ErrSynthesisImpossible indicates no usable agent responses were produced.
var ErrSynthesisImpossible = errors.New("synthesis impossible: no agent responses")

// ErrUnknownMethod indicates a synthesis method outside the known set.
var ErrUnknownMethod = errors.New("unknown synthesis method")
