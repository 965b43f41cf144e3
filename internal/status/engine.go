// Package status drives asset workflow transitions. The service only
// accepts single-step transitions, so moving an asset several stages
// forward means issuing each intermediate transition in order.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/logging"
)

// Service is the slice of the API client the engine needs.
type Service interface {
	GetAsset(ctx context.Context, id asset.Identity) (asset.Asset, error)
	SetAssetStatus(ctx context.Context, id asset.Identity, status asset.Status) error
}

// InvalidTransitionError reports a transition the workflow forbids. It
// is raised before any transition is sent to the service.
type InvalidTransitionError struct {
	From asset.Status
	To   asset.Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("asset is already %s", e.From)
	}
	return fmt.Sprintf("cannot move asset from %s to %s", e.From, e.To)
}

// ConflictError reports a transition sequence that failed partway,
// leaving the asset at Reached instead of the requested target.
type ConflictError struct {
	Reached  asset.Status
	Expected asset.Status
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("asset stopped at %s: transition to %s rejected by the service", e.Reached, e.Expected)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Engine executes workflow transitions against the asset service.
type Engine struct {
	service Service
	policy  asset.TransitionPolicy
	logger  *logging.Logger
}

// NewEngine returns an engine using the default transition policy.
func NewEngine(service Service, logger *logging.Logger) *Engine {
	return NewEngineWithPolicy(service, asset.DefaultTransitionPolicy(), logger)
}

// NewEngineWithPolicy returns an engine with a custom exit policy.
func NewEngineWithPolicy(service Service, policy asset.TransitionPolicy, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &Engine{service: service, policy: policy, logger: logger}
}

// SetStatus moves an asset version to the target status, issuing every
// intermediate single-step transition in workflow order. The current
// status is read from the service first; an unreachable target fails
// without sending any transition.
//
// On a mid-sequence rejection the asset is left at the last status the
// service accepted, which the returned ConflictError reports.
func (e *Engine) SetStatus(ctx context.Context, id asset.Identity, target asset.Status) error {
	current, err := e.service.GetAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read asset %s: %w", id.ID, err)
	}

	steps, ok := asset.ForwardPath(current.Status, target, e.policy)
	if !ok {
		return &InvalidTransitionError{From: current.Status, To: target}
	}

	reached := current.Status
	for _, step := range steps {
		e.logger.Debug("transitioning asset %s: %s -> %s", id.ID, reached, step)
		if err := e.service.SetAssetStatus(ctx, id, step); err != nil {
			if errors.Is(err, api.ErrConflict) {
				return &ConflictError{Reached: reached, Expected: step, Err: err}
			}
			return fmt.Errorf("failed to set asset %s status to %s: %w", id.ID, step, err)
		}
		reached = step
	}
	return nil
}

// Publish moves an asset version all the way to Published.
func (e *Engine) Publish(ctx context.Context, id asset.Identity) error {
	return e.SetStatus(ctx, id, asset.StatusPublished)
}
