package review

import (
	"context"
	"fmt"
)

// ReviewFSM tracks the current status of a single review and mediates
// every transition through ReviewState.ProcessEvent. It mirrors the
// ThreadFSM/ReviewFSM wrapper pattern used elsewhere in this codebase's
// lineage: a thin holder of {state, environment} with no business logic
// of its own.
type ReviewFSM struct {
	state ReviewState
	env   *ReviewEnvironment
}

// NewReviewFSM creates a new review FSM starting in the Open state.
func NewReviewFSM(reviewID string) *ReviewFSM {
	return &ReviewFSM{
		state: &StateOpen{},
		env:   &ReviewEnvironment{ReviewID: reviewID},
	}
}

// NewReviewFSMFromStatus creates a review FSM from a persisted status,
// used when recovering an in-flight review from the Content Store.
func NewReviewFSMFromStatus(reviewID string, status Status) *ReviewFSM {
	return &ReviewFSM{
		state: StateFromString(status),
		env:   &ReviewEnvironment{ReviewID: reviewID},
	}
}

// ProcessEvent processes an event and returns the outbox events the
// Engine should dispatch.
func (f *ReviewFSM) ProcessEvent(ctx context.Context,
	event ReviewEvent,
) ([]ReviewOutboxEvent, error) {
	transition, err := f.state.ProcessEvent(ctx, event, f.env)
	if err != nil {
		return nil, fmt.Errorf("process event %T: %w", event, err)
	}

	f.state = transition.NextState

	return transition.OutboxEvents, nil
}

// CurrentStatus returns the wire-format status string for the current
// state.
func (f *ReviewFSM) CurrentStatus() Status {
	return Status(f.state.String())
}

// IsTerminal returns true once the review has reached approved.
func (f *ReviewFSM) IsTerminal() bool {
	return f.state.IsTerminal()
}
