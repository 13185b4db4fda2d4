package review

import (
	"context"
)

// ReviewState is the sealed interface for all review states. Each state
// handles incoming events and returns a transition with any outbox
// events needed for side effects. The FSM only decides legality and the
// next status; the Engine owns mutating the Review aggregate's content
// (comments, versions, plan text) and filling in outbox event payloads
// that need that content.
type ReviewState interface {
	// ProcessEvent handles an incoming event and returns the next
	// state along with any outbox events to emit.
	ProcessEvent(ctx context.Context, event ReviewEvent,
		env *ReviewEnvironment) (*ReviewTransition, error)

	// IsTerminal returns true if this is a terminal state.
	IsTerminal() bool

	// String returns the wire-format status string for this state.
	String() string

	// isReviewState seals the interface.
	isReviewState()
}

// ReviewTransition represents the result of processing an event.
type ReviewTransition struct {
	NextState    ReviewState
	OutboxEvents []ReviewOutboxEvent
}

// ReviewEnvironment provides identifying context for state transitions.
// The FSM never sees the full Review aggregate; it only tracks the
// status and emits outbox events the Engine fleshes out.
type ReviewEnvironment struct {
	ReviewID string
}

// Compile-time verification that all concrete states implement
// ReviewState.
var (
	_ ReviewState = (*StateOpen)(nil)
	_ ReviewState = (*StateChangesRequested)(nil)
	_ ReviewState = (*StateDiscussing)(nil)
	_ ReviewState = (*StateUpdated)(nil)
	_ ReviewState = (*StateApproved)(nil)
)

// =============================================================================
// StateOpen: newly created, awaiting human review.
// =============================================================================

// StateOpen is the initial state: the human has not yet acted.
type StateOpen struct{}

// ProcessEvent handles events in the Open state.
func (s *StateOpen) ProcessEvent(_ context.Context, event ReviewEvent,
	env *ReviewEnvironment,
) (*ReviewTransition, error) {
	switch e := event.(type) {
	case ApproveEvent:
		return &ReviewTransition{
			NextState: &StateApproved{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishStatusChanged{
					ReviewID:    env.ReviewID,
					OldStatus:   StatusOpen,
					NewStatus:   StatusApproved,
					PlanContent: e.PlanContent,
					HasPlanText: true,
				},
			},
		}, nil

	case SubmitFeedbackEvent:
		if len(e.UnresolvedCommentIDs) == 0 {
			return nil, ValidationErrorf(
				"submitting feedback requires at least " +
					"one unresolved comment",
			)
		}
		return &ReviewTransition{
			NextState: &StateChangesRequested{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishStatusChanged{
					ReviewID:  env.ReviewID,
					OldStatus: StatusOpen,
					NewStatus: StatusChangesRequested,
				},
			},
		}, nil

	default:
		return nil, InvalidTransitionf(
			"unexpected event %T in state open", event,
		)
	}
}

func (s *StateOpen) IsTerminal() bool { return false }
func (s *StateOpen) String() string   { return string(StatusOpen) }
func (s *StateOpen) isReviewState()   {}

// =============================================================================
// StateChangesRequested: human submitted comments, awaiting the agent.
// =============================================================================

// StateChangesRequested indicates the human has left comments and is
// waiting on the agent to either ask questions or submit a revision.
type StateChangesRequested struct{}

// ProcessEvent handles events in the ChangesRequested state.
func (s *StateChangesRequested) ProcessEvent(_ context.Context,
	event ReviewEvent, env *ReviewEnvironment,
) (*ReviewTransition, error) {
	switch e := event.(type) {
	case AskQuestionsEvent:
		next := ReviewState(&StateDiscussing{})
		newStatus := StatusDiscussing
		if e.AllAccepted {
			// Every question is a terminal acknowledgement; all
			// referenced comments resolve immediately and the
			// review never leaves changes_requested.
			next = &StateChangesRequested{}
			newStatus = StatusChangesRequested
		}

		return &ReviewTransition{
			NextState: next,
			OutboxEvents: []ReviewOutboxEvent{
				PublishQuestionsUpdated{ReviewID: env.ReviewID},
				PublishStatusChanged{
					ReviewID:  env.ReviewID,
					OldStatus: StatusChangesRequested,
					NewStatus: newStatus,
				},
			},
		}, nil

	case UpdatePlanEvent:
		return &ReviewTransition{
			NextState: &StateUpdated{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishVersionUpdated{ReviewID: env.ReviewID},
				PublishStatusChanged{
					ReviewID:  env.ReviewID,
					OldStatus: StatusChangesRequested,
					NewStatus: StatusUpdated,
				},
			},
		}, nil

	default:
		return nil, InvalidTransitionf(
			"unexpected event %T in state changes_requested",
			event,
		)
	}
}

func (s *StateChangesRequested) IsTerminal() bool { return false }
func (s *StateChangesRequested) String() string   { return string(StatusChangesRequested) }
func (s *StateChangesRequested) isReviewState()   {}

// =============================================================================
// StateDiscussing: agent posted questions, awaiting human answers.
// =============================================================================

// StateDiscussing indicates the agent has asked at least one
// non-terminal question and is waiting for the human to answer.
type StateDiscussing struct{}

// ProcessEvent handles events in the Discussing state.
func (s *StateDiscussing) ProcessEvent(_ context.Context, event ReviewEvent,
	env *ReviewEnvironment,
) (*ReviewTransition, error) {
	switch e := event.(type) {
	case UpdatePlanEvent:
		return &ReviewTransition{
			NextState: &StateUpdated{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishVersionUpdated{ReviewID: env.ReviewID},
				PublishStatusChanged{
					ReviewID:  env.ReviewID,
					OldStatus: StatusDiscussing,
					NewStatus: StatusUpdated,
				},
			},
		}, nil

	case ApproveEvent:
		return &ReviewTransition{
			NextState: &StateApproved{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishStatusChanged{
					ReviewID:    env.ReviewID,
					OldStatus:   StatusDiscussing,
					NewStatus:   StatusApproved,
					PlanContent: e.PlanContent,
					HasPlanText: true,
				},
			},
		}, nil

	default:
		return nil, InvalidTransitionf(
			"unexpected event %T in state discussing", event,
		)
	}
}

func (s *StateDiscussing) IsTerminal() bool { return false }
func (s *StateDiscussing) String() string   { return string(StatusDiscussing) }
func (s *StateDiscussing) isReviewState()   {}

// =============================================================================
// StateUpdated: agent submitted a revision, awaiting human review.
// =============================================================================

// StateUpdated indicates the agent has submitted a new plan version and
// is waiting on the human to either approve it or leave more comments.
type StateUpdated struct{}

// ProcessEvent handles events in the Updated state.
func (s *StateUpdated) ProcessEvent(_ context.Context, event ReviewEvent,
	env *ReviewEnvironment,
) (*ReviewTransition, error) {
	switch e := event.(type) {
	case ApproveEvent:
		return &ReviewTransition{
			NextState: &StateApproved{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishStatusChanged{
					ReviewID:    env.ReviewID,
					OldStatus:   StatusUpdated,
					NewStatus:   StatusApproved,
					PlanContent: e.PlanContent,
					HasPlanText: true,
				},
			},
		}, nil

	case SubmitFeedbackEvent:
		if len(e.UnresolvedCommentIDs) == 0 {
			return nil, ValidationErrorf(
				"submitting feedback requires at least " +
					"one unresolved comment",
			)
		}
		return &ReviewTransition{
			NextState: &StateChangesRequested{},
			OutboxEvents: []ReviewOutboxEvent{
				PublishStatusChanged{
					ReviewID:  env.ReviewID,
					OldStatus: StatusUpdated,
					NewStatus: StatusChangesRequested,
				},
			},
		}, nil

	default:
		return nil, InvalidTransitionf(
			"unexpected event %T in state updated", event,
		)
	}
}

func (s *StateUpdated) IsTerminal() bool { return false }
func (s *StateUpdated) String() string   { return string(StatusUpdated) }
func (s *StateUpdated) isReviewState()   {}

// =============================================================================
// StateApproved: terminal.
// =============================================================================

// StateApproved is the terminal state; no further transitions are legal.
type StateApproved struct{}

// ProcessEvent returns an error since Approved is a terminal state.
func (s *StateApproved) ProcessEvent(_ context.Context, event ReviewEvent,
	_ *ReviewEnvironment,
) (*ReviewTransition, error) {
	return nil, InvalidTransitionf(
		"review is in terminal state approved, cannot process %T",
		event,
	)
}

func (s *StateApproved) IsTerminal() bool { return true }
func (s *StateApproved) String() string   { return string(StatusApproved) }
func (s *StateApproved) isReviewState()   {}

// StateFromString reconstructs a ReviewState from its persisted status
// string, used when recovering an active review from the Content Store.
func StateFromString(status Status) ReviewState {
	switch status {
	case StatusOpen:
		return &StateOpen{}
	case StatusChangesRequested:
		return &StateChangesRequested{}
	case StatusDiscussing:
		return &StateDiscussing{}
	case StatusUpdated:
		return &StateUpdated{}
	case StatusApproved:
		return &StateApproved{}
	default:
		return &StateOpen{}
	}
}
