package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSM_HappyPath(t *testing.T) {
	ctx := context.Background()
	fsm := NewReviewFSM("review-1")

	require.Equal(t, StatusOpen, fsm.CurrentStatus())
	require.False(t, fsm.IsTerminal())

	// open -> changes_requested: human leaves a comment.
	outbox, err := fsm.ProcessEvent(ctx, SubmitFeedbackEvent{
		UnresolvedCommentIDs: []string{"c1"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusChangesRequested, fsm.CurrentStatus())
	require.Len(t, outbox, 1)
	changed, ok := outbox[0].(PublishStatusChanged)
	require.True(t, ok)
	require.Equal(t, StatusOpen, changed.OldStatus)
	require.Equal(t, StatusChangesRequested, changed.NewStatus)

	// changes_requested -> discussing: agent asks a real question.
	outbox, err = fsm.ProcessEvent(ctx, AskQuestionsEvent{AllAccepted: false})
	require.NoError(t, err)
	require.Equal(t, StatusDiscussing, fsm.CurrentStatus())
	require.Len(t, outbox, 2)
	_, ok = outbox[0].(PublishQuestionsUpdated)
	require.True(t, ok)
	changed, ok = outbox[1].(PublishStatusChanged)
	require.True(t, ok)
	require.Equal(t, StatusChangesRequested, changed.OldStatus)
	require.Equal(t, StatusDiscussing, changed.NewStatus)

	// discussing -> updated: agent submits a revision after answers.
	outbox, err = fsm.ProcessEvent(ctx, UpdatePlanEvent{NewDigest: "deadbeef"})
	require.NoError(t, err)
	require.Equal(t, StatusUpdated, fsm.CurrentStatus())
	require.Len(t, outbox, 2)
	_, ok = outbox[0].(PublishVersionUpdated)
	require.True(t, ok)

	// updated -> approved: human approves the revision.
	outbox, err = fsm.ProcessEvent(ctx, ApproveEvent{
		Note:        "looks good",
		PlanContent: "final plan text",
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, fsm.CurrentStatus())
	require.True(t, fsm.IsTerminal())
	require.Len(t, outbox, 1)
	changed, ok = outbox[0].(PublishStatusChanged)
	require.True(t, ok)
	require.Equal(t, StatusUpdated, changed.OldStatus)
	require.Equal(t, StatusApproved, changed.NewStatus)
	require.True(t, changed.HasPlanText)
	require.Equal(t, "final plan text", changed.PlanContent)
}

func TestFSM_AskQuestionsAllAcceptedStaysChangesRequested(t *testing.T) {
	ctx := context.Background()
	fsm := NewReviewFSMFromStatus("review-2", StatusChangesRequested)

	outbox, err := fsm.ProcessEvent(ctx, AskQuestionsEvent{AllAccepted: true})
	require.NoError(t, err)
	require.Equal(t, StatusChangesRequested, fsm.CurrentStatus())
	require.Len(t, outbox, 2)

	changed, ok := outbox[1].(PublishStatusChanged)
	require.True(t, ok)
	require.Equal(t, StatusChangesRequested, changed.OldStatus)
	require.Equal(t, StatusChangesRequested, changed.NewStatus)
}

func TestFSM_UpdatedBackToChangesRequested(t *testing.T) {
	ctx := context.Background()
	fsm := NewReviewFSMFromStatus("review-3", StatusUpdated)

	outbox, err := fsm.ProcessEvent(ctx, SubmitFeedbackEvent{
		UnresolvedCommentIDs: []string{"c2"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusChangesRequested, fsm.CurrentStatus())
	require.Len(t, outbox, 1)
}

func TestFSM_ApproveFromOpenDiscussingAndUpdated(t *testing.T) {
	for _, status := range []Status{
		StatusOpen, StatusDiscussing, StatusUpdated,
	} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			fsm := NewReviewFSMFromStatus("review-approve", status)

			outbox, err := fsm.ProcessEvent(ctx, ApproveEvent{
				PlanContent: "plan",
			})
			require.NoError(t, err)
			require.Equal(t, StatusApproved, fsm.CurrentStatus())
			require.True(t, fsm.IsTerminal())
			require.Len(t, outbox, 1)

			changed, ok := outbox[0].(PublishStatusChanged)
			require.True(t, ok)
			require.Equal(t, status, changed.OldStatus)
			require.Equal(t, StatusApproved, changed.NewStatus)
			require.True(t, changed.HasPlanText)
		})
	}
}

func TestFSM_SubmitFeedbackRequiresUnresolvedComments(t *testing.T) {
	ctx := context.Background()

	for _, status := range []Status{StatusOpen, StatusUpdated} {
		status := status
		t.Run(string(status), func(t *testing.T) {
			fsm := NewReviewFSMFromStatus("review-empty", status)

			_, err := fsm.ProcessEvent(ctx, SubmitFeedbackEvent{})
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrValidation))
			require.Equal(t, status, fsm.CurrentStatus())
		})
	}
}

func TestFSM_InvalidTransitionsRejected(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		status Status
		event  ReviewEvent
	}{
		{"update-plan-from-open", StatusOpen, UpdatePlanEvent{NewDigest: "x"}},
		{"ask-questions-from-open", StatusOpen, AskQuestionsEvent{}},
		{"submit-feedback-from-changes-requested", StatusChangesRequested, SubmitFeedbackEvent{UnresolvedCommentIDs: []string{"c1"}}},
		{"ask-questions-from-discussing", StatusDiscussing, AskQuestionsEvent{}},
		{"submit-feedback-from-discussing", StatusDiscussing, SubmitFeedbackEvent{UnresolvedCommentIDs: []string{"c1"}}},
		{"ask-questions-from-updated", StatusUpdated, AskQuestionsEvent{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fsm := NewReviewFSMFromStatus("review-invalid", tc.status)

			_, err := fsm.ProcessEvent(ctx, tc.event)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidTransition))
			require.Equal(t, tc.status, fsm.CurrentStatus())
		})
	}
}

func TestFSM_TerminalStateRejectsEverything(t *testing.T) {
	ctx := context.Background()
	fsm := NewReviewFSMFromStatus("review-terminal", StatusApproved)

	events := []ReviewEvent{
		ApproveEvent{},
		SubmitFeedbackEvent{UnresolvedCommentIDs: []string{"c1"}},
		AskQuestionsEvent{},
		UpdatePlanEvent{NewDigest: "x"},
	}

	for _, event := range events {
		_, err := fsm.ProcessEvent(ctx, event)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidTransition))
	}

	require.True(t, fsm.IsTerminal())
	require.Equal(t, StatusApproved, fsm.CurrentStatus())
}

func TestStateFromString(t *testing.T) {
	cases := map[Status]ReviewState{
		StatusOpen:             &StateOpen{},
		StatusChangesRequested: &StateChangesRequested{},
		StatusDiscussing:       &StateDiscussing{},
		StatusUpdated:          &StateUpdated{},
		StatusApproved:         &StateApproved{},
	}

	for status, want := range cases {
		got := StateFromString(status)
		require.IsType(t, want, got)
		require.Equal(t, string(status), got.String())
	}

	// Unknown status falls back to open.
	require.IsType(t, &StateOpen{}, StateFromString(Status("bogus")))
}
