package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/roasbeef/planreview/internal/eventbus"
	"github.com/roasbeef/planreview/internal/planstore"
	"github.com/roasbeef/planreview/internal/review"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	store, err := planstore.NewStore(t.TempDir())
	require.NoError(t, err)

	return New(store, eventbus.NewBus())
}

// TestApprove_ScenarioS1 covers spec §8's S1: direct approval from open.
func TestApprove_ScenarioS1(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "# Step 1\nDo X")
	require.NoError(t, err)
	require.Equal(t, review.StatusOpen, r.Status)

	sub, snapshot, err := eng.Subscribe(ctx, r.ID, "")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.Equal(t, review.StatusOpen, snapshot.Status)

	approved, err := eng.Approve(ctx, r.ID, "", "", false)
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, approved.Status)
	require.Len(t, approved.DocumentVersions, 1)

	evt := <-sub.Events()
	changed, ok := evt.(eventbus.StatusChanged)
	require.True(t, ok)
	require.Equal(t, review.StatusOpen, changed.PreviousStatus)
	require.Equal(t, review.StatusApproved, changed.Status)
	require.NotNil(t, changed.PlanContent)
	require.Equal(t, "# Step 1\nDo X", *changed.PlanContent)
}

// TestFeedbackLoop_ScenarioS2 covers spec §8's S2: a comment loop through
// request-changes and update_plan, including auto-resolution.
func TestFeedbackLoop_ScenarioS2(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "line one\nline two\nline three")
	require.NoError(t, err)

	comment, err := eng.AddComment(ctx, r.ID, "", "line one", "rename",
		review.TextPosition{StartOffset: 0, EndOffset: 8})
	require.NoError(t, err)

	r, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.NoError(t, err)
	require.Equal(t, review.StatusChangesRequested, r.Status)

	sub, _, err := eng.Subscribe(ctx, r.ID, "")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	r, err = eng.UpdatePlan(ctx, r.ID, "", "line ONE\nline two\nline three",
		"", review.AuthorAgent, nil)
	require.NoError(t, err)
	require.Equal(t, review.StatusUpdated, r.Status)
	require.Len(t, r.DocumentVersions, 2)

	c := r.FindComment(comment.ID)
	require.NotNil(t, c)
	require.True(t, c.Resolved)
	require.Equal(t, r.CurrentVersion, c.Resolution.ResolvedInVersion)

	evt := <-sub.Events()
	updated, ok := evt.(eventbus.VersionUpdated)
	require.True(t, ok)
	require.Equal(t, []eventbus.ResolvedComment{
		{CommentID: comment.ID, Resolution: defaultResolutionMessage},
	}, updated.ResolvedComments)
}

// TestQuestionCycle_ScenarioS3 covers spec §8's S3: an agent question and
// human answer while a review is discussing.
func TestQuestionCycle_ScenarioS3(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "line one\nline two\nline three")
	require.NoError(t, err)
	comment, err := eng.AddComment(ctx, r.ID, "", "line one", "rename",
		review.TextPosition{StartOffset: 0, EndOffset: 8})
	require.NoError(t, err)
	_, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.NoError(t, err)

	r, err = eng.AskQuestions(ctx, r.ID, "", []AskedQuestion{{
		CommentID: comment.ID,
		Type:      review.QuestionChoice,
		Message:   "Which name?",
		Options:   []string{"lineOne", "LINE_ONE"},
	}})
	require.NoError(t, err)
	require.Equal(t, review.StatusDiscussing, r.Status)

	r, err = eng.AnswerQuestion(ctx, r.ID, "", comment.ID, "LINE_ONE")
	require.NoError(t, err)
	c := r.FindComment(comment.ID)
	require.NotNil(t, c.Answer)
	require.Equal(t, "LINE_ONE", *c.Answer)
}

// TestApprove_ScenarioS4 covers spec §8's S4: approving a revision.
func TestApprove_ScenarioS4(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "line one\nline two\nline three")
	require.NoError(t, err)
	_, err = eng.AddComment(ctx, r.ID, "", "line one", "rename",
		review.TextPosition{StartOffset: 0, EndOffset: 8})
	require.NoError(t, err)
	_, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.NoError(t, err)
	r, err = eng.UpdatePlan(ctx, r.ID, "", "line ONE\nline two\nline three",
		"", review.AuthorAgent, nil)
	require.NoError(t, err)
	require.Equal(t, review.StatusUpdated, r.Status)

	r, err = eng.Approve(ctx, r.ID, "", "ship it", false)
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, r.Status)
}

// TestSubmitFeedback_ScenarioS5 covers spec §8's S5: an invalid
// transition from a terminal review leaves state unchanged.
func TestSubmitFeedback_ScenarioS5(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "# Step 1\nDo X")
	require.NoError(t, err)
	r, err = eng.Approve(ctx, r.ID, "", "", false)
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, r.Status)

	_, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.Error(t, err)
	require.True(t, errors.Is(err, review.ErrInvalidTransition))

	unchanged, err := eng.GetReview(ctx, r.ID, "")
	require.NoError(t, err)
	require.Equal(t, review.StatusApproved, unchanged.Status)
}

// TestUpdatePlan_IdenticalContentIsNoOp covers property 6: resubmitting
// identical content leaves the version list untouched and emits nothing.
func TestUpdatePlan_IdenticalContentIsNoOp(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "content")
	require.NoError(t, err)
	_, err = eng.AddComment(ctx, r.ID, "", "content", "note",
		review.TextPosition{StartOffset: 0, EndOffset: 7})
	require.NoError(t, err)
	_, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.NoError(t, err)

	sub, _, err := eng.Subscribe(ctx, r.ID, "")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	r, err = eng.UpdatePlan(ctx, r.ID, "", "content", "", review.AuthorAgent, nil)
	require.NoError(t, err)
	require.Len(t, r.DocumentVersions, 1)
	require.Equal(t, review.StatusChangesRequested, r.Status)

	select {
	case evt := <-sub.Events():
		t.Fatalf("expected no event on no-op resubmission, got %#v", evt)
	default:
	}
}

// TestCurrentVersionAlwaysAmongDocumentVersions covers property 1.
func TestCurrentVersionAlwaysAmongDocumentVersions(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r, err := eng.CreateReview(ctx, "", "v1")
	require.NoError(t, err)
	assertCurrentVersionKnown(t, r)

	_, err = eng.AddComment(ctx, r.ID, "", "v1", "note",
		review.TextPosition{StartOffset: 0, EndOffset: 2})
	require.NoError(t, err)
	_, err = eng.SubmitFeedback(ctx, r.ID, "")
	require.NoError(t, err)

	r, err = eng.UpdatePlan(ctx, r.ID, "", "v2", "", review.AuthorAgent, nil)
	require.NoError(t, err)
	assertCurrentVersionKnown(t, r)
}

func assertCurrentVersionKnown(t *testing.T, r *review.Review) {
	t.Helper()
	for _, v := range r.DocumentVersions {
		if v.Digest == r.CurrentVersion {
			return
		}
	}
	t.Fatalf("currentVersion %s not among documentVersions", r.CurrentVersion)
}
