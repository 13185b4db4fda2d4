// Package engine implements the Review State Engine (spec §4.2): the
// load-mutate-save-emit orchestration layered on top of the Content
// Store, the review FSM, and the Event Bus. Every exported method here
// corresponds 1:1 to an HTTP route or an MCP tool; there is no
// message-envelope indirection between the transport layers and the
// domain operations, unlike this codebase's earlier actor-message
// service layer (see DESIGN.md).
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roasbeef/planreview/internal/eventbus"
	"github.com/roasbeef/planreview/internal/planstore"
	"github.com/roasbeef/planreview/internal/review"
)

// defaultResolutionMessage is used when the caller does not supply a
// per-comment override while auto-resolving comments on plan update.
const defaultResolutionMessage = "已在修订版本中处理"

// Engine is the single point of mutation for review aggregates. It owns
// no goroutine of its own; every method runs on the caller's goroutine,
// serialized per review ID via an internal mutex map.
type Engine struct {
	store *planstore.Store
	bus   *eventbus.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs an Engine over an already-open Store and Bus.
func New(store *planstore.Store, bus *eventbus.Bus) *Engine {
	return &Engine{
		store: store,
		bus:   bus,
		locks: make(map[string]*sync.Mutex),
	}
}

// reviewLock returns the mutex serializing mutations for a single review
// ID, creating it on first use. The map itself is never pruned; the
// number of distinct reviews a server sees over its lifetime is bounded
// by disk space long before this becomes a concern.
func (e *Engine) reviewLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// loadForMutation loads a review by ID and project path, returning
// review.ErrNotFound if no such review exists. Callers must already
// hold that review's lock.
func (e *Engine) loadForMutation(id, projectPath string) (*review.Review, error) {
	opt, err := e.store.Load(id, projectPath)
	if err != nil {
		return nil, err
	}
	r := opt.UnwrapOr(nil)
	if r == nil {
		return nil, review.NotFoundf("review %s", id)
	}
	return r, nil
}

// GetReview returns a snapshot of a single review.
func (e *Engine) GetReview(ctx context.Context, id, projectPath string) (*review.Review, error) {
	opt, err := e.store.Load(id, projectPath)
	if err != nil {
		return nil, err
	}
	r := opt.UnwrapOr(nil)
	if r == nil {
		return nil, review.NotFoundf("review %s", id)
	}
	return r.Clone(), nil
}

// ListPending returns every non-terminal review for a project.
func (e *Engine) ListPending(ctx context.Context, projectPath string) ([]*review.Review, error) {
	all, err := e.store.ListPending(projectPath)
	if err != nil {
		return nil, err
	}
	out := make([]*review.Review, len(all))
	for i, r := range all {
		out[i] = r.Clone()
	}
	return out, nil
}

// Latest returns the most-recently-modified review for a project,
// regardless of status.
func (e *Engine) Latest(ctx context.Context, projectPath string) (*review.Review, error) {
	opt, err := e.store.Latest(projectPath)
	if err != nil {
		return nil, err
	}
	r := opt.UnwrapOr(nil)
	if r == nil {
		return nil, review.NotFoundf("no reviews for project")
	}
	return r.Clone(), nil
}

// LatestPending returns the freshest non-terminal review for a project,
// i.e. ListPending's most-recently-modified entry. Unlike Latest, a
// project whose most recently touched review has already reached
// StatusApproved falls through to the next-freshest still-open review.
func (e *Engine) LatestPending(ctx context.Context, projectPath string) (*review.Review, error) {
	pending, err := e.ListPending(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, review.NotFoundf("no pending reviews for project")
	}
	return pending[0], nil
}

// CreateReview opens a new review over an initial plan document. No
// FSM involvement: brand-new reviews always start in StatusOpen and
// there is nothing yet to publish, since no subscriber can exist before
// the caller learns the review's ID.
func (e *Engine) CreateReview(ctx context.Context, projectPath, plan string) (*review.Review, error) {
	if plan == "" {
		return nil, review.ValidationErrorf("plan content must not be empty")
	}

	digest := review.Digest(plan)
	now := time.Now().UTC()

	r := &review.Review{
		ID:          planstore.NewReviewID(),
		CreatedAt:   now,
		ProjectPath: projectPath,
		Status:      review.StatusOpen,
		PlanContent: plan,
		DocumentVersions: []review.DocumentVersion{{
			Digest:    digest,
			Content:   plan,
			CreatedAt: now,
			Author:    review.AuthorAgent,
		}},
		CurrentVersion: digest,
	}

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	return r.Clone(), nil
}

// mutable reports whether comments may be added, edited, or deleted in
// the review's current status: only while the human holds the pen,
// i.e. open (first look) or updated (reviewing a revision).
func mutable(status review.Status) bool {
	return status == review.StatusOpen || status == review.StatusUpdated
}

// AddComment anchors a new human comment to the current document
// version.
func (e *Engine) AddComment(ctx context.Context, id, projectPath string,
	quote, text string, pos review.TextPosition,
) (*review.Comment, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	if !mutable(r.Status) {
		return nil, review.ValidationErrorf(
			"cannot add comments while review is %s", r.Status,
		)
	}
	if pos.StartOffset < 0 || pos.EndOffset < pos.StartOffset ||
		pos.EndOffset > len([]rune(r.PlanContent)) {
		return nil, review.ValidationErrorf(
			"comment position [%d,%d) out of range",
			pos.StartOffset, pos.EndOffset,
		)
	}

	c := review.Comment{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Quote:           quote,
		Text:            text,
		Position:        pos,
		DocumentVersion: r.CurrentVersion,
		PositionStatus:  review.PositionValid,
	}
	r.Comments = append(r.Comments, c)

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	return &c, nil
}

// EditComment updates the text of an unresolved comment.
func (e *Engine) EditComment(ctx context.Context, id, projectPath, commentID, text string) error {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return err
	}
	if !mutable(r.Status) {
		return review.ValidationErrorf(
			"cannot edit comments while review is %s", r.Status,
		)
	}

	c := r.FindComment(commentID)
	if c == nil {
		return review.NotFoundf("comment %s", commentID)
	}
	if c.Resolved {
		return review.ValidationErrorf("comment %s already resolved", commentID)
	}
	c.Text = text

	return e.store.Save(r)
}

// DeleteComment removes an unresolved comment.
func (e *Engine) DeleteComment(ctx context.Context, id, projectPath, commentID string) error {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return err
	}
	if !mutable(r.Status) {
		return review.ValidationErrorf(
			"cannot delete comments while review is %s", r.Status,
		)
	}

	idx := -1
	for i, c := range r.Comments {
		if c.ID == commentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return review.NotFoundf("comment %s", commentID)
	}
	if r.Comments[idx].Resolved {
		return review.ValidationErrorf("comment %s already resolved", commentID)
	}
	r.Comments = append(r.Comments[:idx], r.Comments[idx+1:]...)

	return e.store.Save(r)
}

// SubmitFeedback transitions a review to changes_requested. Called from
// the request-changes HTTP route.
func (e *Engine) SubmitFeedback(ctx context.Context, id, projectPath string) (*review.Review, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	fsm := review.NewReviewFSMFromStatus(id, r.Status)
	outbox, err := fsm.ProcessEvent(ctx, review.SubmitFeedbackEvent{
		UnresolvedCommentIDs: r.UnresolvedCommentIDs(),
	})
	if err != nil {
		return nil, err
	}

	oldStatus := r.Status
	r.Status = fsm.CurrentStatus()

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	e.dispatch(r, oldStatus, outbox, nil, nil)

	return r.Clone(), nil
}

// AskedQuestion is the caller-supplied shape for one question posted by
// the agent against a specific unresolved comment.
type AskedQuestion struct {
	CommentID string
	Type      review.QuestionType
	Message   string
	Options   []string
}

// AskQuestions attaches one question to each unresolved comment (per
// spec §4.2, ask_questions must cover every unresolved comment in a
// single call) and transitions to discussing, unless every question is
// of type accepted, in which case the review stays in
// changes_requested with those comments immediately resolved.
func (e *Engine) AskQuestions(ctx context.Context, id, projectPath string,
	questions []AskedQuestion,
) (*review.Review, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	unresolved := make(map[string]bool)
	for _, cid := range r.UnresolvedCommentIDs() {
		unresolved[cid] = true
	}
	if len(questions) == 0 {
		return nil, review.ValidationErrorf("ask_questions requires at least one question")
	}
	covered := make(map[string]bool, len(questions))
	for _, q := range questions {
		c := r.FindComment(q.CommentID)
		if c == nil {
			return nil, review.NotFoundf("comment %s", q.CommentID)
		}
		if !unresolved[q.CommentID] {
			return nil, review.ValidationErrorf(
				"comment %s is not unresolved", q.CommentID,
			)
		}
		switch q.Type {
		case review.QuestionChoice, review.QuestionMultiChoice:
			if len(q.Options) == 0 {
				return nil, review.ValidationErrorf(
					"question type %s requires options", q.Type,
				)
			}
		case review.QuestionClarification, review.QuestionAccepted:
		default:
			return nil, review.ValidationErrorf("unknown question type %s", q.Type)
		}
		covered[q.CommentID] = true
	}
	for cid := range unresolved {
		if !covered[cid] {
			return nil, review.ValidationErrorf(
				"ask_questions must cover every unresolved comment, missing %s",
				cid,
			)
		}
	}

	now := time.Now().UTC()
	allAccepted := true
	refs := make([]eventbus.QuestionRef, 0, len(questions))
	for _, q := range questions {
		c := r.FindComment(q.CommentID)
		question := review.CommentQuestion{
			Type:    q.Type,
			Message: q.Message,
			Options: q.Options,
		}
		c.Question = &question
		refs = append(refs, eventbus.QuestionRef{
			CommentID: q.CommentID,
			Question:  question,
		})

		if q.Type == review.QuestionAccepted {
			c.Resolved = true
			c.Resolution = &review.Resolution{
				ResolvedAt:        now,
				ResolvedInVersion: r.CurrentVersion,
				Message:           "accepted",
			}
		} else {
			allAccepted = false
		}
	}

	fsm := review.NewReviewFSMFromStatus(id, r.Status)
	outbox, err := fsm.ProcessEvent(ctx, review.AskQuestionsEvent{AllAccepted: allAccepted})
	if err != nil {
		return nil, err
	}

	oldStatus := r.Status
	r.Status = fsm.CurrentStatus()

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	e.dispatch(r, oldStatus, outbox, refs, nil)

	return r.Clone(), nil
}

// AnswerQuestion records the human's answer to a previously-asked
// question. It never moves the FSM: per spec §4.6, an ask_questions
// caller is only resumed once the review's status actually leaves
// discussing, which happens via UpdatePlan or Approve, not by
// answering alone.
func (e *Engine) AnswerQuestion(ctx context.Context, id, projectPath, commentID, answer string) (*review.Review, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	c := r.FindComment(commentID)
	if c == nil {
		return nil, review.NotFoundf("comment %s", commentID)
	}
	if c.Question == nil {
		return nil, review.ValidationErrorf("comment %s has no open question", commentID)
	}
	if c.Resolved {
		return nil, review.ValidationErrorf("comment %s already resolved", commentID)
	}

	c.Answer = &answer

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	return r.Clone(), nil
}

// UpdatePlan submits a revised plan document. Identical resubmission
// (same digest as the current version) is a documented no-op: no
// version is appended, no comment is touched, no event is published,
// and the FSM is never invoked (spec §8, invariant 6).
func (e *Engine) UpdatePlan(ctx context.Context, id, projectPath, content, description string,
	author review.Author, resolutions map[string]string,
) (*review.Review, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	digest := review.Digest(content)
	if digest == r.CurrentVersion {
		return r.Clone(), nil
	}

	if r.Status != review.StatusChangesRequested && r.Status != review.StatusDiscussing {
		return nil, review.InvalidTransitionf(
			"cannot update plan while review is %s", r.Status,
		)
	}

	now := time.Now().UTC()
	precedingDigest := r.CurrentVersion

	unresolvedIDs := r.UnresolvedCommentIDs()
	resolvedRefs := make([]eventbus.ResolvedComment, 0, len(unresolvedIDs))
	for _, cid := range unresolvedIDs {
		c := r.FindComment(cid)
		msg := defaultResolutionMessage
		if override, ok := resolutions[cid]; ok && override != "" {
			msg = override
		}
		c.Resolved = true
		c.Resolution = &review.Resolution{
			ResolvedAt:        now,
			ResolvedInVersion: digest,
			Message:           msg,
		}
		resolvedRefs = append(resolvedRefs, eventbus.ResolvedComment{
			CommentID:  cid,
			Resolution: msg,
		})
	}

	version := review.DocumentVersion{
		Digest:          digest,
		Content:         content,
		CreatedAt:       now,
		Description:     description,
		Author:          author,
		PrecedingDigest: precedingDigest,
	}
	r.DocumentVersions = append(r.DocumentVersions, version)
	r.CurrentVersion = digest
	r.PlanContent = content

	fsm := review.NewReviewFSMFromStatus(id, r.Status)
	outbox, err := fsm.ProcessEvent(ctx, review.UpdatePlanEvent{NewDigest: digest})
	if err != nil {
		return nil, err
	}

	oldStatus := r.Status
	r.Status = fsm.CurrentStatus()

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	e.dispatch(r, oldStatus, outbox, nil, &versionPayload{
		version:  version,
		resolved: resolvedRefs,
	})

	return r.Clone(), nil
}

// Approve sets a review to approved. Open, discussing, and updated all
// accept it; changes_requested and approved reject it with an invalid
// transition. From open it additionally requires either zero
// unresolved comments or an explicit passThrough, since approving
// straight out of open with unaddressed feedback is a deliberate
// override, not the default path.
func (e *Engine) Approve(ctx context.Context, id, projectPath, note string, passThrough bool) (*review.Review, error) {
	lock := e.reviewLock(id)
	lock.Lock()
	defer lock.Unlock()

	r, err := e.loadForMutation(id, projectPath)
	if err != nil {
		return nil, err
	}

	if r.Status == review.StatusOpen && len(r.UnresolvedCommentIDs()) > 0 && !passThrough {
		return nil, review.ValidationErrorf(
			"cannot approve with unresolved comments without pass-through",
		)
	}

	fsm := review.NewReviewFSMFromStatus(id, r.Status)
	outbox, err := fsm.ProcessEvent(ctx, review.ApproveEvent{
		Note:        note,
		PlanContent: r.PlanContent,
	})
	if err != nil {
		return nil, err
	}

	oldStatus := r.Status
	r.Status = fsm.CurrentStatus()
	r.ApprovalNote = note
	r.ApprovedDirectly = oldStatus == review.StatusOpen

	if err := e.store.Save(r); err != nil {
		return nil, err
	}

	e.dispatch(r, oldStatus, outbox, nil, nil)

	return r.Clone(), nil
}

// Rollback is sugar for UpdatePlan targeting the content of a previous
// version, so it goes through the identical no-op-on-identical-content
// and auto-resolve behavior.
func (e *Engine) Rollback(ctx context.Context, id, projectPath, targetDigest string) (*review.Review, error) {
	target, err := e.GetVersion(ctx, id, projectPath, targetDigest)
	if err != nil {
		return nil, err
	}

	return e.UpdatePlan(ctx, id, projectPath, target.Content,
		"rollback to "+shortDigest(targetDigest), review.AuthorHuman, nil,
	)
}

// GetVersion returns a single historical document version by digest.
func (e *Engine) GetVersion(ctx context.Context, id, projectPath, digest string) (*review.DocumentVersion, error) {
	opt, err := e.store.Load(id, projectPath)
	if err != nil {
		return nil, err
	}
	r := opt.UnwrapOr(nil)
	if r == nil {
		return nil, review.NotFoundf("review %s", id)
	}
	for _, v := range r.DocumentVersions {
		if v.Digest == digest {
			cp := v
			return &cp, nil
		}
	}
	return nil, review.NotFoundf("version %s", digest)
}

// Versions returns every version summary for a review, oldest first.
func (e *Engine) Versions(ctx context.Context, id, projectPath string) ([]review.VersionSummary, error) {
	opt, err := e.store.Load(id, projectPath)
	if err != nil {
		return nil, err
	}
	r := opt.UnwrapOr(nil)
	if r == nil {
		return nil, review.NotFoundf("review %s", id)
	}
	out := make([]review.VersionSummary, len(r.DocumentVersions))
	for i, v := range r.DocumentVersions {
		out[i] = v.Summary()
	}
	return out, nil
}

// Diff computes the line diff between two versions of a review's plan.
func (e *Engine) Diff(ctx context.Context, id, projectPath, fromDigest, toDigest string) (review.Diff, error) {
	from, err := e.GetVersion(ctx, id, projectPath, fromDigest)
	if err != nil {
		return review.Diff{}, err
	}
	to, err := e.GetVersion(ctx, id, projectPath, toDigest)
	if err != nil {
		return review.Diff{}, err
	}
	return review.ComputeDiff(from.Content, to.Content), nil
}

// Subscribe hands back a live Bus subscription plus a full snapshot to
// seed the mandatory initial connected frame (spec §4.4).
func (e *Engine) Subscribe(ctx context.Context, id, projectPath string) (*eventbus.Subscription, *review.Review, error) {
	r, err := e.GetReview(ctx, id, projectPath)
	if err != nil {
		return nil, nil, err
	}
	return e.bus.Subscribe(id), r, nil
}

type versionPayload struct {
	version  review.DocumentVersion
	resolved []eventbus.ResolvedComment
}

// dispatch turns a batch of FSM outbox events into Bus publications,
// mirroring this codebase's processOutbox dispatch idiom (see
// DESIGN.md). Unlike the teacher's version, there is no database write
// here: persistence already happened via Store.Save before dispatch is
// called, so this method only ever touches the Bus.
func (e *Engine) dispatch(r *review.Review, oldStatus review.Status,
	outbox []review.ReviewOutboxEvent, questionRefs []eventbus.QuestionRef,
	vp *versionPayload,
) {
	for _, evt := range outbox {
		switch ev := evt.(type) {
		case review.PublishStatusChanged:
			var planContent *string
			if ev.HasPlanText {
				pc := ev.PlanContent
				planContent = &pc
			}
			e.bus.Publish(r.ID, eventbus.StatusChanged{
				Status:         ev.NewStatus,
				PreviousStatus: ev.OldStatus,
				PlanContent:    planContent,
			})

		case review.PublishVersionUpdated:
			if vp == nil {
				continue
			}
			e.bus.Publish(r.ID, eventbus.VersionUpdated{
				Version: eventbus.VersionSummary{
					Digest:      vp.version.Digest,
					CreatedAt:   vp.version.CreatedAt,
					Description: vp.version.Description,
					Author:      vp.version.Author,
				},
				Content:          vp.version.Content,
				ResolvedComments: vp.resolved,
			})

		case review.PublishQuestionsUpdated:
			e.bus.Publish(r.ID, eventbus.QuestionsUpdated{
				Questions: questionRefs,
			})
		}
	}
}

// shortDigest truncates a digest for human-readable descriptions.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
