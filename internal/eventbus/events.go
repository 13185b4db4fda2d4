// Package eventbus implements the in-process typed publish/subscribe
// system described in spec §4.3: no persistence, no replay, one topic
// per review ID.
package eventbus

import (
	"time"

	"github.com/roasbeef/planreview/internal/review"
)

// Event is the sealed interface for every payload the Bus can carry.
// Type returns the SSE wire event name (spec §6).
type Event interface {
	Type() string

	isEvent()
}

func (StatusChanged) isEvent()     {}
func (VersionUpdated) isEvent()    {}
func (QuestionsUpdated) isEvent()  {}
func (Heartbeat) isEvent()         {}
func (Connected) isEvent()         {}

// StatusChanged is emitted whenever a review's status transitions.
// PlanContent is populated only when Status is approved (spec §4.3).
type StatusChanged struct {
	Status         review.Status `json:"status"`
	PreviousStatus review.Status `json:"previousStatus"`
	PlanContent    *string       `json:"planContent,omitempty"`
}

// Type implements Event.
func (StatusChanged) Type() string { return "status_changed" }

// ResolvedComment names a comment that moved from unresolved to resolved
// in the transition that produced the enclosing VersionUpdated event.
type ResolvedComment struct {
	CommentID  string `json:"commentId"`
	Resolution string `json:"resolution"`
}

// VersionSummary is the version metadata carried on a VersionUpdated
// event; it omits Content, which travels separately in the event body.
type VersionSummary struct {
	Digest      string        `json:"digest"`
	CreatedAt   time.Time     `json:"createdAt"`
	Description string        `json:"description,omitempty"`
	Author      review.Author `json:"author"`
}

// VersionUpdated is emitted whenever a new document version is appended.
type VersionUpdated struct {
	Version          VersionSummary    `json:"version"`
	Content          string            `json:"content"`
	ResolvedComments []ResolvedComment `json:"resolvedComments"`
}

// Type implements Event.
func (VersionUpdated) Type() string { return "version_updated" }

// QuestionRef pairs a comment ID with the question attached to it.
type QuestionRef struct {
	CommentID string                  `json:"commentId"`
	Question  review.CommentQuestion  `json:"question"`
}

// QuestionsUpdated is emitted whenever the agent posts new questions.
type QuestionsUpdated struct {
	Questions []QuestionRef `json:"questions"`
}

// Type implements Event.
func (QuestionsUpdated) Type() string { return "questions_updated" }

// Heartbeat is emitted periodically by the Gateway, not by state
// changes (spec §4.3/§4.4).
type Heartbeat struct {
	Timestamp time.Time `json:"timestamp"`
}

// Type implements Event.
func (Heartbeat) Type() string { return "heartbeat" }

// Connected is the mandatory first frame on every new subscriber
// connection, carrying the full review snapshot (spec §4.4).
type Connected struct {
	Review *review.Review `json:"review"`
}

// Type implements Event.
func (Connected) Type() string { return "connected" }
