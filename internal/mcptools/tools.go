package mcptools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/planreview/internal/engine"
	"github.com/roasbeef/planreview/internal/eventbus"
	"github.com/roasbeef/planreview/internal/review"
)

// askQuestionsDeadline is the 10-minute suspend cap from spec §4.6.
const askQuestionsDeadline = 10 * time.Minute

// AskQuestionsArgs are the arguments for the ask_questions tool.
type AskQuestionsArgs struct {
	ReviewID    string        `json:"reviewId" jsonschema:"ID of the review being answered"`
	ProjectPath string        `json:"projectPath,omitempty" jsonschema:"Project path the review is partitioned under"`
	Questions   []QuestionArg `json:"questions" jsonschema:"One question per unresolved comment"`
}

// QuestionArg is a single question posted against a comment.
type QuestionArg struct {
	CommentID string   `json:"commentId" jsonschema:"ID of the comment this question answers"`
	Type      string   `json:"type" jsonschema:"One of clarification, choice, multiChoice, accepted"`
	Message   string   `json:"message" jsonschema:"The question text shown to the human"`
	Options   []string `json:"options,omitempty" jsonschema:"Required when type is choice or multiChoice"`
}

// AnswerTuple pairs a comment with the human's answer.
type AnswerTuple struct {
	CommentID string `json:"commentId"`
	Answer    string `json:"answer"`
}

// AskQuestionsResult is the structured result of the ask_questions tool.
// On timeout, Success is false and Error is "timeout" — a normal
// result, not an RPC error frame, per spec §7.
type AskQuestionsResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Answers []AnswerTuple `json:"answers,omitempty"`
}

func (s *Server) handleAskQuestions(ctx context.Context, _ *mcp.CallToolRequest,
	args AskQuestionsArgs,
) (*mcp.CallToolResult, AskQuestionsResult, error) {
	questions := make([]engine.AskedQuestion, len(args.Questions))
	for i, q := range args.Questions {
		questions[i] = engine.AskedQuestion{
			CommentID: q.CommentID,
			Type:      review.QuestionType(q.Type),
			Message:   q.Message,
			Options:   q.Options,
		}
	}

	rev, err := s.eng.AskQuestions(ctx, args.ReviewID, args.ProjectPath, questions)
	if err != nil {
		return nil, AskQuestionsResult{}, err
	}

	if rev.Status != review.StatusDiscussing {
		// Every question was type accepted: comments already resolved,
		// nothing to wait on.
		return nil, AskQuestionsResult{Success: true}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, askQuestionsDeadline)
	defer cancel()

	sub, _, err := s.eng.Subscribe(waitCtx, args.ReviewID, args.ProjectPath)
	if err != nil {
		return nil, AskQuestionsResult{}, err
	}
	defer sub.Unsubscribe()

waitLoop:
	for {
		select {
		case <-waitCtx.Done():
			return nil, AskQuestionsResult{Success: false, Error: "timeout"}, nil

		case evt, ok := <-sub.Events():
			if !ok {
				return nil, AskQuestionsResult{Success: false, Error: "timeout"}, nil
			}
			if sc, isStatus := evt.(eventbus.StatusChanged); isStatus &&
				sc.Status != review.StatusDiscussing {
				break waitLoop
			}
		}
	}

	final, err := s.eng.GetReview(ctx, args.ReviewID, args.ProjectPath)
	if err != nil {
		return nil, AskQuestionsResult{}, err
	}

	var answers []AnswerTuple
	for _, q := range questions {
		c := final.FindComment(q.CommentID)
		if c != nil && c.Answer != nil {
			answers = append(answers, AnswerTuple{
				CommentID: q.CommentID,
				Answer:    *c.Answer,
			})
		}
	}

	return nil, AskQuestionsResult{Success: true, Answers: answers}, nil
}
