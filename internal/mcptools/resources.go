package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/planreview/internal/review"
)

// PendingSummary is the shape returned by the pending-reviews resource:
// id, status, timestamps, counts, per spec §4.6 — not the full plan
// content or comment bodies, which the current/full resources carry.
type PendingSummary struct {
	ID              string        `json:"id"`
	Status          review.Status `json:"status"`
	CreatedAt       string        `json:"createdAt"`
	CommentCount    int           `json:"commentCount"`
	UnresolvedCount int           `json:"unresolvedCount"`
}

func summarize(r *review.Review) PendingSummary {
	return PendingSummary{
		ID:              r.ID,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt.Format(rfc3339Milli),
		CommentCount:    len(r.Comments),
		UnresolvedCount: len(r.UnresolvedCommentIDs()),
	}
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "review://project/{encodedPath}/pending",
		Name:        "pending-reviews",
		Description: "Summary list of non-terminal reviews for a project",
		MIMEType:    "application/json",
	}, s.handlePendingResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "review://project/{encodedPath}/current",
		Name:        "current-review",
		Description: "The freshest pending review for a project, in full",
		MIMEType:    "application/json",
	}, s.handleCurrentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "review://{id}",
		Name:        "review",
		Description: "One review, in full",
		MIMEType:    "application/json",
	}, s.handleReviewResource)
}

// projectFromURI extracts the {encodedPath} segment from a
// review://project/{encodedPath}/<suffix> URI. The extracted segment is
// already path-encoded (per spec, the URI itself carries the encoded
// form); passing it straight through to the Store's own EncodePath is
// safe because that encoding is idempotent on a string that no longer
// contains "/" or ":".
func projectFromURI(uri, suffix string) (string, bool) {
	const prefix = "review://project/"
	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix), true
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func (s *Server) handlePendingResource(ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	encodedPath, ok := projectFromURI(req.Params.URI, "/pending")
	if !ok {
		return nil, fmt.Errorf("malformed pending-reviews URI %q", req.Params.URI)
	}

	pending, err := s.eng.ListPending(ctx, encodedPath)
	if err != nil {
		return nil, err
	}

	summaries := make([]PendingSummary, len(pending))
	for i, r := range pending {
		summaries[i] = summarize(r)
	}

	return jsonContents(req.Params.URI, summaries)
}

func (s *Server) handleCurrentResource(ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	encodedPath, ok := projectFromURI(req.Params.URI, "/current")
	if !ok {
		return nil, fmt.Errorf("malformed current-review URI %q", req.Params.URI)
	}

	r, err := s.eng.LatestPending(ctx, encodedPath)
	if err != nil {
		return nil, err
	}

	return jsonContents(req.Params.URI, r)
}

func (s *Server) handleReviewResource(ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	const prefix = "review://"
	if !strings.HasPrefix(req.Params.URI, prefix) ||
		strings.Contains(strings.TrimPrefix(req.Params.URI, prefix), "/") {
		return nil, fmt.Errorf("malformed review URI %q", req.Params.URI)
	}
	id := strings.TrimPrefix(req.Params.URI, prefix)

	r, err := s.eng.GetReview(ctx, id, "")
	if err != nil {
		return nil, err
	}

	return jsonContents(req.Params.URI, r)
}
