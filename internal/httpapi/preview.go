package httpapi

import (
	"bytes"
	"net/http"

	"github.com/yuin/goldmark"
)

// handlePreview renders a review's current plan content to HTML for
// the browser preview pane, per SPEC_FULL §11 — wiring goldmark, which
// the teacher's go.mod carries but never imports anywhere in its
// source.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rev, err := s.eng.GetReview(r.Context(), r.PathValue("id"), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(rev.PlanContent), &buf); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
