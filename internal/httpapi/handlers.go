package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/roasbeef/planreview/internal/engine"
	"github.com/roasbeef/planreview/internal/review"
)

// decode reads and unmarshals the request body into v, writing a
// ValidationError response and returning false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeError(w, review.ValidationErrorf("missing request body"))
		return false
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, review.ValidationErrorf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// decodeOptional unmarshals a request body that may legitimately be
// empty (routes like approve, whose fields are all optional). An
// empty or absent body leaves v unchanged; a malformed non-empty body
// still writes a ValidationError.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return true
		}
		writeError(w, review.ValidationErrorf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func projectParam(r *http.Request) string {
	return r.URL.Query().Get("project")
}

type createReviewRequest struct {
	Plan        string `json:"plan"`
	ProjectPath string `json:"projectPath"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if !decode(w, r, &req) {
		return
	}

	rev, err := s.eng.CreateReview(r.Context(), req.ProjectPath, req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	rev, err := s.eng.GetReview(r.Context(), r.PathValue("id"), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rev, err := s.eng.Latest(r.Context(), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// handlePending lists every non-terminal review for a project. Not part
// of spec §6's table; supplements it for operator tooling (the CLI's
// list command) that needs more than "latest".
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.eng.ListPending(r.Context(), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

type addCommentRequest struct {
	Quote    string              `json:"quote"`
	Comment  string              `json:"comment"`
	Position review.TextPosition `json:"position"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.eng.AddComment(r.Context(), r.PathValue("id"), projectParam(r),
		req.Quote, req.Comment, req.Position,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type editCommentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	var req editCommentRequest
	if !decode(w, r, &req) {
		return
	}

	err := s.eng.EditComment(r.Context(), r.PathValue("id"), projectParam(r),
		r.PathValue("cid"), req.Text,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	err := s.eng.DeleteComment(r.Context(), r.PathValue("id"), projectParam(r),
		r.PathValue("cid"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type answerQuestionRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerQuestionRequest
	if !decode(w, r, &req) {
		return
	}

	rev, err := s.eng.AnswerQuestion(r.Context(), r.PathValue("id"), projectParam(r),
		r.PathValue("cid"), req.Answer,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type updatePlanRequest struct {
	Content           string            `json:"content"`
	Author            review.Author     `json:"author"`
	ChangeDescription string            `json:"changeDescription"`
	ResolvedComments  map[string]string `json:"resolvedComments"`
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Author == "" {
		req.Author = review.AuthorAgent
	}

	rev, err := s.eng.UpdatePlan(r.Context(), r.PathValue("id"), projectParam(r),
		req.Content, req.ChangeDescription, req.Author, req.ResolvedComments,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.eng.Versions(r.Context(), r.PathValue("id"), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.GetVersion(r.Context(), r.PathValue("id"), projectParam(r),
		r.PathValue("hash"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	d, err := s.eng.Diff(r.Context(), r.PathValue("id"), projectParam(r), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type rollbackRequest struct {
	VersionHash string `json:"versionHash"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if !decode(w, r, &req) {
		return
	}

	rev, err := s.eng.Rollback(r.Context(), r.PathValue("id"), projectParam(r), req.VersionHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type approveRequest struct {
	Note        string `json:"note"`
	PassThrough bool   `json:"passThrough"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	rev, err := s.eng.Approve(r.Context(), r.PathValue("id"), projectParam(r),
		req.Note, req.PassThrough,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleRequestChanges(w http.ResponseWriter, r *http.Request) {
	rev, err := s.eng.SubmitFeedback(r.Context(), r.PathValue("id"), projectParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type askQuestionsRequest struct {
	Questions []struct {
		CommentID string              `json:"commentId"`
		Type      review.QuestionType `json:"type"`
		Message   string              `json:"message"`
		Options   []string            `json:"options"`
	} `json:"questions"`
}

func (s *Server) handleAskQuestions(w http.ResponseWriter, r *http.Request) {
	var req askQuestionsRequest
	if !decode(w, r, &req) {
		return
	}

	questions := make([]engine.AskedQuestion, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = engine.AskedQuestion{
			CommentID: q.CommentID,
			Type:      q.Type,
			Message:   q.Message,
			Options:   q.Options,
		}
	}

	rev, err := s.eng.AskQuestions(r.Context(), r.PathValue("id"), projectParam(r), questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.gw.ServeHTTP(w, r, r.PathValue("id"), projectParam(r))
}
