package httpapi

// registerRoutes wires the routes from spec §6 onto s.mux, plus the
// pending-list and markdown-preview routes supplementing the operator
// CLI and browser preview pane, using Go's method+pattern ServeMux
// syntax.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/reviews", s.handleCreateReview)
	s.mux.HandleFunc("GET /api/reviews/latest", s.handleLatest)
	s.mux.HandleFunc("GET /api/reviews/pending", s.handlePending)
	s.mux.HandleFunc("GET /api/reviews/{id}", s.handleGetReview)
	s.mux.HandleFunc("POST /api/reviews/{id}/comments", s.handleAddComment)
	s.mux.HandleFunc("PUT /api/reviews/{id}/comments/{cid}", s.handleEditComment)
	s.mux.HandleFunc("DELETE /api/reviews/{id}/comments/{cid}", s.handleDeleteComment)
	s.mux.HandleFunc("POST /api/reviews/{id}/comments/{cid}/answer", s.handleAnswerQuestion)
	s.mux.HandleFunc("PUT /api/reviews/{id}/plan", s.handleUpdatePlan)
	s.mux.HandleFunc("GET /api/reviews/{id}/versions", s.handleVersions)
	s.mux.HandleFunc("GET /api/reviews/{id}/versions/{hash}", s.handleVersion)
	s.mux.HandleFunc("GET /api/reviews/{id}/diff", s.handleDiff)
	s.mux.HandleFunc("POST /api/reviews/{id}/rollback", s.handleRollback)
	s.mux.HandleFunc("POST /api/reviews/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("POST /api/reviews/{id}/request-changes", s.handleRequestChanges)
	s.mux.HandleFunc("POST /api/reviews/{id}/ask-questions", s.handleAskQuestions)
	s.mux.HandleFunc("GET /api/reviews/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/reviews/{id}/preview", s.handlePreview)
}
