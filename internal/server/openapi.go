package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/soobo/sleeptype/internal/store"
)

type sessionPath struct {
	SessionID string `path:"sessionId"`
}

type submitAnswersInput struct {
	sessionPath
	SubmitAnswersRequest
}

type completeSessionInput struct {
	sessionPath
	CompleteSessionRequest
}

type listSessionsQuery struct {
	Page       int    `query:"page" minimum:"1" default:"1"`
	Limit      int    `query:"limit" minimum:"1" maximum:"100" default:"20"`
	Completed  *bool  `query:"completed"`
	ResultType string `query:"resultType"`
	StartDate  string `query:"startDate" format:"date"`
	EndDate    string `query:"endDate" format:"date"`
}

type answerAnalysisQuery struct {
	QuestionID string `query:"questionId"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Sleep Type API"
	r.Spec.Info.Version = "1.0.0"
	r.Spec.Info.WithDescription("Sessions, scoring and analytics for the sleep type survey.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/types
	listTypes, _ := r.NewOperationContext(http.MethodGet, "/api/types")
	listTypes.SetSummary("List result types")
	listTypes.SetDescription("Returns the sixteen sleep types with their axis keys and labels.")
	listTypes.AddRespStructure([]ResultTypeItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTypes)

	// POST /api/sessions
	startSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	startSession.SetSummary("Start session")
	startSession.SetDescription("Creates an empty survey session.")
	startSession.AddRespStructure(StartSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(startSession)

	// GET /api/sessions/{sessionId}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionId}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the answers and, once completed, the result of a session.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// PUT /api/sessions/{sessionId}/answers
	submitAnswers, _ := r.NewOperationContext(http.MethodPut, "/api/sessions/{sessionId}/answers")
	submitAnswers.SetSummary("Submit answers")
	submitAnswers.SetDescription("Merges a batch of answers into an open session. The latest answer per question wins.")
	submitAnswers.AddReqStructure(submitAnswersInput{})
	submitAnswers.AddRespStructure(SubmitAnswersResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	submitAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	submitAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(submitAnswers)

	// POST /api/sessions/{sessionId}/complete
	completeSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionId}/complete")
	completeSession.SetSummary("Complete session")
	completeSession.SetDescription("Merges late answers, computes the sleep type and closes the session. A client-computed result is ignored.")
	completeSession.AddReqStructure(completeSessionInput{})
	completeSession.AddRespStructure(CompleteSessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	completeSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	completeSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(completeSession)

	// GET /api/data/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/data/stats")
	getStats.SetSummary("Survey statistics")
	getStats.SetDescription("Completion rate, result distribution and daily completions. Basic auth when configured.")
	getStats.AddRespStructure(store.Stats{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getStats)

	// GET /api/data/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/data/sessions")
	listSessions.SetSummary("List sessions")
	listSessions.SetDescription("Paginated sessions, newest first. Basic auth when configured.")
	listSessions.AddReqStructure(listSessionsQuery{})
	listSessions.AddRespStructure(store.SessionPage{}, openapi.WithHTTPStatus(http.StatusOK))
	listSessions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	listSessions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listSessions)

	// GET /api/data/answers/analysis
	analysis, _ := r.NewOperationContext(http.MethodGet, "/api/data/answers/analysis")
	analysis.SetSummary("Answer analysis")
	analysis.SetDescription("Choice counts per question over completed sessions. Basic auth when configured.")
	analysis.AddReqStructure(answerAnalysisQuery{})
	analysis.AddRespStructure(AnswerAnalysisResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	analysis.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(analysis)

	// GET /api/data/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/data/events")
	getEvents.SetSummary("Completion event stream")
	getEvents.SetDescription("Server-Sent Events stream of session_completed events.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
