package learning

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/adaptive-learn/backend/internal/auth"
	"github.com/adaptive-learn/backend/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all learning endpoints on the protected router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/learning/sessions", h.RecordSession).Methods("POST")
	r.HandleFunc("/learning/style", h.StyleProfile).Methods("GET")
	r.HandleFunc("/learning/style/analyze", h.AnalyzeStyle).Methods("POST")
	r.HandleFunc("/learning/recommendations", h.Recommendations).Methods("POST")
	r.HandleFunc("/learning/recommendations/{id:[0-9]+}/feedback", h.RecommendationFeedback).Methods("POST")
	r.HandleFunc("/learning/reviews", h.ReviewQueue).Methods("GET")
	r.HandleFunc("/learning/learning-path", h.LearningPath).Methods("GET")
	r.HandleFunc("/learning/adapt", h.Adapt).Methods("POST")
	r.HandleFunc("/learning/content/generate", h.GenerateContent).Methods("POST")
	r.HandleFunc("/learning/content/{id:[0-9]+}", h.GetContent).Methods("GET")
	r.HandleFunc("/learning/progress", h.Progress).Methods("GET")
	r.HandleFunc("/learning/analytics", h.Analytics).Methods("GET")
}

func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.RecordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if msg := validateSession(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg})
		return
	}

	resp, err := h.svc.RecordSession(userID, req)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func validateSession(req models.RecordSessionRequest) string {
	if req.SessionType != "" && req.SessionType != models.SessionStudy && req.SessionType != models.SessionReview {
		return "session_type must be study or review"
	}
	if req.Duration < 0 {
		return "duration must not be negative"
	}
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"performance_score", req.Performance},
		{"engagement_score", req.Engagement},
		{"difficulty_level", req.Difficulty},
	} {
		if check.value < 0 || check.value > 1 {
			return check.name + " must be between 0 and 1"
		}
	}
	if req.Feedback != nil && (req.Feedback.Rating < 1 || req.Feedback.Rating > 5) {
		return "feedback rating must be between 1 and 5"
	}
	return ""
}

func (h *Handler) StyleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	profile, err := h.svc.StyleProfile(userID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) AnalyzeStyle(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	profile, err := h.svc.AnalyzeStyle(userID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.RecommendationsRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
			return
		}
	}
	if req.Context != nil && req.Context.TimeAvailable < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "time_available must not be negative"})
		return
	}

	resp, err := h.svc.Recommendations(userID, req)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RecommendationFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	recID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid recommendation id"})
		return
	}

	var req models.RecommendationFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "rating must be between 1 and 5"})
		return
	}

	found, err := h.svc.RecommendationFeedback(userID, recID, req.Rating)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Recommendation not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	items, err := h.svc.ReviewQueue(userID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if items == nil {
		items = []models.ReviewItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": items})
}

func (h *Handler) LearningPath(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var goals []string
	for _, g := range strings.Split(r.URL.Query().Get("goals"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "goals is required"})
		return
	}

	timeAvailable := 60
	if v := r.URL.Query().Get("time_available"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "time_available must be a positive number of minutes"})
			return
		}
		timeAvailable = parsed
	}

	path, err := h.svc.LearningPath(userID, goals, timeAvailable)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

func (h *Handler) Adapt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.AdaptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.SessionID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "session_id is required"})
		return
	}
	if req.CurrentPerformance < 0 || req.CurrentPerformance > 1 || req.CurrentEngagement < 0 || req.CurrentEngagement > 1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "performance and engagement must be between 0 and 1"})
		return
	}

	resp, err := h.svc.Adapt(userID, req)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if resp == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateContent(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	switch req.ContentType {
	case "lesson", "quiz", "exercise":
	default:
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "content_type must be lesson, quiz, or exercise"})
		return
	}
	if req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic is required"})
		return
	}
	if req.DifficultyLevel < 0 || req.DifficultyLevel > 1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty_level must be between 0 and 1"})
		return
	}

	content, err := h.svc.GenerateContent(r.Context(), userID, req)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, content)
}

func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(r); !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid content id"})
		return
	}
	content, err := h.svc.Content(id)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if content == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Content not found"})
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	progress, err := h.svc.Progress(userID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if progress == nil {
		progress = []models.TopicProgress{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "days must be between 1 and 365"})
			return
		}
		days = parsed
	}

	report, err := h.svc.Analytics(userID, days)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func userID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(auth.UserIDKey).(int64)
	return id, ok
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	// The wrapped error carries the failing operation.
	log.Printf("[learning] %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
