package studio

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Handler - 세션 생성/조회/메트릭 HTTP 핸들러
type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/session", h.HandleCreateSession).Methods("POST")
	router.HandleFunc("/api/session/{sessionId}", h.HandleGetSession).Methods("GET")
	router.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
}

// HandleCreateSession - 새 세션 발급
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.CreateSession()
	if err != nil {
		log.Printf("❌ [Studio] Failed to create session: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       false,
			"error_message": "Failed to create session",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"sessionId": session.ID(),
	})
}

// HandleGetSession - 세션 상태 요약
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       false,
			"error_message": "Session not found",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"sessionId":      session.ID(),
		"characterCount": session.CharacterCount(),
		"hasPose":        session.HasPose(),
		"hasSketch":      !session.Surface().IsEmpty(),
		"resultCount":    len(session.Outcome()),
	})
}

// HandleMetrics - 서버 메트릭
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	total, active, startTime := h.manager.Metrics()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"totalSessions":  total,
		"activeSessions": active,
		"uptime":         time.Since(startTime).String(),
		"startTime":      startTime,
		"sessions":       h.manager.SessionAges(),
	})
}
