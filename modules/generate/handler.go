package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
	"manga-canvas-server/modules/studio"
)

// Handler - 생성 요청 HTTP 핸들러 (동기 + 비동기 Job 경로)
type Handler struct {
	service     *Service
	manager     *studio.Manager
	store       *JobStore
	worker      *Worker
	redisClient *redis.Client
}

func NewHandler(service *Service, manager *studio.Manager, store *JobStore, worker *Worker, redisClient *redis.Client) *Handler {
	return &Handler{
		service:     service,
		manager:     manager,
		store:       store,
		worker:      worker,
		redisClient: redisClient,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/session/{sessionId}/generate", h.HandleGenerate).Methods("POST")
	router.HandleFunc("/api/session/{sessionId}/enqueue", h.HandleEnqueue).Methods("POST")
	router.HandleFunc("/api/jobs/{jobId}", h.HandleJobStatus).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeGenerationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrBatchExhausted):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]interface{}{
		"success":       false,
		"error_message": err.Error(),
	})
}

// snapshotRequest - 세션 상태를 불변 요청으로 복사
func (h *Handler) snapshotRequest(sessionID, contextText string) (GenerationRequest, bool) {
	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		return GenerationRequest{}, false
	}

	characters, pose := session.Snapshot()
	return GenerationRequest{
		Characters: characters,
		Pose:       pose,
		Context:    contextText,
	}, true
}

// HandleGenerate - 동기 생성: 배치 완료까지 대기 후 결과 반환
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	var body generateRequestBody
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) // 빈 본문 허용
	}

	req, exists := h.snapshotRequest(sessionID, body.Context)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":       false,
			"error_message": "Session not found",
		})
		return
	}

	outcome, err := h.service.GenerateBatch(r.Context(), req)
	if err != nil {
		log.Printf("❌ [Generate] Batch failed for session %s: %v", sessionID, err)
		writeGenerationError(w, err)
		return
	}

	session, _ := h.manager.GetSession(sessionID)
	if session != nil {
		session.SetOutcome(outcome)
	}

	results := make([]map[string]interface{}, 0, len(outcome))
	for i, img := range outcome {
		results = append(results, map[string]interface{}{
			"ordinal": i + 1,
			"dataUrl": utils.ToDataURL(img.MimeType, img.Data),
			"width":   img.Width,
			"height":  img.Height,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"resultCount": len(outcome),
		"results":     results,
	})
}

// HandleEnqueue - 비동기 생성: Job 발급 후 즉시 반환
func (h *Handler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	var body generateRequestBody
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	req, exists := h.snapshotRequest(sessionID, body.Context)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":       false,
			"error_message": "Session not found",
		})
		return
	}

	// 검증은 enqueue 시점에 수행 (호출 시작 전 거부와 같은 의미)
	if len(req.Characters) == 0 {
		writeGenerationError(w, model.NewValidationError("at least one character image is required"))
		return
	}
	if req.Pose == nil {
		writeGenerationError(w, model.NewValidationError("pose reference is required"))
		return
	}

	job := model.GenerationJob{
		JobID:       uuid.New().String(),
		SessionID:   sessionID,
		Context:     body.Context,
		JobStatus:   model.StatusPending,
		TotalImages: h.service.variationCount,
		CreatedAt:   time.Now(),
	}
	h.store.Put(job, req)

	if h.redisClient != nil {
		payload, err := json.Marshal(queuedJob{
			JobID:     job.JobID,
			SessionID: sessionID,
			Context:   body.Context,
		})
		if err == nil {
			if err := h.redisClient.LPush(r.Context(), generationQueueKey, payload).Err(); err != nil {
				log.Printf("⚠️ [Generate] Redis enqueue failed, falling back to in-process: %v", err)
				go h.worker.processJob(context.Background(), job.JobID)
			} else {
				log.Printf("📥 [Generate] Job %s enqueued for session %s", job.JobID, sessionID)
			}
		}
	} else {
		// Redis 없이 기동한 경우 in-process 처리
		go h.worker.processJob(context.Background(), job.JobID)
		log.Printf("📥 [Generate] Job %s started in-process for session %s", job.JobID, sessionID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":     true,
		"jobId":       job.JobID,
		"jobStatus":   job.JobStatus,
		"totalImages": job.TotalImages,
	})
}

// HandleJobStatus - Job 상태 조회
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["jobId"]

	job, found := h.store.Get(jobID)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":       false,
			"error_message": "Job not found",
		})
		return
	}

	response := map[string]interface{}{
		"success":     true,
		"jobId":       job.JobID,
		"sessionId":   job.SessionID,
		"jobStatus":   job.JobStatus,
		"totalImages": job.TotalImages,
		"resultCount": len(job.Outcome),
		"createdAt":   job.CreatedAt,
	}
	if job.ErrorMessage != "" {
		response["error_message"] = job.ErrorMessage
	}
	if job.StartedAt != nil {
		response["startedAt"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		response["completedAt"] = job.CompletedAt
	}

	writeJSON(w, http.StatusOK, response)
}
