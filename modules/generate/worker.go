package generate

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/studio"
)

// Worker - Redis 큐에서 생성 Job을 꺼내 처리
type Worker struct {
	service     *Service
	manager     *studio.Manager
	store       *JobStore
	redisClient *redis.Client
}

func NewWorker(service *Service, manager *studio.Manager, store *JobStore, redisClient *redis.Client) *Worker {
	return &Worker{
		service:     service,
		manager:     manager,
		store:       store,
		redisClient: redisClient,
	}
}

// Start - BRPOP 루프 시작 (Redis 미연결 시 즉시 반환, in-process 경로만 사용)
func (w *Worker) Start(ctx context.Context) {
	if w.redisClient == nil {
		log.Printf("⚠️ [Worker] Redis not connected - queue worker disabled, jobs run in-process")
		return
	}

	log.Printf("👷 [Worker] Generation worker started (queue: %s)", generationQueueKey)

	for {
		select {
		case <-ctx.Done():
			log.Printf("👋 [Worker] Generation worker stopped")
			return
		default:
		}

		// BRPOP: 5초 타임아웃으로 블로킹 대기
		result, err := w.redisClient.BRPop(ctx, 5*time.Second, generationQueueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue // 타임아웃, 큐 비어있음
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ [Worker] BRPOP error: %v", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var msg queuedJob
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			log.Printf("❌ [Worker] Failed to unmarshal job message: %v", err)
			continue
		}

		log.Printf("🔨 [Worker] Processing job %s (session %s)", msg.JobID, msg.SessionID)
		w.processJob(ctx, msg.JobID)
	}
}

// processJob - Job 하나를 끝까지 처리 (상태 전이: pending → processing → completed/failed)
func (w *Worker) processJob(ctx context.Context, jobID string) {
	req, found := w.store.Request(jobID)
	if !found {
		log.Printf("⚠️ [Worker] Job %s not found in store (expired?)", jobID)
		return
	}

	startedAt := time.Now()
	w.store.Update(jobID, func(job *model.GenerationJob) {
		job.JobStatus = model.StatusProcessing
		job.StartedAt = &startedAt
	})

	outcome, err := w.service.GenerateBatch(ctx, req)
	completedAt := time.Now()

	if err != nil {
		log.Printf("❌ [Worker] Job %s failed: %v", jobID, err)
		w.store.Update(jobID, func(job *model.GenerationJob) {
			job.JobStatus = model.StatusFailed
			job.ErrorMessage = err.Error()
			job.CompletedAt = &completedAt
		})
		return
	}

	// 세션 반영을 먼저 하고 완료로 전환 (completed를 본 클라이언트는 결과도 볼 수 있어야 함)
	if job, found := w.store.Get(jobID); found {
		if session, exists := w.manager.GetSession(job.SessionID); exists {
			session.SetOutcome(outcome)
		}
	}

	w.store.Update(jobID, func(job *model.GenerationJob) {
		job.JobStatus = model.StatusCompleted
		job.Outcome = outcome
		job.CompletedAt = &completedAt
	})

	log.Printf("🏁 [Worker] Job %s completed: %d images", jobID, len(outcome))
}
