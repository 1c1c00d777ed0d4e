package generate

import (
	"manga-canvas-server/modules/common/model"
)

// GenerationRequest - 생성 배치의 불변 입력 스냅샷
// 세션에서 스냅샷으로 떼어낸 뒤에는 세션 편집의 영향을 받지 않음
type GenerationRequest struct {
	Characters []model.RasterImage
	Pose       *model.RasterImage
	Context    string
}

// generateRequestBody - POST /api/generate, /api/enqueue 요청 본문
type generateRequestBody struct {
	Context string `json:"context,omitempty"`
}

// queuedJob - Redis 큐에 직렬화되는 Job 메시지
// 이미지 자체는 큐에 싣지 않고 세션 스냅샷을 JobStore가 들고 있음
type queuedJob struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	Context   string `json:"context,omitempty"`
}

const generationQueueKey = "manga_generation_queue"
