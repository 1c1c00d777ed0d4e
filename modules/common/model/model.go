package model

import (
	"errors"
	"fmt"
	"time"
)

// RasterImage - 인코딩된 이미지 페이로드 (생성 후 불변)
type RasterImage struct {
	MimeType string `json:"mime_type"` // image/png, image/jpeg, image/webp
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Data     []byte `json:"-"` // 원본 바이너리 (JSON 응답에는 data_url로 노출)
}

// GenerationJob - 비동기 생성 Job 상태 (in-memory store에 저장)
type GenerationJob struct {
	JobID        string        `json:"job_id"`
	SessionID    string        `json:"session_id"`
	Context      string        `json:"context,omitempty"`
	JobStatus    string        `json:"job_status"`
	TotalImages  int           `json:"total_images"`
	Outcome      []RasterImage `json:"-"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidationError - 입력 검증 실패 (캐릭터 없음, 포즈 없음, 이미지 아닌 파일 등)
// 사용자에게 즉시 노출, 재시도 없음
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError - ValidationError 생성
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError - ValidationError 여부 확인
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DecodeError - 개별 파일 디코딩 실패
// 배치 전체가 비지 않는 한 사용자에게 노출하지 않음
type DecodeError struct {
	Name string // 파일명 또는 인덱스 표기
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrRemoteCall - 단일 생성 호출 실패 (예외, 빈 candidate, InlineData 없음)
// 해당 호출만 "no image"로 강등, 배치는 계속 진행
var ErrRemoteCall = errors.New("remote generation call failed")

// ErrBatchExhausted - 모든 병렬 호출 실패 ("no images produced")
// 배치 전체의 유일한 실패 신호
var ErrBatchExhausted = errors.New("no images produced")
