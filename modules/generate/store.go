package generate

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"manga-canvas-server/modules/common/model"
)

// jobRecord - Job 상태 + enqueue 시점의 입력 스냅샷
type jobRecord struct {
	Job     model.GenerationJob
	Request GenerationRequest
}

// JobStore - 비동기 Job의 in-memory TTL 저장소
// 세션처럼 24시간 뒤 만료, 세션 간 영속성 없음
type JobStore struct {
	cache *cache.Cache
	mutex sync.Mutex
}

func NewJobStore() *JobStore {
	return &JobStore{
		cache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

// Put - 새 Job과 입력 스냅샷 저장
func (s *JobStore) Put(job model.GenerationJob, req GenerationRequest) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cache.Set(job.JobID, jobRecord{Job: job, Request: req}, cache.DefaultExpiration)
}

// Get - Job 상태 조회 (복사본 반환)
func (s *JobStore) Get(jobID string) (model.GenerationJob, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	raw, found := s.cache.Get(jobID)
	if !found {
		return model.GenerationJob{}, false
	}
	return raw.(jobRecord).Job, true
}

// Request - enqueue 시점의 입력 스냅샷 조회
func (s *JobStore) Request(jobID string) (GenerationRequest, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	raw, found := s.cache.Get(jobID)
	if !found {
		return GenerationRequest{}, false
	}
	return raw.(jobRecord).Request, true
}

// Update - Job 상태 변경 (read-modify-write를 mutex로 직렬화)
func (s *JobStore) Update(jobID string, fn func(*model.GenerationJob)) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	raw, found := s.cache.Get(jobID)
	if !found {
		return false
	}

	record := raw.(jobRecord)
	fn(&record.Job)
	s.cache.Set(jobID, record, cache.DefaultExpiration)
	return true
}
