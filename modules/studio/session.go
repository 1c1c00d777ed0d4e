package studio

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/sketch"
)

// Session - 한 사용자의 작업 상태 (캐릭터 시트, 포즈, 스케치, 최근 결과)
// 업로드/스케치 핸들러만 상태를 변경하고, 생성 시점에는 스냅샷만 전달됨
type Session struct {
	id           string
	mutex        sync.RWMutex
	characters   []model.RasterImage // 업로드 순서 유지
	pose         *model.RasterImage
	surface      *sketch.Surface
	outcome      []model.RasterImage // 최근 생성 결과 (settlement 순서)
	createdAt    time.Time
	lastActivity time.Time
}

// ID - 세션 식별자
func (s *Session) ID() string { return s.id }

// AddCharacters - 캐릭터 시트를 순서대로 추가
func (s *Session) AddCharacters(imgs []model.RasterImage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.characters = append(s.characters, imgs...)
	s.lastActivity = time.Now()
}

// RemoveCharacter - 인덱스로 캐릭터 시트 제거
func (s *Session) RemoveCharacter(index int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if index < 0 || index >= len(s.characters) {
		return false
	}
	s.characters = append(s.characters[:index], s.characters[index+1:]...)
	s.lastActivity = time.Now()
	return true
}

// SetPose - 포즈 레퍼런스 교체 (이전 값은 버려짐)
func (s *Session) SetPose(img model.RasterImage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pose = &img
	s.lastActivity = time.Now()
}

// Snapshot - 생성 요청용 불변 스냅샷 (in-flight 배치는 이후 편집의 영향을 받지 않음)
func (s *Session) Snapshot() ([]model.RasterImage, *model.RasterImage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	chars := make([]model.RasterImage, len(s.characters))
	copy(chars, s.characters)

	var pose *model.RasterImage
	if s.pose != nil {
		p := *s.pose
		pose = &p
	}
	return chars, pose
}

// SetOutcome - 최근 생성 결과 저장
func (s *Session) SetOutcome(outcome []model.RasterImage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.outcome = outcome
	s.lastActivity = time.Now()
}

// Outcome - 최근 생성 결과 (복사본)
func (s *Session) Outcome() []model.RasterImage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]model.RasterImage, len(s.outcome))
	copy(out, s.outcome)
	return out
}

// Surface - 세션 소유 스케치 버퍼
func (s *Session) Surface() *sketch.Surface {
	return s.surface
}

// CharacterCount - 현재 캐릭터 시트 개수
func (s *Session) CharacterCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.characters)
}

// HasPose - 포즈 레퍼런스 설정 여부
func (s *Session) HasPose() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.pose != nil
}

// 서버 메트릭
type ServerMetrics struct {
	TotalSessions  int       `json:"totalSessions"`
	ActiveSessions int       `json:"activeSessions"`
	StartTime      time.Time `json:"startTime"`
	mutex          sync.RWMutex
}

// Manager - 세션 관리
type Manager struct {
	sessions     map[string]*Session
	mutex        sync.RWMutex
	metrics      *ServerMetrics
	sketchWidth  int
	sketchHeight int
}

// NewManager - 세션 매니저 생성
func NewManager(sketchWidth, sketchHeight int) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		sketchWidth:  sketchWidth,
		sketchHeight: sketchHeight,
		metrics: &ServerMetrics{
			StartTime: time.Now(),
		},
	}
}

// CreateSession - 새 세션 생성 (스케치 버퍼 할당 포함)
func (m *Manager) CreateSession() (*Session, error) {
	surface, err := sketch.NewSurface(m.sketchWidth, m.sketchHeight)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		id:           uuid.New().String(),
		surface:      surface,
		createdAt:    now,
		lastActivity: now,
	}

	m.mutex.Lock()
	m.sessions[session.id] = session
	m.mutex.Unlock()

	// 메트릭 업데이트
	m.metrics.mutex.Lock()
	m.metrics.TotalSessions++
	m.metrics.ActiveSessions++
	m.metrics.mutex.Unlock()

	log.Printf("✅ Created new session: %s (Total: %d, Active: %d)",
		session.id, m.metrics.TotalSessions, m.metrics.ActiveSessions)

	return session, nil
}

// GetSession - 세션 조회
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, exists := m.sessions[sessionID]
	return session, exists
}

// SketchSurface - sketch.SessionStore 구현
func (m *Manager) SketchSurface(sessionID string) (*sketch.Surface, bool) {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return nil, false
	}
	return session.Surface(), true
}

// ReplacePose - sketch.SessionStore 구현
func (m *Manager) ReplacePose(sessionID string, img model.RasterImage) bool {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return false
	}
	session.SetPose(img)
	return true
}

// Metrics - 메트릭 스냅샷
func (m *Manager) Metrics() (total, active int, startTime time.Time) {
	m.metrics.mutex.RLock()
	defer m.metrics.mutex.RUnlock()
	return m.metrics.TotalSessions, m.metrics.ActiveSessions, m.metrics.StartTime
}

// SessionAges - 세션별 생성/활동 시각 (메트릭 엔드포인트용)
func (m *Manager) SessionAges() []map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	details := make([]map[string]interface{}, 0, len(m.sessions))
	for id, session := range m.sessions {
		session.mutex.RLock()
		details = append(details, map[string]interface{}{
			"sessionId":    id,
			"characters":   len(session.characters),
			"hasPose":      session.pose != nil,
			"createdAt":    session.createdAt,
			"lastActivity": session.lastActivity,
			"age":          time.Since(session.createdAt).String(),
			"inactive":     time.Since(session.lastActivity).String(),
		})
		session.mutex.RUnlock()
	}
	return details
}

// cleanupExpiredSessions - 만료된 세션 정리 (24시간 경과 또는 2시간 비활성)
// 이미지는 세션과 함께 사라짐 (세션 간 영속성 없음)
func (m *Manager) cleanupExpiredSessions() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	cleaned := 0
	for sessionID, session := range m.sessions {
		session.mutex.RLock()
		isExpired := now.Sub(session.createdAt) > expiredThreshold
		isInactive := now.Sub(session.lastActivity) > inactiveThreshold
		session.mutex.RUnlock()

		if isExpired || isInactive {
			delete(m.sessions, sessionID)
			cleaned++

			// 메트릭 업데이트
			m.metrics.mutex.Lock()
			m.metrics.ActiveSessions--
			m.metrics.mutex.Unlock()

			reason := "expired"
			if isInactive && !isExpired {
				reason = "inactive"
			}
			log.Printf("⏰ Cleaned up %s session: %s (Age: %v, Inactive: %v)",
				reason, sessionID, now.Sub(session.createdAt), now.Sub(session.lastActivity))
		}
	}

	if cleaned > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive sessions (Active: %d)", cleaned, m.metrics.ActiveSessions)
	}
}

// StartCleanupRoutine - 정기적 정리 작업 시작 (30분마다)
func (m *Manager) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			m.cleanupExpiredSessions()
		}
	}()

	log.Printf("🔄 Started session cleanup routine (every 30min)")
}
