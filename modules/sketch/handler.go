package sketch

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// SessionStore - 세션별 스케치 버퍼와 포즈 상태 접근 (studio.Manager가 구현)
type SessionStore interface {
	SketchSurface(sessionID string) (*Surface, bool)
	ReplacePose(sessionID string, img model.RasterImage) bool
}

// StrokeMessage - 포인터 이벤트 메시지
// 좌표는 디스플레이 공간, 서버에서 버퍼 공간으로 변환
type StrokeMessage struct {
	Type          string  `json:"type"` // stroke_begin | stroke_move | stroke_end | clear
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
}

type Handler struct {
	sessions SessionStore
}

func NewHandler(sessions SessionStore) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/sketch", h.HandleWebSocket)
	r.HandleFunc("/api/session/{sessionId}/sketch", h.HandleGetSketch).Methods("GET")
	r.HandleFunc("/api/session/{sessionId}/sketch/clear", h.HandleClear).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/session/{sessionId}/sketch/use-as-pose", h.HandleUseAsPose).Methods("POST", "OPTIONS")
	log.Println("✅ Sketch routes registered: /ws/sketch, /api/session/{sessionId}/sketch")
}

// HandleWebSocket - GET /ws/sketch?session=<id>
// 포인터 이벤트 스트림을 세션의 스케치 버퍼에 적용
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	surface, ok := h.sessions.SketchSurface(sessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Sketch] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("🔍 [Sketch] New stroke stream - Session: %s", sessionID)

	for {
		var msg StrokeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ [Sketch] WebSocket error: %v", err)
			}
			break
		}

		// 메시지 타입에 따른 처리 (좌표는 디스플레이 → 버퍼 변환)
		switch msg.Type {
		case "stroke_begin":
			x, y := surface.MapDisplayPoint(msg.X, msg.Y, msg.DisplayWidth, msg.DisplayHeight)
			surface.BeginStroke(x, y)

		case "stroke_move":
			x, y := surface.MapDisplayPoint(msg.X, msg.Y, msg.DisplayWidth, msg.DisplayHeight)
			surface.ExtendStroke(x, y)

		case "stroke_end":
			surface.EndStroke()

		case "clear":
			log.Printf("🧹 [Sketch] Session %s cleared canvas", sessionID)
			surface.Clear()

		default:
			log.Printf("⚠️  [Sketch] Unknown message type: %s", msg.Type)
		}
	}

	log.Printf("👋 [Sketch] Stroke stream closed - Session: %s", sessionID)
}

// HandleGetSketch - GET /api/session/{sessionId}/sketch
// 현재 버퍼를 네이티브 해상도 PNG로 반환
func (h *Handler) HandleGetSketch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	surface, ok := h.sessions.SketchSurface(sessionID)
	if !ok {
		http.Error(w, `{"error": "Session not found"}`, http.StatusNotFound)
		return
	}

	pngData, err := surface.ExportPNG()
	if err != nil {
		log.Printf("❌ [Sketch] Export failed: %v", err)
		http.Error(w, `{"error": "Export failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(pngData)
}

// HandleClear - POST /api/session/{sessionId}/sketch/clear
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	surface, ok := h.sessions.SketchSurface(sessionID)
	if !ok {
		http.Error(w, `{"error": "Session not found"}`, http.StatusNotFound)
		return
	}

	surface.Clear()
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// HandleUseAsPose - POST /api/session/{sessionId}/sketch/use-as-pose
// 스케치를 PNG로 내보내 세션의 포즈 레퍼런스로 설정
func (h *Handler) HandleUseAsPose(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	surface, ok := h.sessions.SketchSurface(sessionID)
	if !ok {
		http.Error(w, `{"error": "Session not found"}`, http.StatusNotFound)
		return
	}

	// 빈 스케치는 포즈로 쓸 수 없음
	if surface.IsEmpty() {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       false,
			"error_message": "Sketch is empty - draw a pose first",
		})
		return
	}

	pngData, err := surface.ExportPNG()
	if err != nil {
		log.Printf("❌ [Sketch] Export failed: %v", err)
		http.Error(w, `{"error": "Export failed"}`, http.StatusInternalServerError)
		return
	}

	img := model.RasterImage{
		MimeType: "image/png",
		Width:    surface.Width(),
		Height:   surface.Height(),
		Data:     pngData,
	}

	if !h.sessions.ReplacePose(sessionID, img) {
		http.Error(w, `{"error": "Session not found"}`, http.StatusNotFound)
		return
	}

	log.Printf("✅ [Sketch] Session %s pose set from sketch (%d bytes)", sessionID, len(pngData))

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"mimeType": img.MimeType,
		"width":    img.Width,
		"height":   img.Height,
		"dataUrl":  utils.ToDataURL(img.MimeType, img.Data),
	})
}
