package results

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
	"manga-canvas-server/modules/studio"
)

const previewQuality = 75 // WebP 미리보기 품질

// Handler - 생성 결과 조회/다운로드 HTTP 핸들러
type Handler struct {
	manager *studio.Manager
}

func NewHandler(manager *studio.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/session/{sessionId}/results", h.HandleListResults).Methods("GET")
	router.HandleFunc("/api/session/{sessionId}/results/{ordinal}/download", h.HandleDownload).Methods("GET")
	router.HandleFunc("/api/session/{sessionId}/results/{ordinal}/preview", h.HandlePreview).Methods("GET")
}

func writeNotFound(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       false,
		"error_message": message,
	})
}

// HandleListResults - 최근 배치 결과 목록 (1-base ordinal, 완료 순서 유지)
func (h *Handler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeNotFound(w, "Session not found")
		return
	}

	outcome := session.Outcome()
	results := make([]map[string]interface{}, 0, len(outcome))
	for i, img := range outcome {
		results = append(results, map[string]interface{}{
			"ordinal":  i + 1,
			"dataUrl":  utils.ToDataURL(img.MimeType, img.Data),
			"mimeType": img.MimeType,
			"width":    img.Width,
			"height":   img.Height,
			"filename": fmt.Sprintf("manga-panel-%d.png", i+1),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"resultCount": len(results),
		"results":     results,
	})
}

// resultByOrdinal - ordinal 파싱 + 범위 확인
// 검증과 조회가 같은 스냅샷을 보도록 이미지를 여기서 꺼냄
// (새 배치가 outcome을 교체해도 진행 중인 응답은 영향받지 않음)
func (h *Handler) resultByOrdinal(w http.ResponseWriter, r *http.Request) (model.RasterImage, int, bool) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeNotFound(w, "Session not found")
		return model.RasterImage{}, 0, false
	}

	outcome := session.Outcome()
	ordinal, err := strconv.Atoi(vars["ordinal"])
	if err != nil || ordinal < 1 || ordinal > len(outcome) {
		writeNotFound(w, fmt.Sprintf("Result ordinal out of range: %s", vars["ordinal"]))
		return model.RasterImage{}, 0, false
	}

	return outcome[ordinal-1], ordinal, true
}

// HandleDownload - PNG 다운로드 (manga-panel-<ordinal>.png)
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	img, ordinal, ok := h.resultByOrdinal(w, r)
	if !ok {
		return
	}

	// 다운로드는 항상 PNG로
	pngData, err := utils.TranscodeToPNG(img.MimeType, img.Data)
	if err != nil {
		log.Printf("❌ [Results] Failed to transcode result %d to PNG: %v", ordinal, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       false,
			"error_message": "Failed to prepare download",
		})
		return
	}

	filename := fmt.Sprintf("manga-panel-%d.png", ordinal)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pngData)))
	w.Write(pngData)

	log.Printf("💾 [Results] Downloaded %s (%d bytes)", filename, len(pngData))
}

// HandlePreview - WebP 미리보기 (손실 압축으로 전송량 절감)
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	img, ordinal, ok := h.resultByOrdinal(w, r)
	if !ok {
		return
	}

	pngData, err := utils.TranscodeToPNG(img.MimeType, img.Data)
	if err == nil {
		if webpData, werr := utils.ConvertPNGToWebP(pngData, previewQuality); werr == nil {
			w.Header().Set("Content-Type", "image/webp")
			w.Header().Set("Content-Length", strconv.Itoa(len(webpData)))
			w.Write(webpData)
			return
		}
	}

	// WebP 변환 실패 시 원본 그대로 전송
	log.Printf("⚠️ [Results] WebP preview failed for ordinal %d, serving original (%s)", ordinal, img.MimeType)
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Write(img.Data)
}
