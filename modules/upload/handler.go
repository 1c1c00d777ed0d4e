package upload

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
	"manga-canvas-server/modules/studio"
)

const maxUploadSize = 50 << 20 // 50MB

// dataURLUpload - JSON 경로 업로드 항목
type dataURLUpload struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

type characterUploadRequest struct {
	Images []dataURLUpload `json:"images"`
}

type poseUploadRequest struct {
	DataURL string `json:"dataUrl"`
}

// Handler - 캐릭터 시트/포즈 업로드 HTTP 핸들러
type Handler struct {
	service *Service
	manager *studio.Manager
}

func NewHandler(service *Service, manager *studio.Manager) *Handler {
	return &Handler{service: service, manager: manager}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/session/{sessionId}/characters", h.HandleUploadCharacters).Methods("POST")
	router.HandleFunc("/api/session/{sessionId}/characters/{index}", h.HandleRemoveCharacter).Methods("DELETE")
	router.HandleFunc("/api/session/{sessionId}/pose", h.HandleUploadPose).Methods("POST")
}

// writeError - 에러 응답 (ValidationError/DecodeError → 400)
func writeError(w http.ResponseWriter, err error, fallbackStatus int) {
	status := fallbackStatus
	var decodeErr *model.DecodeError
	if model.IsValidationError(err) || errors.As(err, &decodeErr) {
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       false,
		"error_message": err.Error(),
	})
}

func writeSessionNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       false,
		"error_message": "Session not found",
	})
}

// isJSONRequest - Content-Type 판별 (charset 파라미터 허용)
func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// collectFiles - multipart 또는 JSON 본문에서 업로드 파일 수집
func (h *Handler) collectFiles(r *http.Request) ([]UploadedFile, error) {
	// JSON data URL 경로 (스케치 내보내기 등 브라우저 측 생성 이미지)
	if isJSONRequest(r) {
		var req characterUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, model.NewValidationError("invalid JSON body: %v", err)
		}

		files := make([]UploadedFile, 0, len(req.Images))
		for _, item := range req.Images {
			data, err := utils.DecodeDataURL(item.DataURL)
			if err != nil {
				// 깨진 data URL은 디코딩 실패 파일과 같은 취급 - 배치에서 건너뜀
				log.Printf("⚠️ [Upload] Undecodable data URL for %s: %v", item.Name, err)
				files = append(files, UploadedFile{Name: item.Name, Data: []byte(item.DataURL)})
				continue
			}
			files = append(files, UploadedFile{
				Name:        item.Name,
				ContentType: utils.DataURLMimeType(item.DataURL),
				Data:        data,
			})
		}
		return files, nil
	}

	// multipart 경로
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, model.NewValidationError("failed to parse multipart form: %v", err)
	}

	fileHeaders := r.MultipartForm.File["files"]
	files := make([]UploadedFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			return nil, model.NewValidationError("failed to open uploaded file %s: %v", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, model.NewValidationError("failed to read uploaded file %s: %v", header.Filename, err)
		}
		files = append(files, UploadedFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// HandleUploadCharacters - 캐릭터 시트 업로드 (배치)
func (h *Handler) HandleUploadCharacters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeSessionNotFound(w)
		return
	}

	files, err := h.collectFiles(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	accepted, err := h.service.NormalizeBatch(files)
	if err != nil {
		log.Printf("❌ [Upload] Character batch rejected for session %s: %v", sessionID, err)
		writeError(w, err, http.StatusBadRequest)
		return
	}

	session.AddCharacters(accepted)
	log.Printf("📤 [Upload] Session %s now has %d character images", sessionID, session.CharacterCount())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"accepted":       len(accepted),
		"skipped":        len(files) - len(accepted),
		"characterCount": session.CharacterCount(),
	})
}

// HandleRemoveCharacter - 인덱스로 캐릭터 시트 제거
func (h *Handler) HandleRemoveCharacter(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeSessionNotFound(w)
		return
	}

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, model.NewValidationError("invalid character index: %s", vars["index"]), http.StatusBadRequest)
		return
	}

	if !session.RemoveCharacter(index) {
		writeError(w, model.NewValidationError("character index out of range: %d", index), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"characterCount": session.CharacterCount(),
	})
}

// HandleUploadPose - 포즈 레퍼런스 업로드 (단일, 교체 의미)
func (h *Handler) HandleUploadPose(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	session, exists := h.manager.GetSession(sessionID)
	if !exists {
		writeSessionNotFound(w)
		return
	}

	var file UploadedFile
	if isJSONRequest(r) {
		var req poseUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, model.NewValidationError("invalid JSON body: %v", err), http.StatusBadRequest)
			return
		}
		data, err := utils.DecodeDataURL(req.DataURL)
		if err != nil {
			writeError(w, model.NewValidationError("invalid data URL: %v", err), http.StatusBadRequest)
			return
		}
		file = UploadedFile{
			Name:        "pose",
			ContentType: utils.DataURLMimeType(req.DataURL),
			Data:        data,
		}
	} else {
		files, err := h.collectFiles(r)
		if err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		if len(files) != 1 {
			writeError(w, model.NewValidationError("pose upload requires exactly one file, got %d", len(files)), http.StatusBadRequest)
			return
		}
		file = files[0]
	}

	// 검증 실패 시 기존 포즈는 그대로 유지됨
	img, err := h.service.NormalizePose(file)
	if err != nil {
		log.Printf("❌ [Upload] Pose rejected for session %s: %v", sessionID, err)
		writeError(w, err, http.StatusBadRequest)
		return
	}

	session.SetPose(img)
	log.Printf("📤 [Upload] Pose reference set for session %s (%s %dx%d)",
		sessionID, img.MimeType, img.Width, img.Height)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"width":   img.Width,
		"height":  img.Height,
	})
}
