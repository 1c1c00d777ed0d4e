package upload

import (
	"fmt"
	"log"
	"strings"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
)

// UploadedFile - 핸들러에서 수집한 업로드 파일 (multipart 또는 data URL 출처)
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service - 업로드 이미지 정규화
// multipart와 data URL 모두 같은 수락 경로를 통과함
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// acceptFile - 단일 파일 수락: content type 확인 + 디코딩으로 크기 검증
func (s *Service) acceptFile(file UploadedFile) (model.RasterImage, error) {
	if file.ContentType != "" && !strings.HasPrefix(file.ContentType, "image/") {
		return model.RasterImage{}, &model.DecodeError{
			Name: file.Name,
			Err:  fmt.Errorf("unsupported content type: %s", file.ContentType),
		}
	}

	format, width, height, err := utils.DecodeImageBounds(file.Data)
	if err != nil {
		return model.RasterImage{}, &model.DecodeError{Name: file.Name, Err: err}
	}

	mimeType := file.ContentType
	if mimeType == "" {
		mimeType = "image/" + format
	}

	return model.RasterImage{
		MimeType: mimeType,
		Width:    width,
		Height:   height,
		Data:     file.Data,
	}, nil
}

// NormalizeBatch - 캐릭터 시트 배치 정규화
// 디코딩 실패한 파일은 건너뛰고, 전부 실패하면 DecodeError 반환
func (s *Service) NormalizeBatch(files []UploadedFile) ([]model.RasterImage, error) {
	if len(files) == 0 {
		return nil, model.NewValidationError("no files provided")
	}

	accepted := make([]model.RasterImage, 0, len(files))
	var lastErr error

	for _, file := range files {
		img, err := s.acceptFile(file)
		if err != nil {
			log.Printf("⚠️ [Upload] Skipping undecodable file %s: %v", file.Name, err)
			lastErr = err
			continue
		}
		accepted = append(accepted, img)
	}

	if len(accepted) == 0 {
		return nil, lastErr
	}

	log.Printf("✅ [Upload] Accepted %d/%d character images", len(accepted), len(files))
	return accepted, nil
}

// NormalizePose - 포즈 레퍼런스 정규화 (단일 이미지, 실패 시 거부)
func (s *Service) NormalizePose(file UploadedFile) (model.RasterImage, error) {
	img, err := s.acceptFile(file)
	if err != nil {
		return model.RasterImage{}, model.NewValidationError("pose reference is not a decodable image: %v", err)
	}
	return img, nil
}
