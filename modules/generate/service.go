package generate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"google.golang.org/genai"

	"manga-canvas-server/modules/common/config"
	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/common/utils"
)

// contentGenerator - Gemini 호출 시드 인터페이스 (테스트에서 스텁으로 교체)
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Service - 10개 병렬 변형 생성 오케스트레이터
type Service struct {
	generator      contentGenerator
	modelName      string
	aspectRatio    string
	variationCount int
}

// NewService - genai 클라이언트 기반 서비스 생성
func NewService(client *genai.Client, cfg *config.Config) *Service {
	return &Service{
		generator:      client.Models,
		modelName:      cfg.GeminiModel,
		aspectRatio:    cfg.AspectRatio,
		variationCount: cfg.VariationCount,
	}
}

// newServiceWithGenerator - 테스트용 생성자
func newServiceWithGenerator(generator contentGenerator, modelName, aspectRatio string, variationCount int) *Service {
	return &Service{
		generator:      generator,
		modelName:      modelName,
		aspectRatio:    aspectRatio,
		variationCount: variationCount,
	}
}

// buildContents - 전체 배치가 공유하는 페이로드 조립
// 순서 고정: 지시문 텍스트 → 캐릭터 이미지들(업로드 순서) → 포즈 이미지
func (s *Service) buildContents(req GenerationRequest) []*genai.Content {
	prompt := BuildPrompt(len(req.Characters), req.Context)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}

	for _, character := range req.Characters {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: character.MimeType,
				Data:     character.Data,
			},
		})
	}

	parts = append(parts, &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: req.Pose.MimeType,
			Data:     req.Pose.Data,
		},
	})

	return []*genai.Content{{Parts: parts}}
}

// generateOne - 단일 Gemini 호출, 응답에서 첫 InlineData 이미지 추출
func (s *Service) generateOne(ctx context.Context, contents []*genai.Content) (model.RasterImage, error) {
	result, err := s.generator.GenerateContent(
		ctx,
		s.modelName,
		contents,
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: s.aspectRatio,
			},
		},
	)
	if err != nil {
		return model.RasterImage{}, fmt.Errorf("%w: %v", model.ErrRemoteCall, err)
	}

	// 응답에서 이미지 추출 (이미지는 InlineData로 반환됨)
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}

				width, height := 0, 0
				if _, w, h, err := utils.DecodeImageBounds(part.InlineData.Data); err == nil {
					width, height = w, h
				}

				return model.RasterImage{
					MimeType: mimeType,
					Width:    width,
					Height:   height,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}

	return model.RasterImage{}, fmt.Errorf("%w: no image data in response", model.ErrRemoteCall)
}

// GenerateBatch - 동일 페이로드로 병렬 생성, 완료 순서대로 수집
// 개별 호출 실패는 로그만 남기고 배치는 계속, 전원 실패 시에만 에러
func (s *Service) GenerateBatch(ctx context.Context, req GenerationRequest) ([]model.RasterImage, error) {
	// 사전 검증: 어떤 호출도 시작하기 전에 거부
	if len(req.Characters) == 0 {
		return nil, model.NewValidationError("at least one character image is required")
	}
	if req.Pose == nil {
		return nil, model.NewValidationError("pose reference is required")
	}

	contents := s.buildContents(req)

	log.Printf("🚀 [Generate] Starting parallel generation: %d variations (%d characters + pose, aspect-ratio %s)",
		s.variationCount, len(req.Characters), s.aspectRatio)

	var wg sync.WaitGroup
	var progressMutex sync.Mutex
	outcome := []model.RasterImage{}
	completedCount := 0

	for i := 0; i < s.variationCount; i++ {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			img, err := s.generateOne(ctx, contents)
			if err != nil {
				log.Printf("❌ [Generate] Variation %d/%d failed: %v", idx+1, s.variationCount, err)
				return
			}

			// 완료 순서대로 수집 (thread-safe)
			progressMutex.Lock()
			outcome = append(outcome, img)
			completedCount++
			currentProgress := completedCount
			progressMutex.Unlock()

			log.Printf("✅ [Generate] Variation %d/%d completed (%d bytes, progress %d/%d)",
				idx+1, s.variationCount, len(img.Data), currentProgress, s.variationCount)
		}(i)
	}

	wg.Wait()

	if completedCount == 0 {
		log.Printf("❌ [Generate] All %d variations failed", s.variationCount)
		return nil, model.ErrBatchExhausted
	}

	log.Printf("🏁 [Generate] Batch finished: %d/%d images completed", completedCount, s.variationCount)
	return outcome, nil
}
