package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"manga-canvas-server/modules/common/model"
)

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func makeRequest(t *testing.T, characterCount int, contextText string) GenerationRequest {
	t.Helper()

	characters := make([]model.RasterImage, 0, characterCount)
	for i := 0; i < characterCount; i++ {
		characters = append(characters, model.RasterImage{
			MimeType: "image/png",
			Width:    8,
			Height:   8,
			Data:     makePNG(t, 8, 8),
		})
	}

	return GenerationRequest{
		Characters: characters,
		Pose: &model.RasterImage{
			MimeType: "image/png",
			Width:    16,
			Height:   9,
			Data:     makePNG(t, 16, 9),
		},
		Context: contextText,
	}
}

func TestGenerateBatchAllSucceed(t *testing.T) {
	resultData := makePNG(t, 16, 9)
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			return imageResponse(resultData), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)

	outcome, err := service.GenerateBatch(context.Background(), makeRequest(t, 2, "rooftop confrontation at dusk"))

	require.NoError(t, err)
	assert.Len(t, outcome, 10)
	assert.Equal(t, 10, stub.callCount())

	for _, img := range outcome {
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, 16, img.Width)
		assert.Equal(t, 9, img.Height)
	}
}

func TestGenerateBatchPayloadIdenticalAcrossCalls(t *testing.T) {
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			return imageResponse(makePNG(t, 4, 4)), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)
	req := makeRequest(t, 2, "rainy alley chase")

	_, err := service.GenerateBatch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 10, stub.callCount())

	for i, contents := range stub.contents {
		require.Len(t, contents, 1, "call %d", i)
		parts := contents[0].Parts

		// 지시문 텍스트 + 캐릭터 2장 + 포즈 1장
		require.Len(t, parts, 4, "call %d", i)

		assert.Contains(t, parts[0].Text, "manga illustrator")
		assert.Contains(t, parts[0].Text, "[ADDITIONAL CONTEXT]")
		assert.Contains(t, parts[0].Text, "rainy alley chase")

		require.NotNil(t, parts[1].InlineData)
		require.NotNil(t, parts[2].InlineData)
		require.NotNil(t, parts[3].InlineData)
		assert.Equal(t, req.Characters[0].Data, parts[1].InlineData.Data)
		assert.Equal(t, req.Characters[1].Data, parts[2].InlineData.Data)
		assert.Equal(t, req.Pose.Data, parts[3].InlineData.Data)

		require.NotNil(t, stub.configs[i].ImageConfig)
		assert.Equal(t, "16:9", stub.configs[i].ImageConfig.AspectRatio)
	}
}

func TestGenerateBatchToleratesPartialFailure(t *testing.T) {
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			if callIndex < 3 {
				return nil, fmt.Errorf("rate limited")
			}
			return imageResponse(makePNG(t, 4, 4)), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)

	outcome, err := service.GenerateBatch(context.Background(), makeRequest(t, 1, ""))

	require.NoError(t, err)
	assert.Len(t, outcome, 7)
	assert.Equal(t, 10, stub.callCount())
}

func TestGenerateBatchAllFail(t *testing.T) {
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			// 절반은 에러, 절반은 이미지 없는 응답 - 둘 다 실패로 취급
			if callIndex%2 == 0 {
				return nil, fmt.Errorf("server overloaded")
			}
			return textOnlyResponse(), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)

	outcome, err := service.GenerateBatch(context.Background(), makeRequest(t, 1, ""))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBatchExhausted))
	assert.Equal(t, "no images produced", err.Error())
	assert.Nil(t, outcome)
	assert.Equal(t, 10, stub.callCount())
}

func TestGenerateBatchRequiresCharacters(t *testing.T) {
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			return imageResponse(makePNG(t, 4, 4)), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)

	req := makeRequest(t, 1, "")
	req.Characters = nil

	_, err := service.GenerateBatch(context.Background(), req)

	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
	// 검증 실패 시 단 한 번의 호출도 시작하지 않음
	assert.Equal(t, 0, stub.callCount())
}

func TestGenerateBatchRequiresPose(t *testing.T) {
	stub := &stubGenerator{
		generate: func(callIndex int) (*genai.GenerateContentResponse, error) {
			return imageResponse(makePNG(t, 4, 4)), nil
		},
	}
	service := newServiceWithGenerator(stub, "gemini-2.5-flash-image", "16:9", 10)

	req := makeRequest(t, 1, "")
	req.Pose = nil

	_, err := service.GenerateBatch(context.Background(), req)

	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
	assert.Equal(t, 0, stub.callCount())
}

func TestBuildPromptDeterministic(t *testing.T) {
	first := BuildPrompt(3, "beach volleyball scene")
	second := BuildPrompt(3, "beach volleyball scene")
	assert.Equal(t, first, second)

	assert.Contains(t, first, "The first 3 images are character identity references")
	assert.Contains(t, first, "[ADDITIONAL CONTEXT]\nbeach volleyball scene")
	assert.Contains(t, first, "16:9")

	single := BuildPrompt(1, "")
	assert.Contains(t, single, "The first image is a character identity reference")
	assert.NotContains(t, single, "[ADDITIONAL CONTEXT]")
}
