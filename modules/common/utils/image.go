package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"log"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ToDataURL - 이미지 바이너리를 data URL로 변환
func ToDataURL(mimeType string, imageData []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))
}

// DecodeDataURL - data URL 또는 순수 base64 문자열을 바이너리로 디코딩
func DecodeDataURL(dataURL string) ([]byte, error) {
	base64Data := dataURL

	// data:image/xxx;base64, prefix 제거
	if idx := findBase64Start(dataURL); idx > 0 {
		base64Data = dataURL[idx:]
	}

	imageData, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	return imageData, nil
}

// DataURLMimeType - data URL에서 mime type 추출 (없으면 빈 문자열)
func DataURLMimeType(dataURL string) string {
	if !strings.HasPrefix(dataURL, "data:") {
		return ""
	}
	rest := dataURL[len("data:"):]
	if semi := strings.Index(rest, ";"); semi >= 0 {
		return rest[:semi]
	}
	return ""
}

// DecodeImageBounds - 이미지 바이너리에서 포맷과 크기 추출 (PNG/JPEG/WebP 자동 감지)
func DecodeImageBounds(imageData []byte) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}

// TranscodeToPNG - 임의 포맷 이미지를 PNG로 재인코딩 (이미 PNG면 그대로 반환)
func TranscodeToPNG(mimeType string, imageData []byte) ([]byte, error) {
	if mimeType == "image/png" {
		return imageData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var pngBuffer bytes.Buffer
	if err := png.Encode(&pngBuffer, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	return pngBuffer.Bytes(), nil
}

// ConvertPNGToWebP - PNG 바이너리를 WebP로 변환 (미리보기용 손실 압축)
func ConvertPNGToWebP(pngData []byte, quality float32) ([]byte, error) {
	// PNG 디코딩
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}

	// WebP 인코딩
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()

	log.Printf("✅ PNG converted to WebP: %d bytes → %d bytes (%.1f%% reduction)",
		len(pngData), len(webpData),
		float64(len(pngData)-len(webpData))/float64(len(pngData))*100)

	return webpData, nil
}

// Helper functions
func findBase64Start(s string) int {
	marker := ";base64,"
	for i := 0; i <= len(s)-len(marker); i++ {
		if s[i:i+len(marker)] == marker {
			return i + len(marker)
		}
	}
	return 0
}
