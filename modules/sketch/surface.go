package sketch

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"
)

// 고정 스트로크 설정 (원본 캔버스와 동일)
const (
	strokeWidth = 4.0 // px, round cap/join
)

var (
	backgroundColor = color.RGBA{255, 255, 255, 255} // 흰색 배경
	strokeColor     = color.RGBA{17, 17, 17, 255}    // 먹선
)

// Surface - 포즈 스케치용 고정 해상도 드로잉 버퍼
// 스트로크 연산으로만 변경됨. BeginStroke → ExtendStroke* → EndStroke 순서로 사용
type Surface struct {
	mu     sync.Mutex
	buffer *image.RGBA
	width  int
	height int

	active     bool    // 진행 중인 스트로크 존재 여부
	curX, curY float64 // 현재 path 위치 (버퍼 좌표)
	hasContent bool    // Clear/생성 이후 커밋된 스트로크 존재 여부
}

// NewSurface - 지정 크기의 버퍼를 할당하고 배경색으로 채움
// 크기 변경 시에는 새 Surface를 만들어야 함 (리사이즈 없음)
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface dimensions: %dx%d", width, height)
	}

	s := &Surface{
		buffer: image.NewRGBA(image.Rect(0, 0, width, height)),
		width:  width,
		height: height,
	}
	s.fillBackground()
	return s, nil
}

// Width - 버퍼 너비
func (s *Surface) Width() int { return s.width }

// Height - 버퍼 높이
func (s *Surface) Height() int { return s.height }

// MapDisplayPoint - 디스플레이 좌표를 버퍼 좌표로 변환
// 렌더링 크기와 버퍼 해상도가 다를 수 있으므로 (bufferW/displayW, bufferH/displayH)로 스케일
// 변환 없이 그리면 스트로크가 어긋남
func (s *Surface) MapDisplayPoint(x, y, displayWidth, displayHeight float64) (float64, float64) {
	if displayWidth <= 0 || displayHeight <= 0 {
		// 디스플레이 크기 미전달 - 버퍼 좌표로 간주
		return x, y
	}
	return x * float64(s.width) / displayWidth, y * float64(s.height) / displayHeight
}

// BeginStroke - 버퍼 좌표에서 새 path 시작
// 진행 중인 스트로크가 있으면 암묵적으로 종료 (pointer-down마다 새 path)
func (s *Surface) BeginStroke(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = true
	s.curX = x
	s.curY = y
}

// ExtendStroke - 현재 위치에서 (x, y)까지 선분을 추가하고 즉시 래스터화
// 활성 스트로크가 없으면 no-op
func (s *Surface) ExtendStroke(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	s.drawSegment(s.curX, s.curY, x, y)
	s.curX = x
	s.curY = y
	s.hasContent = true
}

// EndStroke - 현재 path 종료
func (s *Surface) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}

// Clear - 버퍼를 배경색으로 초기화
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fillBackground()
	s.active = false
	s.hasContent = false
}

// IsEmpty - Clear/생성 이후 커밋된 스트로크가 없으면 true
func (s *Surface) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.hasContent
}

// ExportPNG - 현재 버퍼를 네이티브 해상도 PNG로 직렬화 (디스플레이 크기와 무관)
func (s *Surface) ExportPNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.buffer); err != nil {
		return nil, fmt.Errorf("failed to encode sketch PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PixelAt - 버퍼 픽셀 조회 (좌표 매핑 검증용)
func (s *Surface) PixelAt(x, y int) color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer.RGBAAt(x, y)
}

// fillBackground - 버퍼 전체를 배경색으로 채움 (lock은 호출자 책임)
func (s *Surface) fillBackground() {
	draw.Draw(s.buffer, s.buffer.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
}

// drawSegment - 선분을 따라 원형 브러시를 찍어 round cap/join 두께선 래스터화
func (s *Surface) drawSegment(x0, y0, x1, y1 float64) {
	dx := x1 - x0
	dy := y1 - y0
	dist := math.Hypot(dx, dy)

	// 0.5px 간격으로 스탬프 (끝점 포함)
	steps := int(dist*2) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.stampDisc(x0+dx*t, y0+dy*t)
	}
}

// stampDisc - (cx, cy)에 반지름 strokeWidth/2 원을 채움
func (s *Surface) stampDisc(cx, cy float64) {
	r := strokeWidth / 2
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))

	for py := minY; py <= maxY; py++ {
		if py < 0 || py >= s.height {
			continue
		}
		for px := minX; px <= maxX; px++ {
			if px < 0 || px >= s.width {
				continue
			}
			ddx := float64(px) + 0.5 - cx
			ddy := float64(py) + 0.5 - cy
			if ddx*ddx+ddy*ddy <= r*r {
				s.buffer.SetRGBA(px, py, strokeColor)
			}
		}
	}
}
