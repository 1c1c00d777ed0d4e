package generate

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// stubGenerator - contentGenerator 테스트 스텁
// 호출 횟수와 마지막 페이로드를 기록하고, 호출별 동작을 주입받음
type stubGenerator struct {
	mu       sync.Mutex
	calls    int
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig
	generate func(callIndex int) (*genai.GenerateContentResponse, error)
}

func (s *stubGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	callIndex := s.calls
	s.calls++
	s.contents = append(s.contents, contents)
	s.configs = append(s.configs, config)
	s.mu.Unlock()

	return s.generate(callIndex)
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// imageResponse - InlineData 이미지 하나를 담은 응답 생성
func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{
							InlineData: &genai.Blob{
								MIMEType: "image/png",
								Data:     data,
							},
						},
					},
				},
			},
		},
	}
}

// textOnlyResponse - 이미지 없는 응답 (InlineData 없음)
func textOnlyResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						genai.NewPartFromText("sorry, no image"),
					},
				},
			},
		},
	}
}
