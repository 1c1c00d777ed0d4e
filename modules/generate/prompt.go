package generate

import (
	"fmt"
	"strings"
)

// BuildPrompt - 생성 프롬프트 조립
// 같은 입력이면 항상 같은 문서가 나옴 (배치 내 10개 호출 전부 동일 페이로드)
func BuildPrompt(characterCount int, contextText string) string {
	var b strings.Builder

	b.WriteString("You are a professional manga illustrator.\n\n")
	b.WriteString("[TASK]\n")
	b.WriteString("Draw a single manga-style illustration panel.\n")
	b.WriteString("The characters must keep the exact identity, hairstyle, costume and art style shown in the character reference images.\n")
	b.WriteString("The characters must be posed exactly as shown in the pose reference image.\n\n")

	b.WriteString("[INPUT IMAGES]\n")
	if characterCount == 1 {
		b.WriteString("The first image is a character identity reference.\n")
	} else {
		fmt.Fprintf(&b, "The first %d images are character identity references, in order.\n", characterCount)
	}
	b.WriteString("The final image is the pose reference. Use it only for body posture and composition, not for identity or style.\n\n")

	b.WriteString("[OUTPUT RULES]\n")
	b.WriteString("- Output exactly one image.\n")
	b.WriteString("- Widescreen 16:9 composition.\n")
	b.WriteString("- Clean manga line art, consistent with the character references.\n")
	b.WriteString("- Do not add text, speech bubbles, watermarks or borders.")

	if contextText != "" {
		b.WriteString("\n\n[ADDITIONAL CONTEXT]\n")
		b.WriteString(contextText)
	}

	return b.String()
}
