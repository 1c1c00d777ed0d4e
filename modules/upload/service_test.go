package upload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-canvas-server/modules/common/model"
)

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeBatchAcceptsValidImages(t *testing.T) {
	service := NewService()

	files := []UploadedFile{
		{Name: "hero.png", ContentType: "image/png", Data: makePNG(t, 10, 20)},
		{Name: "rival.png", ContentType: "image/png", Data: makePNG(t, 32, 32)},
	}

	accepted, err := service.NormalizeBatch(files)

	require.NoError(t, err)
	require.Len(t, accepted, 2)
	// 업로드 순서 유지
	assert.Equal(t, 10, accepted[0].Width)
	assert.Equal(t, 20, accepted[0].Height)
	assert.Equal(t, "image/png", accepted[0].MimeType)
	assert.Equal(t, 32, accepted[1].Width)
}

func TestNormalizeBatchSkipsUndecodableFiles(t *testing.T) {
	service := NewService()

	files := []UploadedFile{
		{Name: "hero.png", ContentType: "image/png", Data: makePNG(t, 8, 8)},
		{Name: "broken.png", ContentType: "image/png", Data: []byte("not an image")},
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("scene notes")},
	}

	accepted, err := service.NormalizeBatch(files)

	// 실패 파일은 건너뛰고 배치는 성공
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
}

func TestNormalizeBatchFailsWhenNothingDecodes(t *testing.T) {
	service := NewService()

	files := []UploadedFile{
		{Name: "broken1.png", ContentType: "image/png", Data: []byte("garbage")},
		{Name: "broken2.png", ContentType: "image/png", Data: []byte("more garbage")},
	}

	accepted, err := service.NormalizeBatch(files)

	require.Error(t, err)
	var decodeErr *model.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Nil(t, accepted)
}

func TestNormalizeBatchRejectsEmptyBatch(t *testing.T) {
	service := NewService()

	_, err := service.NormalizeBatch(nil)

	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestNormalizePoseRejectsNonImage(t *testing.T) {
	service := NewService()

	_, err := service.NormalizePose(UploadedFile{
		Name:        "pose.txt",
		ContentType: "text/plain",
		Data:        []byte("standing with arms crossed"),
	})

	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestNormalizePoseAcceptsImage(t *testing.T) {
	service := NewService()

	img, err := service.NormalizePose(UploadedFile{
		Name:        "pose.png",
		ContentType: "image/png",
		Data:        makePNG(t, 16, 9),
	})

	require.NoError(t, err)
	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 9, img.Height)
}

func TestAcceptFileInfersMimeTypeFromFormat(t *testing.T) {
	service := NewService()

	img, err := service.acceptFile(UploadedFile{
		Name: "untyped.png",
		Data: makePNG(t, 4, 4),
	})

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
}
