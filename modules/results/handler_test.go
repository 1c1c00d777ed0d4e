package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-canvas-server/modules/common/model"
	"manga-canvas-server/modules/studio"
)

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 60, B: 180, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupSessionWithResults(t *testing.T, resultCount int) (*mux.Router, string) {
	t.Helper()

	manager := studio.NewManager(64, 36)
	session, err := manager.CreateSession()
	require.NoError(t, err)

	outcome := make([]model.RasterImage, 0, resultCount)
	for i := 0; i < resultCount; i++ {
		outcome = append(outcome, model.RasterImage{
			MimeType: "image/png",
			Width:    16,
			Height:   9,
			Data:     makePNG(t, 16, 9),
		})
	}
	session.SetOutcome(outcome)

	router := mux.NewRouter()
	NewHandler(manager).RegisterRoutes(router)
	return router, session.ID()
}

func TestListResults(t *testing.T) {
	router, sessionID := setupSessionWithResults(t, 3)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/session/%s/results", sessionID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success     bool `json:"success"`
		ResultCount int  `json:"resultCount"`
		Results     []struct {
			Ordinal  int    `json:"ordinal"`
			Filename string `json:"filename"`
			DataURL  string `json:"dataUrl"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Equal(t, 3, body.ResultCount)
	require.Len(t, body.Results, 3)
	assert.Equal(t, 1, body.Results[0].Ordinal)
	assert.Equal(t, "manga-panel-1.png", body.Results[0].Filename)
	assert.Equal(t, "manga-panel-3.png", body.Results[2].Filename)
	assert.Contains(t, body.Results[0].DataURL, "data:image/png;base64,")
}

func TestDownloadResult(t *testing.T) {
	router, sessionID := setupSessionWithResults(t, 2)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/session/%s/results/2/download", sessionID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=manga-panel-2.png", rec.Header().Get("Content-Disposition"))

	decoded, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 9, decoded.Bounds().Dy())
}

func TestDownloadOrdinalOutOfRange(t *testing.T) {
	router, sessionID := setupSessionWithResults(t, 2)

	for _, ordinal := range []string{"0", "3", "abc"} {
		req := httptest.NewRequest("GET", fmt.Sprintf("/api/session/%s/results/%s/download", sessionID, ordinal), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "ordinal %s", ordinal)
	}
}

func TestDownloadRacingOutcomeReplacement(t *testing.T) {
	manager := studio.NewManager(64, 36)
	session, err := manager.CreateSession()
	require.NoError(t, err)

	bigOutcome := []model.RasterImage{
		{MimeType: "image/png", Width: 16, Height: 9, Data: makePNG(t, 16, 9)},
		{MimeType: "image/png", Width: 16, Height: 9, Data: makePNG(t, 16, 9)},
		{MimeType: "image/png", Width: 16, Height: 9, Data: makePNG(t, 16, 9)},
	}
	smallOutcome := bigOutcome[:1]
	session.SetOutcome(bigOutcome)

	router := mux.NewRouter()
	NewHandler(manager).RegisterRoutes(router)

	// 새 배치가 outcome을 더 작은 결과로 교체하는 동안 마지막 ordinal을 요청
	// 검증과 조회가 한 스냅샷을 봐야 하므로 어떤 교차에서도 panic 없이 200 또는 404
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				session.SetOutcome(smallOutcome)
			} else {
				session.SetOutcome(bigOutcome)
			}
		}
	}()

	url := fmt.Sprintf("/api/session/%s/results/3/download", session.ID())
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest("GET", url, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Contains(t, []int{http.StatusOK, http.StatusNotFound}, rec.Code)
		if rec.Code == http.StatusOK {
			assert.Equal(t, "attachment; filename=manga-panel-3.png", rec.Header().Get("Content-Disposition"))
		}
	}
	<-done
}

func TestResultsUnknownSession(t *testing.T) {
	router, _ := setupSessionWithResults(t, 1)

	req := httptest.NewRequest("GET", "/api/session/no-such-session/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Session not found", body["error_message"])
}

func TestListResultsEmptySession(t *testing.T) {
	router, sessionID := setupSessionWithResults(t, 0)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/session/%s/results", sessionID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ResultCount int `json:"resultCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.ResultCount)
}
