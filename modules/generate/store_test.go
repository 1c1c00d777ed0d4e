package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-canvas-server/modules/common/model"
)

func TestJobStoreLifecycle(t *testing.T) {
	store := NewJobStore()

	job := model.GenerationJob{
		JobID:       "job-1",
		SessionID:   "session-1",
		JobStatus:   model.StatusPending,
		TotalImages: 10,
		CreatedAt:   time.Now(),
	}
	req := GenerationRequest{Context: "duel in the rain"}
	store.Put(job, req)

	got, found := store.Get("job-1")
	require.True(t, found)
	assert.Equal(t, model.StatusPending, got.JobStatus)

	savedReq, found := store.Request("job-1")
	require.True(t, found)
	assert.Equal(t, "duel in the rain", savedReq.Context)

	updated := store.Update("job-1", func(j *model.GenerationJob) {
		j.JobStatus = model.StatusCompleted
		j.Outcome = []model.RasterImage{{MimeType: "image/png"}}
	})
	require.True(t, updated)

	got, _ = store.Get("job-1")
	assert.Equal(t, model.StatusCompleted, got.JobStatus)
	assert.Len(t, got.Outcome, 1)
}

func TestJobStoreUnknownJob(t *testing.T) {
	store := NewJobStore()

	_, found := store.Get("missing")
	assert.False(t, found)

	updated := store.Update("missing", func(j *model.GenerationJob) {})
	assert.False(t, updated)
}
