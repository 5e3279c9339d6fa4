package transcription_test

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/killallgit/lectra-api/api"
	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/internal/database"
	"github.com/killallgit/lectra-api/internal/services/blobstore"
	"github.com/killallgit/lectra-api/internal/services/pipeline"
	"github.com/killallgit/lectra-api/internal/services/recognition/mocks"
	"github.com/killallgit/lectra-api/internal/services/transcriptions"
	"github.com/killallgit/lectra-api/pkg/client"
)

type APITestSuite struct {
	t          *testing.T
	server     *httptest.Server
	audioDir   string
	repo       transcriptions.Repository
	recognizer *mocks.MockRecognizer
	store      *client.Store
}

func setupAPITestSuite(t *testing.T) *APITestSuite {
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	// The public audio URL needs the listener address, so the handler is
	// attached after the server starts.
	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	audioDir := t.TempDir()
	blobs, err := blobstore.NewFilesystemStore(audioDir, ts.URL+"/audio")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecognizer(ctrl)
	rec.EXPECT().Name().Return("google").AnyTimes()

	repo := transcriptions.NewRepository(db.DB)
	deps := &types.Dependencies{
		DB:             db,
		Transcriptions: repo,
		Pipeline:       pipeline.NewService(rec, blobs, repo),
		AudioDir:       blobs.BasePath(),
	}

	srv := api.NewServer(":0", api.Settings{Version: "test"})
	srv.SetDependencies(deps)
	require.NoError(t, srv.Initialize())
	handler = srv.Engine()

	apiClient := client.New(client.Config{BaseURL: ts.URL + "/api", RetryBackoff: time.Millisecond})

	return &APITestSuite{
		t:          t,
		server:     ts,
		audioDir:   audioDir,
		repo:       repo,
		recognizer: rec,
		store:      client.NewStore(apiClient, nil),
	}
}

// wavBytes builds a short mono 16-bit PCM WAV
func wavBytes(samples int) []byte {
	dataLen := samples * 2
	buf := make([]byte, 44+dataLen)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], 16000)
	binary.LittleEndian.PutUint32(buf[28:], 32000)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))
	return buf
}

func (suite *APITestSuite) transcribe(name, text string) *client.TranscribeResult {
	suite.t.Helper()
	suite.recognizer.EXPECT().
		Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), "en-US").
		Return(text, nil)

	res, err := suite.store.Transcribe(context.Background(), name, wavBytes(800), "en-US")
	require.NoError(suite.t, err)
	return res
}

func TestTranscriptionLifecycle(t *testing.T) {
	suite := setupAPITestSuite(t)
	ctx := context.Background()

	res := suite.transcribe("standup.wav", "ship the release on friday")
	require.NotEmpty(t, res.ID)
	require.NotNil(t, res.AudioURL)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "standup.wav", res.Metadata.OriginalName)
	require.NotNil(t, res.Metadata.WordCount)
	assert.Equal(t, 5, *res.Metadata.WordCount)

	// The stored recording is served back from its public URL
	resp, err := http.Get(*res.AudioURL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wavBytes(800), body)

	page, err := suite.store.History(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, res.ID, page.Items[0].ID)
	assert.EqualValues(t, 1, page.Total)

	updated, err := suite.store.UpdateText(ctx, res.ID, "ship the release on monday")
	require.NoError(t, err)
	assert.Equal(t, "ship the release on monday", updated.TranscriptionText)
	require.NotNil(t, updated.WordCount)
	assert.Equal(t, 5, *updated.WordCount)

	detail, err := suite.store.Transcription(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "ship the release on monday", detail.TranscriptionText)

	require.NoError(t, suite.store.Delete(ctx, res.ID))

	_, err = suite.store.Transcription(ctx, res.ID)
	assert.True(t, client.IsNotFound(err))

	page, err = suite.store.History(ctx, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// Soft delete keeps the blob and the reference to it
	referenced, err := suite.repo.ReferencesAudio(ctx, *res.AudioURL)
	require.NoError(t, err)
	assert.True(t, referenced)
	entries, err := os.ReadDir(suite.audioDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(*res.AudioURL), entries[0].Name())
}

func TestInfiniteHistoryAndSearch(t *testing.T) {
	suite := setupAPITestSuite(t)
	ctx := context.Background()

	texts := []string{"buy milk", "call the dentist", "milk and eggs", "book flights", "pay rent"}
	for i, text := range texts {
		suite.transcribe("note.wav", text)
		// Distinct creation times keep newest-first order deterministic
		if i < len(texts)-1 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	q := suite.store.InfiniteHistory(2)
	var fetched int
	for q.HasNextPage() {
		_, err := q.FetchNextPage(ctx)
		require.NoError(t, err)
		fetched++
	}
	assert.Equal(t, 3, fetched)

	items := q.Items()
	require.Len(t, items, 5)
	assert.Equal(t, "pay rent", items[0].TranscriptionText)
	assert.Equal(t, "buy milk", items[4].TranscriptionText)

	local := client.FilterLocal(items, "MILK")
	assert.Len(t, local, 2)

	hits, err := suite.store.Search(ctx, "milk", 20, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, client.IDs(local), client.IDs(hits.Items))
}

func TestHealthAndUploadCeiling(t *testing.T) {
	suite := setupAPITestSuite(t)

	assert.True(t, suite.store.Health(context.Background()))

	_, err := suite.store.Transcribe(context.Background(), "huge.wav", make([]byte, 10*1024*1024+1), "en-US")
	assert.ErrorIs(t, err, client.ErrFileTooLarge)
}
