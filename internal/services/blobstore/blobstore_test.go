package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	storage_go "github.com/supabase-community/storage-go"
)

func TestFilesystemStore_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir, "http://localhost:3000/audio/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Upload(ctx, "1700000000000-note_1.wav", []byte("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/audio/1700000000000-note_1.wav", url)

	data, err := os.ReadFile(filepath.Join(dir, "1700000000000-note_1.wav"))
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	_, err = store.Upload(ctx, "1700000000000-note_1.wav", []byte("again"), "audio/wav")
	assert.ErrorIs(t, err, ErrObjectExists, "uploads never overwrite")

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, url, objects[0].URL)
	assert.Equal(t, int64(4), objects[0].Size)

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "1700000000000-note_1.wav"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, url), "deleting a missing object is not an error")
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "http://localhost/audio")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../escape.wav", []byte("x"), "audio/wav")
	assert.Error(t, err)
	_, err = store.Upload(context.Background(), "..", []byte("x"), "audio/wav")
	assert.Error(t, err)
}

func TestNewFilesystemStore_RequiresPath(t *testing.T) {
	_, err := NewFilesystemStore("", "http://localhost/audio")
	assert.Error(t, err)
}

func TestObjectNameFromURL(t *testing.T) {
	assert.Equal(t, "123-a b.wav", ObjectNameFromURL("https://x.supabase.co/storage/v1/object/public/audio-recordings/123-a%20b.wav"))
	assert.Equal(t, "plain.wav", ObjectNameFromURL("plain.wav"))
}

type mockObjectClient struct {
	mock.Mock
}

func (m *mockObjectClient) UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	args := m.Called(bucketId, relativePath, fileOptions)
	return storage_go.FileUploadResponse{}, args.Error(0)
}

func (m *mockObjectClient) GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	args := m.Called(bucketId, filePath)
	return storage_go.SignedUrlResponse{SignedURL: args.String(0)}
}

func (m *mockObjectClient) RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error) {
	args := m.Called(bucketId, paths)
	return nil, args.Error(0)
}

func TestSupabaseStore_Upload(t *testing.T) {
	client := new(mockObjectClient)
	store, err := NewSupabaseStore(client, "", "")
	require.NoError(t, err)

	client.On("UploadFile", DefaultBucket, "1-note.wav", mock.MatchedBy(func(opts []storage_go.FileOptions) bool {
		return len(opts) == 1 &&
			*opts[0].ContentType == "audio/wav" &&
			*opts[0].CacheControl == "3600" &&
			!*opts[0].Upsert
	})).Return(nil)
	client.On("GetPublicUrl", DefaultBucket, "1-note.wav").
		Return("https://x.supabase.co/storage/v1/object/public/audio-recordings/1-note.wav")

	url, err := store.Upload(context.Background(), "1-note.wav", []byte("data"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co/storage/v1/object/public/audio-recordings/1-note.wav", url)
	client.AssertExpectations(t)
}

func TestSupabaseStore_UploadFailure(t *testing.T) {
	client := new(mockObjectClient)
	store, err := NewSupabaseStore(client, "voice", "60")
	require.NoError(t, err)

	client.On("UploadFile", "voice", "1-note.wav", mock.Anything).Return(errors.New("bucket not found"))

	_, err = store.Upload(context.Background(), "1-note.wav", []byte("data"), "audio/wav")
	assert.ErrorContains(t, err, "bucket not found")
	client.AssertNotCalled(t, "GetPublicUrl", mock.Anything, mock.Anything)
}

func TestSupabaseStore_Delete(t *testing.T) {
	client := new(mockObjectClient)
	store, err := NewSupabaseStore(client, "", "")
	require.NoError(t, err)

	client.On("RemoveFile", DefaultBucket, []string{"1-note.wav"}).Return(nil)

	require.NoError(t, store.Delete(context.Background(), "https://x.supabase.co/storage/v1/object/public/audio-recordings/1-note.wav"))
	client.AssertExpectations(t)
}

func TestNewSupabaseStore_NilClient(t *testing.T) {
	_, err := NewSupabaseStore(nil, "", "")
	assert.Error(t, err)
}
