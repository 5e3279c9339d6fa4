package supabase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	_, err := Open(Config{Key: "anon"})
	assert.Error(t, err)

	_, err = Open(Config{URL: "https://example.supabase.co"})
	assert.Error(t, err)
}

func TestHandle_Lifecycle(t *testing.T) {
	h, err := Open(Config{URL: "https://example.supabase.co", Key: "anon-key"})
	require.NoError(t, err)

	assert.NoError(t, h.Err())
	assert.NotNil(t, h.From("transcriptions"))
	assert.NotNil(t, h.Storage())

	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Err(), ErrClosed)
	assert.Nil(t, h.From("transcriptions"))
	assert.Nil(t, h.Storage())
	assert.ErrorIs(t, h.Close(), ErrClosed)
}
