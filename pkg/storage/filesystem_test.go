package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Read("all_users")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write("all_users", []byte(`[]`)))
	require.NoError(t, store.Write("user_7xKX/abc", []byte(`{"username":"Ada"}`)))

	data, ok, err := store.Read("user_7xKX/abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"username":"Ada"}`, string(data))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"all_users", "user_7xKX/abc"}, keys)

	require.NoError(t, store.Delete("all_users"))
	require.NoError(t, store.Delete("missing"))
	keys, err = store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"user_7xKX/abc"}, keys)
}

func TestLocalStorageWriteOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("all_grades", []byte(`[1]`)))
	require.NoError(t, store.Write("all_grades", []byte(`[1,2]`)))

	data, _, err := store.Read("all_grades")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(data))
}
