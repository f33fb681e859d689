package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Generation(t *testing.T) {
	t.Parallel()

	store := NewStoreWithSave(validConfig(), nil)
	endpoint, model := store.Generation()
	assert.Equal(t, DefaultEndpoint, endpoint)
	assert.Equal(t, DefaultModelName, model)
}

func TestStore_Update_PersistsBeforeVisible(t *testing.T) {
	t.Parallel()

	var saved *Config
	store := NewStoreWithSave(validConfig(), func(c *Config) error {
		snapshot := *c
		saved = &snapshot
		return nil
	})

	require.NoError(t, store.Update("llava:13b", "http://gpu-box:11434/api/generate"))

	require.NotNil(t, saved)
	assert.Equal(t, "llava:13b", saved.ModelName)

	endpoint, model := store.Generation()
	assert.Equal(t, "http://gpu-box:11434/api/generate", endpoint)
	assert.Equal(t, "llava:13b", model)
}

func TestStore_Update_SaveFailureLeavesSettings(t *testing.T) {
	t.Parallel()

	store := NewStoreWithSave(validConfig(), func(*Config) error {
		return errors.New("disk full")
	})

	err := store.Update("llava:13b", "http://elsewhere/api/generate")
	require.Error(t, err)

	// Old values still served.
	endpoint, model := store.Generation()
	assert.Equal(t, DefaultEndpoint, endpoint)
	assert.Equal(t, DefaultModelName, model)
}

func TestStore_Update_Validation(t *testing.T) {
	t.Parallel()

	store := NewStoreWithSave(validConfig(), nil)

	assert.ErrorIs(t, store.Update("", "http://x/api"), ErrInvalidModelName)
	assert.ErrorIs(t, store.Update("m", "ftp://bad"), ErrInvalidEndpoint)

	// Clearing the endpoint is allowed; generation then fails fast
	// until the user sets a new one.
	assert.NoError(t, store.Update("m", ""))
}
