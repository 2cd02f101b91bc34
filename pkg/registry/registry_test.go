package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpsertSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Empty(t, reg.Activities)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.Upsert(Activity{ID: "watch-registration", TaskType: "watch.registration.submit", Version: "1.0.0"}, now)
	reg.Upsert(Activity{ID: "appraisal-lookup", TaskType: "watch.appraisal.lookup"}, now)
	reg.Upsert(Activity{ID: "watch-registration", TaskType: "watch.registration.submit", Version: "1.1.0"}, now)
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 2)
	assert.Equal(t, "appraisal-lookup", loaded.Activities[0].ID)
	assert.Equal(t, "2026-03-01T12:00:00Z", loaded.LastUpdated)

	activity, ok := loaded.Find("watch.registration.submit")
	require.True(t, ok)
	assert.Equal(t, "1.1.0", activity.Version)

	_, ok = loaded.Find("unknown")
	assert.False(t, ok)
}
