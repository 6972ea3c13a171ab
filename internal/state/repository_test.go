package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/lyw1217/flight-price-checker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeConfig(t *testing.T) *structures.Config {
	dir := t.TempDir()
	return &structures.Config{
		Timezone: "UTC",
		Storage: structures.StorageConfig{
			DataDir:       filepath.Join(dir, "data"),
			UserConfigDir: filepath.Join(dir, "data", "user_configs"),
			ArchiveDir:    filepath.Join(dir, "archive"),
			FileWorkers:   3,
		},
	}
}

func key(uid int64, dep, arr string) models.MonitorKey {
	return models.MonitorKey{UserID: uid, Origin: dep, Destination: arr, DepartDate: "20251025", ReturnDate: "20251027"}
}

func TestMonitorRepository_Lifecycle(t *testing.T) {
	conf := storeConfig(t)
	repo, err := NewMonitorRepository(conf, &testutil.MockLogger{})
	require.NoError(t, err)
	ctx := context.Background()
	k := key(7, "ICN", "FUK")

	require.NoError(t, repo.Create(ctx, k, &models.MonitorState{StartTime: "2025-10-01 00:00:00", Restricted: 300000}))
	assert.ErrorIs(t, repo.Create(ctx, k, &models.MonitorState{}), ErrExists)

	require.NoError(t, repo.Update(ctx, k, func(st *models.MonitorState) error {
		st.Restricted = 294000
		return nil
	}))
	st, err := repo.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, 294000, st.Restricted)
	assert.Equal(t, "2025-10-01 00:00:00", st.StartTime)

	require.NoError(t, repo.Delete(ctx, k))
	_, err = repo.Get(ctx, k)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, k, func(*models.MonitorState) error { return nil }), ErrNotFound)
}

func TestMonitorRepository_ListSkipsForeignFiles(t *testing.T) {
	conf := storeConfig(t)
	logger := &testutil.MockLogger{}
	repo, err := NewMonitorRepository(conf, logger)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, key(1, "ICN", "FUK"), &models.MonitorState{}))
	require.NoError(t, repo.Save(ctx, key(2, "GMP", "HND"), &models.MonitorState{}))
	require.NoError(t, repo.Save(ctx, key(1, "ICN", "NRT"), &models.MonitorState{}))
	require.NoError(t, os.WriteFile(filepath.Join(conf.Storage.DataDir, "price_weird.json"), []byte("{}"), 0644))

	keys, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	names, err := repo.ListNames()
	require.NoError(t, err)
	assert.Len(t, names, 4)

	mine, err := repo.ListByUser(1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, k := range mine {
		assert.Equal(t, int64(1), k.UserID)
	}
	assert.True(t, logger.Contains("price_weird"))
}

func newPreferenceRepo(t *testing.T, now time.Time) *PreferenceRepository {
	conf := storeConfig(t)
	iface, err := NewPreferenceRepository(conf, &testutil.MockLogger{})
	require.NoError(t, err)
	repo := iface.(*PreferenceRepository)
	repo.now = func() time.Time { return now }
	return repo
}

func TestPreferenceRepository_LazyDefaults(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	repo := newPreferenceRepo(t, now)
	ctx := context.Background()

	_, err := repo.Peek(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.NotifyThreshold, p.NotificationMode)
	assert.Equal(t, "2025-10-01 09:00:00", p.CreatedAt)
	assert.Equal(t, "2025-10-01 09:00:00", p.LastActivity)

	stored, err := repo.Peek(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestPreferenceRepository_GetRefreshesActivity(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	repo := newPreferenceRepo(t, now)
	ctx := context.Background()

	_, err := repo.Get(ctx, 42)
	require.NoError(t, err)

	repo.now = func() time.Time { return now.Add(48 * time.Hour) }
	p, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01 09:00:00", p.CreatedAt)
	assert.Equal(t, "2025-10-03 09:00:00", p.LastActivity)
}

func TestPreferenceRepository_UpdateRejectsInvalid(t *testing.T) {
	repo := newPreferenceRepo(t, time.Now())
	ctx := context.Background()

	_, err := repo.Update(ctx, 5, func(p *models.UserPreference) error {
		p.NotificationMode = "WHENEVER"
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInvalidPreference)

	_, err = repo.Peek(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound, "rejected update must not persist")

	p, err := repo.Update(ctx, 5, func(p *models.UserPreference) error {
		p.NotificationMode = models.NotifyAnyChange
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotifyAnyChange, p.NotificationMode)
}

func TestPreferenceRepository_CorruptResetsToDefaults(t *testing.T) {
	repo := newPreferenceRepo(t, time.Now())
	require.NoError(t, os.WriteFile(repo.store.Path("config_9"), []byte("garbage"), 0644))

	p, err := repo.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeRestrictedOnly, p.Scope)
	assert.NoError(t, p.Validate())
}

func TestPreferenceRepository_ListUsers(t *testing.T) {
	repo := newPreferenceRepo(t, time.Now())
	ctx := context.Background()
	for _, id := range []int64{3, 1, 2} {
		_, err := repo.Get(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, repo.Delete(ctx, 2))

	ids, err := repo.ListUsers()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestArchive_PutAndLoad(t *testing.T) {
	conf := storeConfig(t)
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	archive := NewArchive(conf, compressor, &testutil.MockLogger{})
	defer archive.Close()

	entry := &ArchivedMonitor{
		Name:       "price_1_ICN_FUK_20251025_20251027",
		State:      &models.MonitorState{Restricted: 300000, StartTime: "2025-09-01 00:00:00"},
		ArchivedAt: time.Date(2025, 10, 2, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, archive.Put(entry))

	names, err := archive.List()
	require.NoError(t, err)
	assert.Equal(t, []string{entry.Name}, names)

	loaded, err := archive.Load(entry.Name)
	require.NoError(t, err)
	assert.Equal(t, 300000, loaded.State.Restricted)
	assert.True(t, entry.ArchivedAt.Equal(loaded.ArchivedAt))
}

func TestArchive_DisabledIsNoop(t *testing.T) {
	conf := storeConfig(t)
	conf.Storage.ArchiveDir = ""
	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	archive := NewArchive(conf, compressor, &testutil.MockLogger{})

	assert.NoError(t, archive.Put(&ArchivedMonitor{Name: "x"}))
	_, err = archive.Load("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestZstdCompressor_RoundTrip(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	data := []byte(`{"restricted":300000,"overall":280000}`)
	compressed, err := c.Compress(data)
	require.NoError(t, err)
	out, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
