package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), 4)
	require.NoError(t, err)
	return s
}

func TestFileStore_ReadMissing(t *testing.T) {
	s := newTestStore(t)
	var st models.MonitorState
	err := s.Read(context.Background(), "price_1_ICN_FUK_20251025_20251027", &st)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_WriteTwiceIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := &models.MonitorState{
		StartTime:  "2025-10-01 09:00:00",
		Restricted: 300000,
		Overall:    280000,
		LastFetch:  "2025-10-01 09:30:00",
	}

	require.NoError(t, s.Write(ctx, "slot", rec))
	var first models.MonitorState
	require.NoError(t, s.Read(ctx, "slot", &first))

	require.NoError(t, s.Write(ctx, "slot", rec))
	var second models.MonitorState
	require.NoError(t, s.Read(ctx, "slot", &second))

	assert.Equal(t, first, second)
	assert.Equal(t, *rec, second)
}

func TestFileStore_CorruptSlot(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("slot"), []byte("{not json"), 0644))

	var st models.MonitorState
	err := s.Read(context.Background(), "slot", &st)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestFileStore_CreateRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "slot", &models.MonitorState{Restricted: 1}))
	err := s.Create(ctx, "slot", &models.MonitorState{Restricted: 2})
	assert.ErrorIs(t, err, ErrExists)

	var st models.MonitorState
	require.NoError(t, s.Read(ctx, "slot", &st))
	assert.Equal(t, 1, st.Restricted)
}

func TestFileStore_UpdateMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	var st models.MonitorState
	called := false
	err := s.Update(context.Background(), "gone", &st, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
	assert.False(t, s.Exists("gone"))
}

func TestFileStore_UpdateAbortKeepsOldContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "slot", &models.MonitorState{Restricted: 10}))

	var st models.MonitorState
	err := s.Update(ctx, "slot", &st, func() error {
		st.Restricted = 99
		return errors.New("boom")
	})
	assert.Error(t, err)

	var after models.MonitorState
	require.NoError(t, s.Read(ctx, "slot", &after))
	assert.Equal(t, 10, after.Restricted)
}

func TestFileStore_ConcurrentUpdatesNeverInterleave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "slot", &models.MonitorState{}))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var st models.MonitorState
			err := s.Update(ctx, "slot", &st, func() error {
				st.Restricted++
				st.RestrictedDetail = fmt.Sprintf("writer-%d", i)
				st.Overall = st.Restricted * 10
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}

	var readers sync.WaitGroup
	for i := 0; i < 20; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			var st models.MonitorState
			if assert.NoError(t, s.Read(ctx, "slot", &st)) {
				assert.Equal(t, st.Restricted*10, st.Overall)
			}
		}()
	}
	wg.Wait()
	readers.Wait()

	var final models.MonitorState
	require.NoError(t, s.Read(ctx, "slot", &final))
	assert.Equal(t, writers, final.Restricted)
	assert.Equal(t, writers*10, final.Overall)

	leftovers, _ := filepath.Glob(filepath.Join(s.Dir(), "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestFileStore_DeleteAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "price_b", &models.MonitorState{}))
	require.NoError(t, s.Write(ctx, "price_a", &models.MonitorState{}))
	require.NoError(t, s.Write(ctx, "config_1", &models.UserPreference{}))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "price_c.json.tmp"), nil, 0644))

	names, err := s.List("price_")
	require.NoError(t, err)
	assert.Equal(t, []string{"price_a", "price_b"}, names)

	require.NoError(t, s.Delete(ctx, "price_a"))
	assert.ErrorIs(t, s.Delete(ctx, "price_a"), ErrNotFound)

	names, err = s.List("price_")
	require.NoError(t, err)
	assert.Equal(t, []string{"price_b"}, names)
}

func TestFileStore_CancelledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), 1)
	require.NoError(t, err)

	// hold the only disk slot
	require.NoError(t, s.sem.Acquire(context.Background(), 1))
	defer s.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Write(ctx, "slot", &models.MonitorState{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.locks.Len())
}
