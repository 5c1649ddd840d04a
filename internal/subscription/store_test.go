// ABOUTME: Contract tests run against every subscription Store backend
// ABOUTME: Badger in memory, SQLite :memory: and a temp file, and MemoryStore

package subscription

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/2389/rail-scout/internal/errors"
)

func daySub(chatID int64) Subscription {
	return Subscription{
		ChatID:          chatID,
		Kind:            KindDay,
		OriginCode:      "2000000",
		OriginName:      "Москва",
		DestinationCode: "2004000",
		DestinationName: "Санкт-Петербург",
		Date:            "01.12.2026",
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	bs, err := NewInMemoryBadgerStore()
	require.NoError(t, err)

	mem, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)

	file, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "subs.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"badger":        bs,
		"sqlite-memory": mem,
		"sqlite-file":   file,
		"memory":        NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_PutAssignsID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			key, err := s.Put(ctx, "", daySub(42))
			require.NoError(t, err)
			assert.NotEmpty(t, key)

			got, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, key, got.ID)
			assert.Equal(t, int64(42), got.ChatID)
			assert.Equal(t, "Москва", got.OriginName)
			assert.False(t, got.CreatedAt.IsZero())
		})
	}
}

func TestStore_PutExplicitKeyOverwrites(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			key, err := s.Put(ctx, "fixed", daySub(1))
			require.NoError(t, err)
			assert.Equal(t, "fixed", key)

			updated := daySub(1)
			updated.Date = "02.12.2026"
			_, err = s.Put(ctx, "fixed", updated)
			require.NoError(t, err)

			all, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "02.12.2026", all["fixed"].Date)
		})
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a, err := s.Put(ctx, "", daySub(1))
			require.NoError(t, err)
			b, err := s.Put(ctx, "", daySub(2))
			require.NoError(t, err)

			removed, err := s.Delete(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, a, removed)

			all, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
			assert.Contains(t, all, b)

			_, err = s.Delete(ctx, a)
			assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

			_, err = s.Get(ctx, a)
			assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
		})
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			bad := daySub(1)
			bad.Kind = KindTrain

			_, err := s.Put(context.Background(), "", bad)
			assert.True(t, apperrors.Is(err, apperrors.KindInvalidInput))
		})
	}
}

func TestForChat(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	all := map[string]Subscription{
		"b": {ID: "b", ChatID: 1, CreatedAt: base.Add(time.Hour)},
		"a": {ID: "a", ChatID: 1, CreatedAt: base},
		"c": {ID: "c", ChatID: 2, CreatedAt: base},
	}

	got := ForChat(all, 1)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Len(t, Sorted(all), 3)
}

func TestSubscription_Label(t *testing.T) {
	day := daySub(1)
	assert.Equal(t, "Москва → Санкт-Петербург, 01.12.2026", day.Label())

	train := day
	train.Kind = KindTrain
	train.Time = "23:55"
	train.TrainNumber = "020У"
	train.OriginName = ""
	assert.Equal(t, "2000000 → Санкт-Петербург, 01.12.2026 23:55, поезд 020У", train.Label())
}

func TestOpen(t *testing.T) {
	s, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("postgres", "")
	assert.Error(t, err)
}
