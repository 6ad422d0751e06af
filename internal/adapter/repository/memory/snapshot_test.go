package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratix/hark/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	repo := NewSnapshotRepository()

	_, ok, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, ok)

	snap := domain.PlaylistSnapshot{
		Entries: []domain.EntrySnapshot{
			{Kind: domain.KindFile, Name: "a.mp3", Position: 10 * time.Second},
		},
		LastPlayedIndex: 0,
		LoopEnabled:     true,
	}
	require.NoError(t, repo.SaveSnapshot(snap))

	got, ok, err := repo.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestSnapshotClear(t *testing.T) {
	repo := NewSnapshotRepository()
	require.NoError(t, repo.SaveSnapshot(domain.PlaylistSnapshot{LoopEnabled: true}))
	require.NoError(t, repo.Clear())

	_, ok, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, ok)
}
