package replslot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointSavesDirtySlots(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, testConfig(t))

	owner, err := m.Create(ctx, "s1", Persistent, false, NoneOID, 0x1000)
	require.NoError(t, err)

	owner.slot.mutex.Lock()
	owner.slot.restartLSN = 0x2000
	owner.slot.mutex.Unlock()
	owner.MarkDirty()

	require.NoError(t, m.Checkpoint(ctx))

	owner.slot.mutex.Lock()
	dirty := owner.slot.dirty
	owner.slot.mutex.Unlock()
	require.False(t, dirty)

	m2 := newTestManager(t, m.cfg)
	_, err = m2.Startup(ctx)
	require.NoError(t, err)
	require.Equal(t, LSN(0x2000), m2.slots[0].restartLSN)
}

func TestCheckpointRecreatesMissingDirectory(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, testConfig(t))

	owner, err := m.Create(ctx, "s1", Persistent, false, NoneOID, 0x1000)
	require.NoError(t, err)

	require.NoError(t, m.layout.FileIO.RemoveAll(ctx, m.layoutPath("s1")))
	require.False(t, m.layout.Exists(ctx, "s1"))

	require.NoError(t, m.Checkpoint(ctx))
	require.True(t, m.layout.Exists(ctx, "s1"))

	_ = owner
}

func TestCheckpointDisabledIsNoop(t *testing.T) {
	m, err := NewManager(Config{}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Checkpoint(context.Background()))
}
