package replslot

import (
	"context"
	"testing"

	"github.com/sharedcode/replslot/fs"
	"github.com/stretchr/testify/require"
)

type recordingXminSink struct {
	xmin, catalogXmin Xid
	calls             int
}

func (s *recordingXminSink) PublishXmin(_ context.Context, xmin, catalogXmin Xid) {
	s.xmin, s.catalogXmin = xmin, catalogXmin
	s.calls++
}

type recordingLSNSink struct {
	min, max    LSN
	existsInUse bool
	calls       int
}

func (s *recordingLSNSink) PublishLSN(_ context.Context, min, max LSN, existsInUse bool) {
	s.min, s.max, s.existsInUse = min, max, existsInUse
	s.calls++
}

func TestRecomputeRequiredXminWrapAwareMinimum(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxSlots = 2
	layout := fs.NewLayout(cfg.ReplSlotDir, fs.NewFileIO())
	sink := &recordingXminSink{}
	m, err := NewManager(cfg, layout, sink, nil)
	require.NoError(t, err)

	o1, err := m.Create(ctx, "s1", Persistent, false, NoneOID, 0)
	require.NoError(t, err)
	o2, err := m.Create(ctx, "s2", Persistent, false, NoneOID, 0)
	require.NoError(t, err)

	o1.slot.mutex.Lock()
	o1.slot.effectiveXmin = 0xFFFFFFF0
	o1.slot.mutex.Unlock()
	o2.slot.mutex.Lock()
	o2.slot.effectiveXmin = 10
	o2.slot.mutex.Unlock()

	m.RecomputeRequiredXmin(ctx, false)
	require.Equal(t, Xid(0xFFFFFFF0), sink.xmin, "must use modular precedence, not numeric minimum")
}

func TestRecomputeRequiredLSNExcludesPhysicalWhenNotPrimary(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxSlots = 2
	layout := fs.NewLayout(cfg.ReplSlotDir, fs.NewFileIO())
	sink := &recordingLSNSink{}
	m, err := NewManager(cfg, layout, nil, sink)
	require.NoError(t, err)
	m.SetPrimary(false)

	_, err = m.Create(ctx, "s1", Persistent, false, NoneOID, 0x1000)
	require.NoError(t, err)

	m.RecomputeRequiredLSN(ctx)
	require.False(t, sink.existsInUse, "physical slots must not pin WAL while not primary")

	_, err = m.Create(ctx, "s2", Persistent, false, OID(3), 0x2000)
	require.NoError(t, err)

	m.RecomputeRequiredLSN(ctx)
	require.True(t, sink.existsInUse)
	require.Equal(t, LSN(0x2000), sink.min)
	require.Equal(t, LSN(0x2000), sink.max)
}

func TestLogicalRestartLSNIgnoresPhysicalSlots(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxSlots = 2
	m := newTestManager(t, cfg)

	_, err := m.Create(ctx, "phys", Persistent, false, NoneOID, 0x500)
	require.NoError(t, err)
	_, err = m.Create(ctx, "log", Persistent, false, OID(1), 0x900)
	require.NoError(t, err)

	require.Equal(t, LSN(0x900), m.LogicalRestartLSN())
}
