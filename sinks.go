package replslot

import "context"

// XminSink is the process array the WAL machinery consults for vacuum
// horizons. The core only publishes to it; it never implements it.
type XminSink interface {
	PublishXmin(ctx context.Context, xmin, catalogXmin Xid)
}

// LSNSink is the WAL module the reclamation/log-trimming machinery
// consults. The core only publishes to it; it never implements it.
type LSNSink interface {
	PublishLSN(ctx context.Context, min, max LSN, existsInUse bool)
}

// noopXminSink and noopLSNSink let a Manager run (e.g. in tests) without a
// host-provided sink wired up.
type noopXminSink struct{}

func (noopXminSink) PublishXmin(context.Context, Xid, Xid) {}

type noopLSNSink struct{}

func (noopLSNSink) PublishLSN(context.Context, LSN, LSN, bool) {}
