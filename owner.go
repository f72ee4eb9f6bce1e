package replslot

import "github.com/google/uuid"

// Owner is the session-scoped handle returned by Create/Acquire and
// consumed by Release/Drop/Save/Persist/MarkDirty/SetDummyStandbyLSNInvalid.
//
// The original keeps a per-thread "my slot" pointer in global state; this
// is the design note's suggested replacement (spec.md §9): an explicit
// handle makes ownership transfer visible in the caller's code instead of
// mutating a package-level variable. SessionID is a random id generated
// with uuid.New for each handle; this package does not add it to the log
// lines it emits.
type Owner struct {
	mgr       *Manager
	slot      *Slot
	SessionID uuid.UUID

	// loggingDecoding mirrors the session-level "in logical decoding" flag
	// the original clears under the process-array lock on Release. There is
	// no process-array in this module (that lock lives in the host via
	// XminSink), so clearing it here is session-local bookkeeping only; no
	// reader depends on it today.
	loggingDecoding bool
}

func newOwner(mgr *Manager, slot *Slot) *Owner {
	return &Owner{mgr: mgr, slot: slot, SessionID: uuid.New()}
}

// Name returns the owned slot's name.
func (o *Owner) Name() string {
	o.slot.mutex.Lock()
	defer o.slot.mutex.Unlock()
	return o.slot.name
}
