package replslot

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sharedcode/replslot/fs"
)

// Manager owns the fixed-capacity slot table and the two table-scope locks
// that arbitrate access to it, grounded on the teacher's registry/cache
// layering: Manager plays the role the teacher's registryOnDisk plays for
// Handles, fronting a fs.Layout the way registryOnDisk fronts a hashmap.
//
// Lock order, acquired in this sequence only: allocationLock, controlLock,
// the sinks, then a slot's ioLock, then its mutex. See doc.go.
type Manager struct {
	cfg    Config
	layout *fs.Layout

	// allocationLock: exclusive serializes allocation/drop; shared lets the
	// checkpoint flusher walk the table without blocking allocation of
	// other names.
	allocationLock sync.RWMutex
	// controlLock: shared for read-only scans; exclusive to flip inUse.
	controlLock sync.RWMutex

	slots []*Slot

	xminSink XminSink
	lsnSink  LSNSink

	isPrimary atomic.Bool

	// upgradeLock serializes Persist against concurrent Persist calls on
	// other slots; a dedicated lock rather than allocationLock because
	// Persist does not allocate or drop.
	upgradeLock sync.Mutex
}

// ShmemSize reports the shared-memory footprint of a table sized for
// maxSlots entries, matching the public shmem_size() operation. It is an
// approximation: real shared memory sizing is an OS/allocator concern this
// module does not own.
func ShmemSize(maxSlots int) uintptr {
	if maxSlots <= 0 {
		return 0
	}
	return uintptr(maxSlots) * unsafe.Sizeof(Slot{})
}

// NewManager allocates and zero-initializes the slot table (shmem_init)
// and validates cfg (check_requirements). layout may be nil only when
// cfg.MaxSlots == 0. xminSink/lsnSink default to no-ops when nil, useful
// for tests that don't care about published aggregates.
func NewManager(cfg Config, layout *fs.Layout, xminSink XminSink, lsnSink LSNSink) (*Manager, error) {
	if xminSink == nil {
		xminSink = noopXminSink{}
	}
	if lsnSink == nil {
		lsnSink = noopLSNSink{}
	}

	m := &Manager{
		cfg:      cfg,
		layout:   layout,
		xminSink: xminSink,
		lsnSink:  lsnSink,
	}
	m.isPrimary.Store(true)

	if cfg.MaxSlots == 0 {
		return m, nil
	}
	if err := cfg.CheckRequirements(); err != nil {
		return nil, err
	}

	m.slots = make([]*Slot, cfg.MaxSlots)
	for i := range m.slots {
		m.slots[i] = &Slot{}
	}
	return m, nil
}

// CheckRequirements re-validates the manager's configuration, matching the
// public check_requirements() operation.
func (m *Manager) CheckRequirements() error {
	return m.cfg.CheckRequirements()
}

// SetPrimary records whether the local server is currently a primary (or
// pending-primary). RecomputeRequiredLSN consults this to decide whether
// physical-only slots may pin WAL.
func (m *Manager) SetPrimary(primary bool) {
	m.isPrimary.Store(primary)
}

func (m *Manager) disabled() bool {
	return m.cfg.MaxSlots == 0
}
