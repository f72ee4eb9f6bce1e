package replslot

import (
	"context"
	"fmt"
	"log/slog"
)

// Create allocates a new slot entry, writes its first on-disk record, and
// returns an Owner bound to it for the calling session. Matches spec.md
// §4.4's create.
func (m *Manager) Create(ctx context.Context, name string, persistency Persistency, isDummyStandby bool, databaseID OID, restartLSN LSN) (*Owner, error) {
	if m.disabled() {
		return nil, newError(NotConfigured, name, fmt.Errorf("replication slots disabled"))
	}
	if err := validateNameLogged(ctx, name, slog.LevelWarn); err != nil {
		return nil, err
	}

	m.allocationLock.Lock()
	defer m.allocationLock.Unlock()

	m.controlLock.RLock()
	var target *Slot
	inUseNames := make([]string, 0, len(m.slots))
	for _, s := range m.slots {
		s.mutex.Lock()
		inUse := s.inUse
		sname := s.name
		s.mutex.Unlock()
		if !inUse {
			if target == nil {
				target = s
			}
			continue
		}
		inUseNames = append(inUseNames, sname)
		if sname == name {
			m.controlLock.RUnlock()
			level := slog.LevelWarn
			if databaseID != NoneOID {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "replication slot already exists", "slot", name)
			return nil, newError(Duplicate, name, fmt.Errorf("slot %q already exists", name))
		}
	}
	m.controlLock.RUnlock()

	if target == nil {
		slog.Log(ctx, slog.LevelInfo, "no free replication slots", "in_use", inUseNames)
		return nil, newError(Capacity, name, fmt.Errorf("all %d replication slots are in use", len(m.slots)))
	}

	target.mutex.Lock()
	target.persistency = persistency
	target.xmin = InvalidXid
	target.effectiveXmin = InvalidXid
	target.catalogXmin = InvalidXid
	target.effectiveCatalogXmin = InvalidXid
	target.candidateRestartLSN = InvalidLSN
	target.candidateRestartValid = false
	target.candidateXminLSN = InvalidLSN
	target.candidateCatalogXmin = InvalidXid
	target.name = name
	target.databaseID = databaseID
	target.restartLSN = restartLSN
	target.isDummyStandby = isDummyStandby
	rec := target.record()
	target.mutex.Unlock()

	if err := m.layout.CreateOnDisk(ctx, name, toRecord(rec)); err != nil {
		return nil, newError(IOError, name, err)
	}

	m.controlLock.Lock()
	target.mutex.Lock()
	target.inUse = true
	target.active = true
	target.mutex.Unlock()
	m.controlLock.Unlock()

	return newOwner(m, target), nil
}

// Acquire attaches the calling session to an existing in-use slot, matching
// spec.md §4.4's acquire.
func (m *Manager) Acquire(ctx context.Context, name string, isDummyStandby bool) (*Owner, error) {
	if m.disabled() {
		return nil, newError(NotConfigured, name, fmt.Errorf("replication slots disabled"))
	}
	if err := validateNameLogged(ctx, name, slog.LevelWarn); err != nil {
		return nil, err
	}

	m.controlLock.RLock()
	var found *Slot
	var wasActive bool
	var isLogical bool
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse && s.name == name {
			wasActive = s.active
			s.active = true
			isLogical = s.databaseID != NoneOID
			found = s
			s.mutex.Unlock()
			break
		}
		s.mutex.Unlock()
	}
	m.controlLock.RUnlock()

	if found == nil {
		return nil, newError(NotFound, name, fmt.Errorf("slot %q not found", name))
	}

	if wasActive {
		found.mutex.Lock()
		standbyMismatch := found.isDummyStandby != isDummyStandby
		found.mutex.Unlock()
		if isLogical || standbyMismatch {
			return nil, newError(InUse, name, fmt.Errorf("slot %q is already in use", name))
		}
		slog.WarnContext(ctx, "reacquiring replication slot left active by a crashed session", "slot", name)
	}

	if isLogical {
		found.mutex.Lock()
		found.candidateRestartLSN = InvalidLSN
		found.candidateRestartValid = false
		found.candidateXminLSN = InvalidLSN
		found.candidateCatalogXmin = InvalidXid
		found.mutex.Unlock()
	}

	return newOwner(m, found), nil
}

// Release detaches the owner's session from its slot, matching spec.md
// §4.4's release. Ephemeral slots are dropped instead of merely detached.
// Idempotent: releasing an already-released Owner is a no-op.
func (o *Owner) Release(ctx context.Context) error {
	if o.slot == nil {
		return nil
	}
	slot := o.slot

	slot.mutex.Lock()
	active := slot.active
	ephemeral := slot.persistency == Ephemeral
	slot.mutex.Unlock()

	if !active {
		o.slot = nil
		o.loggingDecoding = false
		return nil
	}

	if ephemeral {
		return o.dropAcquired(ctx)
	}

	slot.mutex.Lock()
	slot.active = false
	snapshotBuilding := !slot.xmin.IsValid() && slot.effectiveXmin.IsValid()
	if snapshotBuilding {
		slot.effectiveXmin = InvalidXid
	}
	slot.mutex.Unlock()

	if snapshotBuilding {
		o.mgr.RecomputeRequiredXmin(ctx, false)
	}

	o.slot = nil
	o.loggingDecoding = false
	return nil
}

// Drop acquires name (recovering from a crashed owning session the same
// way Acquire does) and then drops it, matching spec.md §4.4's drop.
func (m *Manager) Drop(ctx context.Context, name string) error {
	owner, err := m.Acquire(ctx, name, false)
	if err != nil {
		return err
	}

	owner.slot.mutex.Lock()
	logical := owner.slot.databaseID != NoneOID
	owner.slot.mutex.Unlock()

	if err := owner.dropAcquired(ctx); err != nil {
		return err
	}

	if logical {
		slog.InfoContext(ctx, "logical replication slot dropped", "slot", name)
	}
	return nil
}

// dropAcquired implements spec.md §4.4's drop_acquired. Precondition: o
// currently owns a slot.
func (o *Owner) dropAcquired(ctx context.Context) error {
	slot := o.slot
	o.slot = nil
	o.loggingDecoding = false

	slot.mutex.Lock()
	name := slot.name
	ephemeral := slot.persistency == Ephemeral
	slot.mutex.Unlock()

	o.mgr.allocationLock.Lock()
	defer o.mgr.allocationLock.Unlock()

	if err := o.mgr.layout.RenameToDropTmp(ctx, name); err != nil {
		slot.mutex.Lock()
		slot.active = false
		slot.mutex.Unlock()
		level := slog.LevelError
		if ephemeral {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "failed to rename slot directory for drop", "slot", name, "err", err)
		return newError(IOError, name, err)
	}

	o.mgr.controlLock.Lock()
	slot.mutex.Lock()
	slot.active = false
	slot.inUse = false
	slot.mutex.Unlock()
	o.mgr.controlLock.Unlock()

	o.mgr.RecomputeRequiredXmin(ctx, false)
	o.mgr.RecomputeRequiredLSN(ctx)

	if err := o.mgr.layout.RemoveDropTmp(ctx, name); err != nil {
		slog.WarnContext(ctx, "leftover slot directory not cleaned up, will retry at next startup", "slot", name, "err", err)
	}

	return nil
}

// Save persists the owned slot's current in-memory state, matching
// spec.md §4.4's save. Re-creates the on-disk directory first if it is
// missing (e.g. following a restore that never rebuilt it).
func (o *Owner) Save(ctx context.Context) error {
	slot := o.slot
	if slot == nil {
		return newError(NotFound, "", fmt.Errorf("no current slot held"))
	}

	slot.mutex.Lock()
	name := slot.name
	slot.mutex.Unlock()

	if !o.mgr.layout.Exists(ctx, name) {
		slot.mutex.Lock()
		slot.dirty = true
		slot.justDirtied = true
		rec := slot.record()
		slot.mutex.Unlock()
		if err := o.mgr.layout.CreateOnDisk(ctx, name, toRecord(rec)); err != nil {
			return newError(IOError, name, err)
		}
		slot.mutex.Lock()
		slot.justDirtied = false
		slot.dirty = false
		slot.mutex.Unlock()
		return nil
	}

	return o.mgr.saveToPath(ctx, slot, o.mgr.layoutPath(name))
}

// saveToPath implements spec.md §4.3's save_to_path: read the dirty bit and
// clear justDirtied, write under the slot's io lock, and only clear dirty
// if nothing re-dirtied the slot while the write was in flight.
func (m *Manager) saveToPath(ctx context.Context, slot *Slot, dirPath string) error {
	slot.mutex.Lock()
	wasDirty := slot.dirty
	slot.justDirtied = false
	slot.mutex.Unlock()

	if !wasDirty {
		return nil
	}

	slot.ioLock.Lock()
	defer slot.ioLock.Unlock()

	slot.mutex.Lock()
	rec := slot.record()
	name := slot.name
	slot.mutex.Unlock()

	if err := m.layout.WriteRecord(ctx, dirPath, toRecord(rec)); err != nil {
		return newError(IOError, name, err)
	}

	slot.mutex.Lock()
	if !slot.justDirtied {
		slot.dirty = false
	}
	slot.mutex.Unlock()
	return nil
}

func (m *Manager) layoutPath(name string) string {
	return m.layout.Dir + "/" + name
}

// MarkDirty flags the owned slot for persistence at the next Save or
// Checkpoint, matching spec.md §4.4's mark_dirty.
func (o *Owner) MarkDirty() {
	if o.slot == nil {
		return
	}
	o.slot.mutex.Lock()
	o.slot.dirty = true
	o.slot.justDirtied = true
	o.slot.mutex.Unlock()
}

// Persist transitions an ephemeral owned slot to persistent and saves it
// immediately, matching spec.md §4.4's persist.
func (o *Owner) Persist(ctx context.Context) error {
	if o.slot == nil {
		return newError(NotFound, "", fmt.Errorf("no current slot held"))
	}

	o.mgr.upgradeLock.Lock()
	o.slot.mutex.Lock()
	o.slot.persistency = Persistent
	o.slot.mutex.Unlock()
	o.mgr.upgradeLock.Unlock()

	o.MarkDirty()
	return o.Save(ctx)
}

// SetDummyStandbyLSNInvalid clears restart_lsn on an owned dummy-standby
// slot if it is not already invalid, matching spec.md §4.4's
// set_dummy_standby_lsn_invalid.
func (o *Owner) SetDummyStandbyLSNInvalid(ctx context.Context) {
	if o.slot == nil {
		return
	}
	o.slot.mutex.Lock()
	if !o.slot.isDummyStandby || !o.slot.restartLSN.IsValid() {
		o.slot.mutex.Unlock()
		return
	}
	o.slot.restartLSN = InvalidLSN
	o.slot.dirty = true
	o.slot.justDirtied = true
	o.slot.mutex.Unlock()

	o.mgr.RecomputeRequiredLSN(ctx)
}

// Find reports whether a slot named name is currently in use.
func (m *Manager) Find(name string) bool {
	m.controlLock.RLock()
	defer m.controlLock.RUnlock()
	for _, s := range m.slots {
		s.mutex.Lock()
		match := s.inUse && s.name == name
		s.mutex.Unlock()
		if match {
			return true
		}
	}
	return false
}
