package replslot

import (
	"context"
	"log/slog"
)

// RecomputeRequiredXmin recomputes the table-wide xmin/catalog_xmin
// horizon and publishes it to the configured XminSink, matching spec.md
// §4.5's recompute_required_xmin. releaseExisting mirrors the original's
// "did we just release a slot" hint used only for logging.
func (m *Manager) RecomputeRequiredXmin(ctx context.Context, releaseExisting bool) {
	if m.disabled() {
		return
	}

	var agg, catalogAgg Xid

	m.controlLock.RLock()
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse {
			agg = xidMin(agg, s.effectiveXmin)
			catalogAgg = xidMin(catalogAgg, s.effectiveCatalogXmin)
		}
		s.mutex.Unlock()
	}
	m.controlLock.RUnlock()

	m.xminSink.PublishXmin(ctx, agg, catalogAgg)

	if releaseExisting {
		slog.DebugContext(ctx, "recomputed required xmin after release", "xmin", agg, "catalog_xmin", catalogAgg)
	}
}

// RecomputeRequiredLSN recomputes the table-wide minimum and maximum
// restart_lsn and publishes it to the configured LSNSink, matching
// spec.md §4.5's recompute_required_lsn. Physical slots are excluded from
// the aggregate while the local server is not a primary, matching the
// original's standby behavior of only trusting logical slots' positions
// until promotion.
func (m *Manager) RecomputeRequiredLSN(ctx context.Context) {
	if m.disabled() {
		return
	}

	isPrimary := m.isPrimary.Load()

	var minLSN, maxLSN LSN
	var existsInUse bool

	m.controlLock.RLock()
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse {
			if isPrimary || s.databaseID != NoneOID {
				existsInUse = true
				minLSN = lsnMin(minLSN, s.restartLSN)
				maxLSN = lsnMax(maxLSN, s.restartLSN)
			}
		}
		s.mutex.Unlock()
	}
	m.controlLock.RUnlock()

	m.lsnSink.PublishLSN(ctx, minLSN, maxLSN, existsInUse)
}

// LogicalRestartLSN returns the minimum restart_lsn across all in-use
// logical slots, or InvalidLSN if there are none, matching spec.md §4.5's
// logical_restart_lsn.
func (m *Manager) LogicalRestartLSN() LSN {
	var min LSN

	m.controlLock.RLock()
	defer m.controlLock.RUnlock()
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse && s.databaseID != NoneOID {
			min = lsnMin(min, s.restartLSN)
		}
		s.mutex.Unlock()
	}
	return min
}

// CountDBSlots reports the number of in-use logical slots bound to
// databaseID, how many of those are active, and whether any exist at all,
// matching spec.md §4.5's count_db_slots (used to gate DROP DATABASE).
func (m *Manager) CountDBSlots(databaseID OID) (nslots, nactive int, any bool) {
	m.controlLock.RLock()
	defer m.controlLock.RUnlock()
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse && s.databaseID != NoneOID && s.databaseID == databaseID {
			nslots++
			if s.active {
				nactive++
			}
		}
		s.mutex.Unlock()
	}
	return nslots, nactive, nslots > 0
}

// ReportRestartLSN logs the name and restart_lsn of every in-use slot,
// matching spec.md §4.5's report_restart_lsn — supplemented from
// original_source/slot.cpp, which logs this at each checkpoint to make WAL
// retention decisions auditable.
func (m *Manager) ReportRestartLSN(ctx context.Context) {
	m.controlLock.RLock()
	defer m.controlLock.RUnlock()
	for _, s := range m.slots {
		s.mutex.Lock()
		if s.inUse {
			slog.InfoContext(ctx, "replication slot restart position", "slot", s.name, "restart_lsn", s.restartLSN)
		}
		s.mutex.Unlock()
	}
}
