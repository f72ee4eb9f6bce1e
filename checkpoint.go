package replslot

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultCheckpointConcurrency bounds how many slots Checkpoint will save
// concurrently when the caller does not override it.
const DefaultCheckpointConcurrency = 4

// Checkpoint walks the table and, for every in-use slot, either recreates
// its on-disk directory (if missing) or saves its dirty state, matching
// spec.md §4.6's checkpoint. It holds allocationLock shared for the whole
// flush: Create/Drop, which take it exclusively, wait until the flush ends,
// while Acquire/Release, which do not take it, proceed concurrently. It
// bounds concurrent writes with a taskRunner the way the teacher bounds
// concurrent object saves. A per-slot failure is logged and does not abort
// the remaining saves; Checkpoint returns the first error encountered, if
// any, after every slot has been attempted.
func (m *Manager) Checkpoint(ctx context.Context) error {
	if m.disabled() {
		return nil
	}

	m.allocationLock.RLock()
	defer m.allocationLock.RUnlock()

	concurrency := m.cfg.CheckpointConcurrency
	if concurrency <= 0 {
		concurrency = DefaultCheckpointConcurrency
	}

	runner := newTaskRunner(ctx, concurrency)

	var mu sync.Mutex
	var firstErr error

	for _, slot := range m.slots {
		slot := slot
		slot.mutex.Lock()
		name := slot.name
		inUse := slot.inUse
		slot.mutex.Unlock()
		if !inUse {
			continue
		}

		runner.Go(func() error {
			var err error
			if !m.layout.Exists(ctx, name) {
				slot.mutex.Lock()
				rec := slot.record()
				slot.mutex.Unlock()
				err = m.layout.CreateOnDisk(ctx, name, toRecord(rec))
			} else {
				err = m.saveToPath(ctx, slot, m.layoutPath(name))
			}
			if err != nil {
				slog.ErrorContext(ctx, "checkpoint failed to save replication slot", "slot", name, "err", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := runner.Wait(); err != nil {
		return err
	}

	m.ReportRestartLSN(ctx)
	return firstErr
}
