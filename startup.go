package replslot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sharedcode/replslot/fs"
)

// Startup scans ReplSlotDir, salvages or discards each entry found there,
// and populates the in-memory table from what survives, matching spec.md
// §4.7's startup restore. It must run once, before any Create/Acquire
// call, and before the table is handed to concurrent callers.
//
// A fs.FatalError surfacing from the filesystem layer — a slot directory
// whose state cannot be read, whose state and backup both fail
// verification, or whose state cannot be rewritten from the backup — is treated
// the way the original treats a PANIC-level ereport: this process cannot
// make forward progress with an unrecoverable entry, so it panics rather
// than silently dropping the slot.
//
// The returned StartupReport lets a host log or alert on salvage events
// without re-deriving them from the log stream.
func (m *Manager) Startup(ctx context.Context) (StartupReport, error) {
	var report StartupReport

	if m.disabled() {
		return report, nil
	}

	if err := m.layout.EnsureRoot(ctx); err != nil {
		return report, newError(IOError, "", err)
	}

	entries, err := m.layout.ListEntries(ctx)
	if err != nil {
		return report, newError(IOError, "", err)
	}

	next := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".tmp") {
			slog.WarnContext(ctx, "removing stray temp entry from replication slot directory", "entry", name)
			if err := m.layout.RemoveTmpEntry(ctx, name); err != nil {
				return report, newError(IOError, name, err)
			}
			continue
		}

		rec, outcome, err := m.layout.RestoreOne(ctx, name)
		if err != nil {
			panicf("unrecoverable replication slot state", "slot", name, "err", err)
		}

		var publicOutcome RestoreOutcome
		switch outcome {
		case fs.RestoreClean:
			publicOutcome = RestoreClean
		case fs.RestoreSalvaged:
			slog.WarnContext(ctx, "replication slot state salvaged from backup", "slot", name)
			publicOutcome = RestoreSalvaged
		case fs.RestoreDiscardedEphemeral:
			slog.WarnContext(ctx, "discarding ephemeral replication slot left behind by a crash", "slot", name)
			report.Entries = append(report.Entries, RestoreEntry{Name: name, Outcome: RestoreDiscardedEphemeral})
			continue
		}
		report.Entries = append(report.Entries, RestoreEntry{Name: name, Outcome: publicOutcome})

		if next >= len(m.slots) {
			panicf("more replication slot directories on disk than max_slots allows", "slot", name, "max_slots", len(m.slots))
		}

		pf := fromRecord(rec)
		slot := m.slots[next]
		next++

		slot.mutex.Lock()
		slot.inUse = true
		slot.active = false
		slot.name = pf.Name
		slot.databaseID = pf.DatabaseID
		slot.persistency = pf.Persistency
		slot.isDummyStandby = pf.IsDummyStandby
		slot.restartLSN = pf.RestartLSN
		slot.xmin = pf.Xmin
		slot.catalogXmin = pf.CatalogXmin
		slot.effectiveXmin = pf.Xmin
		slot.effectiveCatalogXmin = pf.CatalogXmin
		slot.candidateRestartLSN = InvalidLSN
		slot.candidateRestartValid = false
		slot.candidateXminLSN = InvalidLSN
		slot.candidateCatalogXmin = InvalidXid
		slot.dirty = false
		slot.justDirtied = false
		slot.mutex.Unlock()

		slog.InfoContext(ctx, "restored replication slot", "slot", pf.Name, "restart_lsn", pf.RestartLSN)
	}

	m.RecomputeRequiredXmin(ctx, false)
	m.RecomputeRequiredLSN(ctx)

	return report, nil
}

// StartupReport summarizes how Startup recovered each on-disk slot
// directory.
type StartupReport struct {
	Entries []RestoreEntry
}

// RestoreEntry records the outcome Startup produced for one on-disk slot
// directory.
type RestoreEntry struct {
	Name    string
	Outcome RestoreOutcome
}
