package replslot

import "sync"

// OID is an opaque database identifier. NoneOID means the slot is physical
// (not bound to any database); any other value means it is logical.
type OID uint32

// NoneOID is the sentinel database id marking a slot physical.
const NoneOID OID = 0

// Persistency controls what happens to a slot on Release.
type Persistency int

const (
	// Persistent slots survive Release and are restored at Startup.
	Persistent Persistency = iota
	// Ephemeral slots are deleted on Release; used for transient setup
	// such as building a logical decoding snapshot.
	Ephemeral
)

// RestoreOutcome classifies how a slot's on-disk state was recovered at
// Startup, for callers that want to log or alert on salvage events.
type RestoreOutcome int

const (
	// RestoreClean means the primary state file decoded and verified.
	RestoreClean RestoreOutcome = iota
	// RestoreSalvaged means the primary was corrupt and the backup copy
	// was used to rewrite it.
	RestoreSalvaged
	// RestoreDiscardedEphemeral means the entry was a crashed ephemeral
	// slot and its directory was removed rather than restored.
	RestoreDiscardedEphemeral
)

// Slot is the in-memory descriptor for one replication slot entry. The
// fields from `name` through `catalogXmin` are the persistent subset
// written to disk; the rest is volatile bookkeeping.
//
// mutex guards every field below except inUse, which is owned by the
// table's CONTROL_LOCK. ioLock serializes Save calls for this slot; it is
// always acquired before mutex, never while mutex is held.
type Slot struct {
	mutex  sync.Mutex
	ioLock sync.Mutex

	inUse          bool
	active         bool
	name           string
	databaseID     OID
	isDummyStandby bool
	persistency    Persistency

	restartLSN LSN
	xmin       Xid
	catalogXmin Xid

	effectiveXmin        Xid
	effectiveCatalogXmin Xid

	candidateRestartLSN   LSN
	candidateRestartValid bool
	candidateXminLSN      LSN
	candidateCatalogXmin  Xid

	dirty       bool
	justDirtied bool
}

// record returns the persistent subset of the slot's fields, for encoding
// to disk. Callers must hold s.mutex.
func (s *Slot) record() persistentFields {
	return persistentFields{
		Name:           s.name,
		DatabaseID:     s.databaseID,
		Persistency:    s.persistency,
		Xmin:           s.xmin,
		CatalogXmin:    s.catalogXmin,
		RestartLSN:     s.restartLSN,
		IsDummyStandby: s.isDummyStandby,
	}
}

// persistentFields is the subset of Slot written to and read from disk,
// matching the dynamic region of the on-disk record (spec.md §3/§6).
type persistentFields struct {
	Name           string
	DatabaseID     OID
	Persistency    Persistency
	Xmin           Xid
	CatalogXmin    Xid
	RestartLSN     LSN
	IsDummyStandby bool
}

// IsLogical reports whether the slot is bound to a database (as opposed to
// a physical slot, which only pins WAL).
func (pf persistentFields) IsLogical() bool {
	return pf.DatabaseID != NoneOID
}
