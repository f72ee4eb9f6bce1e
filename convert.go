package replslot

import "github.com/sharedcode/replslot/fs"

func toRecord(pf persistentFields) fs.Record {
	return fs.Record{
		Name:           pf.Name,
		DatabaseID:     uint32(pf.DatabaseID),
		Persistency:    uint8(pf.Persistency),
		IsDummyStandby: pf.IsDummyStandby,
		Xmin:           uint32(pf.Xmin),
		CatalogXmin:    uint32(pf.CatalogXmin),
		RestartLSN:     uint64(pf.RestartLSN),
	}
}

func fromRecord(r fs.Record) persistentFields {
	return persistentFields{
		Name:           r.Name,
		DatabaseID:     OID(r.DatabaseID),
		Persistency:    Persistency(r.Persistency),
		Xmin:           Xid(r.Xmin),
		CatalogXmin:    Xid(r.CatalogXmin),
		RestartLSN:     LSN(r.RestartLSN),
		IsDummyStandby: r.IsDummyStandby,
	}
}
