package fs

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// SlotMagic identifies a valid slot state record.
const SlotMagic uint32 = 0x1214FACE

// RecordVersion is the current on-disk record version.
const RecordVersion uint32 = 1

// NameMax mirrors replslot.NameMax; kept independent so this package has no
// dependency on the caller's package (see doc.go).
const NameMax = 64

const (
	constantRegionSize = 16 // magic(4) + crc32c(4) + version(4) + length(4)
	dynamicRegionSize  = NameMax + 4 /*dbid*/ + 1 /*persistency*/ + 1 /*dummy standby*/ + 2 /*pad*/ + 4 /*xmin*/ + 4 /*catalog xmin*/ + 8 /*restart lsn*/
	// RecordSize is the fixed total size of an encoded slot record.
	RecordSize = constantRegionSize + dynamicRegionSize
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Record is the persistent subset of a slot's fields: the fixed-layout
// structure written to <dir>/state and <dir>/state.backup.
type Record struct {
	Name           string
	DatabaseID     uint32
	Persistency    uint8
	IsDummyStandby bool
	Xmin           uint32
	CatalogXmin    uint32
	RestartLSN     uint64
}

// Encode serializes r into a RecordSize-byte buffer: the constant header
// (magic, CRC-32C, version, length) followed by the dynamic region. The CRC
// covers only the dynamic region, per the on-disk format.
func Encode(r Record) ([]byte, error) {
	if len(r.Name) >= NameMax {
		return nil, fmt.Errorf("fs: slot name %q too long for on-disk record", r.Name)
	}

	buf := make([]byte, RecordSize)
	dyn := buf[constantRegionSize:]

	copy(dyn[0:NameMax], r.Name)
	// copy leaves the remainder of the NameMax region zero, the NUL padding
	// the format requires.

	off := NameMax
	binary.LittleEndian.PutUint32(dyn[off:], r.DatabaseID)
	off += 4
	dyn[off] = r.Persistency
	off++
	if r.IsDummyStandby {
		dyn[off] = 1
	}
	off++
	off += 2 // reserved padding, always zero
	binary.LittleEndian.PutUint32(dyn[off:], r.Xmin)
	off += 4
	binary.LittleEndian.PutUint32(dyn[off:], r.CatalogXmin)
	off += 4
	binary.LittleEndian.PutUint64(dyn[off:], r.RestartLSN)

	crc := crc32.Checksum(dyn, castagnoliTable)

	binary.LittleEndian.PutUint32(buf[0:], SlotMagic)
	binary.LittleEndian.PutUint32(buf[4:], crc)
	binary.LittleEndian.PutUint32(buf[8:], RecordVersion)
	binary.LittleEndian.PutUint32(buf[12:], uint32(dynamicRegionSize))

	return buf, nil
}

// Decode parses a RecordSize-byte buffer produced by Encode, verifying
// magic, version, length and CRC-32C before returning the dynamic fields.
func Decode(buf []byte) (Record, error) {
	var r Record
	if len(buf) != RecordSize {
		return r, fmt.Errorf("fs: slot record has wrong size %d, want %d", len(buf), RecordSize)
	}

	magic := binary.LittleEndian.Uint32(buf[0:])
	if magic != SlotMagic {
		return r, fmt.Errorf("fs: slot record has wrong magic %#x, want %#x", magic, SlotMagic)
	}
	storedCRC := binary.LittleEndian.Uint32(buf[4:])
	version := binary.LittleEndian.Uint32(buf[8:])
	if version != RecordVersion {
		return r, fmt.Errorf("fs: slot record has unsupported version %d", version)
	}
	length := binary.LittleEndian.Uint32(buf[12:])
	if length != uint32(dynamicRegionSize) {
		return r, fmt.Errorf("fs: slot record has wrong dynamic length %d, want %d", length, dynamicRegionSize)
	}

	dyn := buf[constantRegionSize:]
	crc := crc32.Checksum(dyn, castagnoliTable)
	if crc != storedCRC {
		return r, fmt.Errorf("fs: slot record checksum mismatch")
	}

	nameEnd := 0
	for nameEnd < NameMax && dyn[nameEnd] != 0 {
		nameEnd++
	}
	r.Name = string(dyn[:nameEnd])

	off := NameMax
	r.DatabaseID = binary.LittleEndian.Uint32(dyn[off:])
	off += 4
	r.Persistency = dyn[off]
	off++
	r.IsDummyStandby = dyn[off] != 0
	off++
	off += 2
	r.Xmin = binary.LittleEndian.Uint32(dyn[off:])
	off += 4
	r.CatalogXmin = binary.LittleEndian.Uint32(dyn[off:])
	off += 4
	r.RestartLSN = binary.LittleEndian.Uint64(dyn[off:])

	return r, nil
}
