package fs

import "testing"

func sampleRecord() Record {
	return Record{
		Name:           "s1",
		DatabaseID:     42,
		Persistency:    1,
		IsDummyStandby: true,
		Xmin:           100,
		CatalogXmin:    90,
		RestartLSN:     0x1000,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := sampleRecord()
	buf, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != RecordSize {
		t.Fatalf("Encode produced %d bytes, want %d", len(buf), RecordSize)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestDecodeRejectsTornMagic(t *testing.T) {
	buf, err := Encode(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	buf[0] ^= 0xFF
	if _, err := Decode(buf); err == nil {
		t.Fatal("Decode accepted corrupted magic")
	}
}

func TestDecodeRejectsChecksumMismatch(t *testing.T) {
	buf, err := Encode(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte in the dynamic region without touching the header.
	buf[constantRegionSize] ^= 0xFF
	if _, err := Decode(buf); err == nil {
		t.Fatal("Decode accepted corrupted dynamic region")
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("Decode accepted undersized buffer")
	}
}

func TestEncodeRejectsOversizedName(t *testing.T) {
	r := sampleRecord()
	name := make([]byte, NameMax)
	for i := range name {
		name[i] = 'a'
	}
	r.Name = string(name)
	if _, err := Encode(r); err == nil {
		t.Fatal("Encode accepted a name at exactly NameMax bytes")
	}
}
