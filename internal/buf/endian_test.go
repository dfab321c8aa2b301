package buf

import "testing"

func TestPutU32LE(t *testing.T) {
	b := make([]byte, 8)
	if !PutU32LE(b, 4, 0x5A1AA1A5) {
		t.Fatalf("PutU32LE should fit at offset 4")
	}
	if b[4] != 0xA5 || b[7] != 0x5A {
		t.Fatalf("unexpected byte order: % x", b)
	}
	if U32LE(b[4:]) != 0x5A1AA1A5 {
		t.Fatalf("U32LE mismatch")
	}
}

func TestPutU32LEOutOfBounds(t *testing.T) {
	b := make([]byte, 6)
	if PutU32LE(b, 4, 1) {
		t.Fatalf("PutU32LE should refuse a field crossing the end")
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d modified: %x", i, v)
		}
	}
	if U32LE(b[4:]) != 0 {
		t.Fatalf("U32LE on short buffer should be 0")
	}
}
