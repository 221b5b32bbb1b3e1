package codepage

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for b := 0x20; b <= 0x7E; b++ {
		r, err := DecodeByte(byte(b))
		if err != nil {
			t.Fatalf("DecodeByte(0x%02X): %v", b, err)
		}
		got, err := EncodeRune(r)
		if err != nil {
			t.Fatalf("EncodeRune(%q): %v", r, err)
		}
		if got != byte(b) {
			t.Errorf("round trip 0x%02X: got 0x%02X", b, got)
		}
	}

	for b := 0xA1; b <= 0xFF; b++ {
		if b == 0xAD {
			continue // soft hyphen: see TestSoftHyphen
		}
		if b == 0xB6 {
			continue // unassigned: ¶ lives at 0x14, see TestPilcrowMapsTo0x14
		}
		r, err := DecodeByte(byte(b))
		if err != nil {
			t.Fatalf("DecodeByte(0x%02X): %v", b, err)
		}
		got, err := EncodeRune(r)
		if err != nil {
			t.Fatalf("EncodeRune(%q): %v", r, err)
		}
		if got != byte(b) {
			t.Errorf("round trip 0x%02X: got 0x%02X", b, got)
		}
	}
}

func TestSoftHyphen(t *testing.T) {
	r, err := DecodeByte(0xAD)
	if err != nil {
		t.Fatalf("DecodeByte(0xAD): %v", err)
	}
	if r != '­' {
		t.Errorf("0xAD decoded to %U, want U+00AD", r)
	}
	b, err := EncodeRune('­')
	if err != nil {
		t.Fatalf("EncodeRune(soft hyphen): %v", err)
	}
	if b != 0xAD {
		t.Errorf("soft hyphen encoded to 0x%02X, want 0xAD", b)
	}
}

func TestPilcrowMapsTo0x14(t *testing.T) {
	b, err := EncodeRune('¶')
	if err != nil {
		t.Fatalf("EncodeRune(¶): %v", err)
	}
	if b != 0x14 {
		t.Errorf("¶ encoded to 0x%02X, want 0x14", b)
	}
}

func Test0x80Unassigned(t *testing.T) {
	if _, err := DecodeByte(0x80); err == nil {
		t.Error("expected DecodeByte(0x80) to fail")
	}
}

func TestEncodeFailsClosedOnFirstBadChar(t *testing.T) {
	_, err := Encode("ok\U0001F600oops")
	if err == nil {
		t.Fatal("expected Encode to fail on an untranslatable character")
	}
	if _, ok := err.(*InvalidCharError); !ok {
		t.Errorf("expected *InvalidCharError, got %T", err)
	}
}

func TestDecodeRejectsUnassignedByte(t *testing.T) {
	_, err := Decode([]byte{'o', 'k', 0x80})
	if err == nil {
		t.Fatal("expected Decode to fail on byte 0x80")
	}
}
