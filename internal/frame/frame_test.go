package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode_WellFormed(t *testing.T) {
	f, err := Decode("7FF,0,0,DEADBEEF\r\n")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.ID != "7FF" || f.Ext != "0" || f.RTR != "0" || f.Data != "DEADBEEF" {
		t.Errorf("unexpected frame: %+v", f)
	}
	if f.Elapsed != 0 || f.Label != "" {
		t.Errorf("expected unstamped frame, got %+v", f)
	}
}

func TestDecode_PayloadTokensJoined(t *testing.T) {
	f, err := Decode("123,00,00,DE,AD,BE,EF")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Data != "DEADBEEF" {
		t.Errorf("expected payload DEADBEEF, got %s", f.Data)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	f, err := Decode("100,0,1,")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Data != "" {
		t.Errorf("expected empty payload, got %q", f.Data)
	}
	if !f.Remote() {
		t.Error("expected remote flag")
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []string{
		"",
		"123",
		"123,00",
		"123,00,00",
		"\r\n",
	}
	for _, line := range tests {
		_, err := Decode(line)
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Decode(%q): expected ErrMalformedFrame, got %v", line, err)
		}
	}
}

func TestEncode(t *testing.T) {
	got := Encode("7E0", "00", "00", "0201050000000000")
	want := "7E0,00,00,0201050000000000\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"7FF,0,0,DEADBEEF\n",
		"18DAF110,1,0,0322F19000000000\n",
		"000,00,01,\n",
	}
	for _, line := range lines {
		f, err := Decode(line)
		if err != nil {
			t.Fatalf("Decode(%q): %v", line, err)
		}
		if got := Encode(f.ID, f.Ext, f.RTR, f.Data); got != line {
			t.Errorf("round trip: expected %q, got %q", line, got)
		}
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"", false},
		{"0", false},
		{"00", false},
		{"1", true},
		{"01", true},
		{"true", true},
		{"false", false},
	}
	for _, tt := range tests {
		f := Frame{Ext: tt.tok, RTR: tt.tok}
		if f.Extended() != tt.want || f.Remote() != tt.want {
			t.Errorf("flag %q: expected %v", tt.tok, tt.want)
		}
	}
}

func TestBytes(t *testing.T) {
	f := Frame{Data: "DEADBEEF"}
	b, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(b, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("unexpected bytes %X", b)
	}

	if _, err := (Frame{Data: "XYZ"}).Bytes(); err == nil {
		t.Error("expected error for non-hex payload")
	}
}
