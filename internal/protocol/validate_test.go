package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(TypePacket, PacketPayload{ID: "7FF", Data: "DEADBEEF"})

	if msg.Type != TypePacket {
		t.Errorf("expected type %s, got %s", TypePacket, msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	data, err := msg.Encode(EncodingJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded struct {
		Type    string        `json:"type"`
		Payload PacketPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != TypePacket || decoded.Payload.ID != "7FF" || decoded.Payload.Data != "DEADBEEF" {
		t.Errorf("unexpected decoded message %+v", decoded)
	}
}

func TestMessage_EncodeCBOR(t *testing.T) {
	msg := NewMessage(TypePacket, PacketPayload{Timestamp: 1.5, ID: "100", Ext: "0", RTR: "0", Data: "01", Label: "Door"})

	data, err := msg.Encode(EncodingCBOR)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if json.Valid(data) {
		t.Fatal("expected binary CBOR, got JSON")
	}

	var decoded struct {
		Type      string        `json:"type"`
		Payload   PacketPayload `json:"payload"`
		Timestamp string        `json:"timestamp"`
	}
	if err := Unmarshal(EncodingCBOR, data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Payload != msg.Payload.(PacketPayload) {
		t.Errorf("payload mismatch: got %+v", decoded.Payload)
	}
	if _, err := time.Parse(time.RFC3339Nano, decoded.Timestamp); err != nil {
		t.Errorf("timestamp not RFC 3339: %q", decoded.Timestamp)
	}
}

func TestMessage_EncodeCBORDeterministic(t *testing.T) {
	msg := NewMessage(TypeError, ErrorPayload{Code: ErrInvalidMessage, Message: "bad"})
	a, _ := msg.Encode(EncodingCBOR)
	b, _ := msg.Encode(EncodingCBOR)
	if string(a) != string(b) {
		t.Error("expected identical encodings")
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		raw     string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingJSON, false},
		{"json", EncodingJSON, false},
		{"cbor", EncodingCBOR, false},
		{"msgpack", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEncoding(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEncoding(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if !EncodingCBOR.Binary() || EncodingJSON.Binary() {
		t.Error("only CBOR should be binary")
	}
}

func TestPacketFromFrame(t *testing.T) {
	f := frame.Frame{ID: "7FF", Ext: "0", RTR: "0", Data: "DEADBEEF", Elapsed: 2500 * time.Millisecond, Label: "Diag"}
	p := PacketFromFrame(f)
	want := PacketPayload{Timestamp: 2.5, ID: "7FF", Ext: "0", RTR: "0", Data: "DEADBEEF", Label: "Diag"}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
}

func TestValidateClientMessage_ValidPacketSend(t *testing.T) {
	raw := `{"type":"packet.send","payload":{"id":"123","data":"0102"}}`

	msg, err := ValidateClientMessage(EncodingJSON, []byte(raw))
	if err != nil {
		t.Fatalf("expected valid message, got error: %v", err)
	}
	if msg.Type != TypePacketSend {
		t.Errorf("expected type %s, got %s", TypePacketSend, msg.Type)
	}
	want := SendPacketPayload{ID: "123", Ext: "00", RTR: "00", Data: "0102"}
	if msg.Payload != want {
		t.Errorf("expected defaults applied, got %+v", msg.Payload)
	}
}

func TestValidateClientMessage_ValidStatusRequest(t *testing.T) {
	msg, err := ValidateClientMessage(EncodingJSON, []byte(`{"type":"status.request"}`))
	if err != nil {
		t.Fatalf("expected valid message, got error: %v", err)
	}
	if msg.Type != TypeStatusRequest {
		t.Errorf("expected type %s, got %s", TypeStatusRequest, msg.Type)
	}
}

func TestValidateClientMessage_CBOR(t *testing.T) {
	raw, err := Marshal(EncodingCBOR, map[string]any{
		"type":    TypePacketSend,
		"payload": map[string]any{"id": "7FF", "ext": "01", "rtr": "00", "data": "AA"},
	})
	if err != nil {
		t.Fatal(err)
	}

	msg, err := ValidateClientMessage(EncodingCBOR, raw)
	if err != nil {
		t.Fatalf("expected valid message, got error: %v", err)
	}
	want := SendPacketPayload{ID: "7FF", Ext: "01", RTR: "00", Data: "AA"}
	if msg.Payload != want {
		t.Errorf("got %+v, want %+v", msg.Payload, want)
	}
}

func TestValidateClientMessage_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"invalid JSON", `not json`, "invalid json"},
		{"missing type", `{"payload":{}}`, "missing 'type'"},
		{"unknown type", `{"type":"session.create","payload":{}}`, "unknown message type"},
		{"packet.send without id", `{"type":"packet.send","payload":{"data":"01"}}`, "'id'"},
		{"packet.send without payload", `{"type":"packet.send"}`, "'id'"},
		{"payload wrong shape", `{"type":"packet.send","payload":"7FF"}`, "invalid json"},
	}

	for _, tt := range tests {
		_, err := ValidateClientMessage(EncodingJSON, []byte(tt.raw))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestValidateClientMessage_CBORGarbage(t *testing.T) {
	if _, err := ValidateClientMessage(EncodingCBOR, []byte{0xff, 0x00}); err == nil {
		t.Error("expected error for malformed CBOR")
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage(ErrNotConnected, "not connected")
	if msg.Type != TypeError {
		t.Errorf("expected type %s, got %s", TypeError, msg.Type)
	}
	p, ok := msg.Payload.(ErrorPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if p.Code != ErrNotConnected || p.Message != "not connected" {
		t.Errorf("unexpected payload %+v", p)
	}
}
