package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Encoding selects the serialization used on a WebSocket connection.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding maps a query value to an Encoding. Empty means JSON.
func ParseEncoding(raw string) (Encoding, error) {
	switch Encoding(raw) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingCBOR:
		return EncodingCBOR, nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", raw)
	}
}

// Binary reports whether messages in this encoding go out as binary frames.
func (e Encoding) Binary() bool { return e == EncodingCBOR }

// encMode uses Core Deterministic Encoding so identical messages produce
// identical bytes. Times are written as RFC 3339 strings to match JSON.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in the given encoding.
func Marshal(enc Encoding, v any) ([]byte, error) {
	if enc == EncodingCBOR {
		return encMode.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data in the given encoding into v.
func Unmarshal(enc Encoding, data []byte, v any) error {
	if enc == EncodingCBOR {
		return decMode.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// Encode serializes the message for the wire.
func (m *Message) Encode(enc Encoding) ([]byte, error) {
	data, err := Marshal(enc, m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}
