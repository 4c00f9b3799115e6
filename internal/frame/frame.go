// Package frame converts canDrive wire lines to and from Frame values.
//
// The adapter speaks a permissive comma-separated text protocol, one frame
// per line:
//
//	ID,EXT,RTR,DATA
//
// Nothing beyond the token count is validated. The tokens are carried as the
// adapter sent them.
package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedFrame is returned by Decode when a line has fewer than four tokens.
var ErrMalformedFrame = errors.New("malformed frame")

const (
	separator = ","
	minTokens = 4
)

// Frame is a single decoded bus message.
type Frame struct {
	ID   string
	Ext  string
	RTR  string
	Data string

	// Elapsed is the time since the start of the sniffing session, stamped
	// at ingestion. Zero for frames that were never recorded.
	Elapsed time.Duration

	Label string
}

// Extended reports whether the extended-identifier flag is set.
func (f Frame) Extended() bool { return flagSet(f.Ext) }

// Remote reports whether the remote-transmission-request flag is set.
func (f Frame) Remote() bool { return flagSet(f.RTR) }

// Bytes hex-decodes the payload.
func (f Frame) Bytes() ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(f.Data, " ", ""))
}

// flagSet treats any non-empty token that is not all zeros as true.
func flagSet(tok string) bool {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return false
	}
	switch strings.ToLower(tok) {
	case "false", "no":
		return false
	case "true", "yes":
		return true
	}
	return strings.Trim(tok, "0") != ""
}

// Decode parses one wire line. The payload is every token after the third,
// concatenated without separators.
func Decode(line string) (Frame, error) {
	parts := strings.Split(strings.TrimSpace(line), separator)
	if len(parts) < minTokens {
		return Frame{}, fmt.Errorf("%w: got %d tokens, need %d", ErrMalformedFrame, len(parts), minTokens)
	}
	return Frame{
		ID:   parts[0],
		Ext:  parts[1],
		RTR:  parts[2],
		Data: strings.Join(parts[3:], ""),
	}, nil
}

// Encode formats an outbound frame as a newline-terminated wire line.
func Encode(id, ext, rtr, data string) string {
	return id + separator + ext + separator + rtr + separator + data + "\n"
}
